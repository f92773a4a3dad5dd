package selector

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sorenkel/relget/pkg/manifest"
)

type PackageItem struct {
	entry manifest.Entry
}

func (i PackageItem) Title() string {
	return i.entry.Name
}

func (i PackageItem) Description() string {
	desc := i.entry.Package.Description
	if desc == "" {
		desc = i.entry.Repo
	}
	prefix := fmt.Sprintf("[%s] ", i.entry.Source)
	maxLen := 100 - len(prefix)
	if len(desc) > maxLen {
		desc = desc[:maxLen-3] + "..."
	}
	return prefix + desc
}

func (i PackageItem) FilterValue() string {
	return i.entry.Name
}

type model struct {
	list     list.Model
	selected *manifest.Entry
	quitting bool
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if i, ok := m.list.SelectedItem().(PackageItem); ok {
				m.selected = &i.entry
				return m, tea.Quit
			}
		case "ctrl+n":
			m.list.CursorDown()
		case "ctrl+p":
			m.list.CursorUp()
		case "pgdown", "ctrl+d":
			m.list.NextPage()
		case "pgup", "ctrl+u":
			m.list.PrevPage()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	help := "\nNavigate: ↑/↓ • Page: PgUp/PgDn • Filter: / • Select: Enter • Quit: Esc/q\n"
	return m.list.View() + help
}

// SelectPackage presents an interactive UI for picking one entry out of
// several pattern matches. A single candidate is returned immediately
// without any UI interaction.
func SelectPackage(entries []manifest.Entry) (*manifest.Entry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no packages to select from")
	}
	if len(entries) == 1 {
		return &entries[0], nil
	}

	items := make([]list.Item, len(entries))
	for i, entry := range entries {
		items[i] = PackageItem{entry: entry}
	}

	width := 80
	height := min(20, len(items)+5) // 5 lines for header, help, etc.
	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = fmt.Sprintf("Select a package (found %d)", len(entries))
	l.SetShowHelp(true)
	l.SetFilteringEnabled(true)
	l.SetShowStatusBar(true)
	l.SetShowTitle(true)
	l.KeyMap.Quit.SetEnabled(true)
	l.KeyMap.ForceQuit.SetEnabled(true)
	l.SetShowFilter(true)

	m := model{list: l}

	prog := tea.NewProgram(m)
	finalModel, err := prog.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run UI: %w", err)
	}

	if m, ok := finalModel.(model); ok && m.selected != nil {
		return m.selected, nil
	}

	return nil, fmt.Errorf("no package selected")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
