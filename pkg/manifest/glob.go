package manifest

import "strings"

// Glob matches text against a pattern supporting the * wildcard. A
// pattern without a wildcard must match exactly.
func Glob(text, pattern string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return text == pattern
	}

	pos := 0
	for i, part := range parts {
		if part == "" {
			continue
		}
		switch i {
		case 0:
			if !strings.HasPrefix(text, part) {
				return false
			}
			pos = len(part)
		case len(parts) - 1:
			if !strings.HasSuffix(text[pos:], part) {
				return false
			}
		default:
			found := strings.Index(text[pos:], part)
			if found < 0 {
				return false
			}
			pos += found + len(part)
		}
	}
	return true
}
