package installer

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// findExecutable locates the runnable executable for a package inside an
// extracted tree. First match wins:
//  1. a regular executable file named exactly like the package
//     (optionally with a .exe suffix), shallowest first;
//  2. the sole regular executable in the whole tree.
//
// Zero or ambiguously many candidates fail with ExecutableNotFoundError
// listing the extracted regular files.
func findExecutable(root, name string) (string, error) {
	var regular []string
	var executables []string
	var named []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		regular = append(regular, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !isExecutable(rel, info.Mode()) {
			return nil
		}
		executables = append(executables, rel)

		base := filepath.Base(rel)
		if base == name || base == name+".exe" {
			named = append(named, rel)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(named) > 0 {
		// Prefer the shallowest, then lexicographic for determinism.
		sort.Slice(named, func(i, j int) bool {
			di, dj := strings.Count(named[i], "/"), strings.Count(named[j], "/")
			if di != dj {
				return di < dj
			}
			return named[i] < named[j]
		})
		return named[0], nil
	}

	if len(executables) == 1 {
		return executables[0], nil
	}

	sort.Strings(regular)
	return "", &ExecutableNotFoundError{Package: name, Files: regular}
}

func isExecutable(rel string, mode os.FileMode) bool {
	if strings.HasSuffix(strings.ToLower(rel), ".exe") {
		return true
	}
	return mode.Perm()&0111 != 0
}
