package file

import (
	"os"
	"path/filepath"
)

// FindInRootOrChildren looks for name directly under root, then once inside
// each immediate subdirectory of root in directory order. It never descends
// further than one level. A missing or unreadable root yields ok=false.
func FindInRootOrChildren(root, name string) (string, bool) {
	if root == "" || name == "" || filepath.Base(name) != name {
		return "", false
	}

	candidate := filepath.Join(root, name)
	if isRegular(candidate) {
		return candidate, true
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate = filepath.Join(root, entry.Name(), name)
		if isRegular(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
