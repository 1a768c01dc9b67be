package core

import (
	"os"
	"path"
	"strings"
)

// FindRepoRoot walks up from the current working directory looking for
// marker, returning the directory it was found in and true, or "" and
// false if it reaches the filesystem root without finding one. Grounded
// on the teacher's core.getRepoRoot, simplified since this module has no
// Bazel-WORKSPACE fallback or initial-package bookkeeping to carry along.
func FindRepoRoot(marker string) (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for dir != "" {
		if _, err := os.Stat(path.Join(dir, marker)); err == nil {
			return dir, true
		}
		parent, _ := path.Split(dir)
		parent = strings.TrimRight(parent, "/")
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}
