package fs

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/meshbuild/bg/src/core"
)

// RealFS implements core.ReadOnlyFS and core.Writer against the operating
// system filesystem, rooted at Root. It is the adapter a cmd/ entrypoint
// wires the engine up to; every other layer only ever sees the narrower
// core.ReadOnlyFS/core.Writer interfaces, so tests can substitute an
// in-memory fake instead.
type RealFS struct {
	Root string
}

// NewRealFS creates a RealFS rooted at root, an absolute path to the
// directory containing the RootMarker file.
func NewRealFS(root string) *RealFS {
	return &RealFS{Root: root}
}

// ReadFile implements core.ReadOnlyFS.
func (r *RealFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(r.Root, path))
}

// DirExists implements core.ReadOnlyFS.
func (r *RealFS) DirExists(path string) bool {
	return IsDirectory(filepath.Join(r.Root, path))
}

// WriteFile implements core.Writer, for write_file output: it ensures the
// destination directory exists first.
func (r *RealFS) WriteFile(path string, data []byte) error {
	full := filepath.Join(r.Root, path)
	if err := EnsureDir(full); err != nil {
		return err
	}
	return WriteFile(bytes.NewReader(data), full, 0644)
}

var _ core.ReadOnlyFS = (*RealFS)(nil)
var _ core.Writer = (*RealFS)(nil)
