package core

import (
	"fmt"
	"path"
	"strings"
	"sync"
)

// FileID identifies a SourceFile stably for the lifetime of a run. Positions
// store a FileID rather than a path so that moving a SourceTree's root
// doesn't invalidate already-issued diagnostics.
type FileID int

// SourceFile owns the contents of one input file. Tokens copy their text
// out of Content; a SourceFile must
// outlive every Value or diagnostic that references it, which in practice
// means the SourceTree never evicts a SourceFile once loaded.
type SourceFile struct {
	ID      FileID
	Path    string // root-relative, slash-separated
	Content []byte
}

// Describe implements Origin for diagnostics that only have a file, not a
// specific line/column (e.g. "this whole file failed to load").
func (f *SourceFile) Describe() string {
	return f.Path
}

// ReadOnlyFS is the minimal filesystem surface this module depends on. It
// exists so the evaluation engine never imports "os" directly outside of
// one adapter, keeping it testable against an in-memory fake. Mirrors the
// teacher's decoupling of src/parse from raw os via iofs.FS.
type ReadOnlyFS interface {
	// ReadFile returns the full contents of the file at the given
	// root-relative path.
	ReadFile(path string) ([]byte, error)
	// DirExists reports whether a directory exists at the given
	// root-relative path.
	DirExists(path string) bool
}

// Writer is the output side of the filesystem abstraction: write_file's
// destination and any other emitted artifacts. Kept separate from
// ReadOnlyFS since most of the evaluation pipeline only ever needs read
// access, and a dry-run caller can supply a ReadOnlyFS without a Writer.
type Writer interface {
	WriteFile(path string, data []byte) error
}

// RootMarker is the name of the marker file that identifies a SourceTree's
// root directory, analogous to the teacher's .plzconfig.
const RootMarker = ".bgraph_root"

// SourceTree owns every SourceFile loaded during a run and assigns stable
// FileIDs. It is safe for concurrent use; callers in the loader package
// call Load from multiple worker goroutines.
type SourceTree struct {
	fs     ReadOnlyFS
	mu     sync.Mutex
	files  []*SourceFile
	byPath map[string]*SourceFile
}

// NewSourceTree creates a SourceTree rooted at the filesystem described by
// fs. fs is expected to resolve paths relative to the directory containing
// the RootMarker file; locating that directory is the caller's
// responsibility (SourceTree itself never walks the filesystem; callers
// with a real filesystem can use FindRepoRoot for that).
func NewSourceTree(fs ReadOnlyFS) *SourceTree {
	return &SourceTree{fs: fs, byPath: map[string]*SourceFile{}}
}

// Load returns the SourceFile for the given root-relative path, reading and
// caching it on first access. Concurrent callers requesting the same path
// receive the same *SourceFile.
func (t *SourceTree) Load(p string) (*SourceFile, error) {
	p = normalisePath(p)
	t.mu.Lock()
	if f, ok := t.byPath[p]; ok {
		t.mu.Unlock()
		return f, nil
	}
	t.mu.Unlock()

	data, err := t.fs.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.byPath[p]; ok {
		return f, nil
	}
	f := &SourceFile{ID: FileID(len(t.files)), Path: p, Content: data}
	t.files = append(t.files, f)
	t.byPath[p] = f
	return f, nil
}

// File returns a previously loaded file by its ID, or nil if out of range.
func (t *SourceTree) File(id FileID) *SourceFile {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) < 0 || int(id) >= len(t.files) {
		return nil
	}
	return t.files[id]
}

func normalisePath(p string) string {
	return path.Clean(strings.TrimPrefix(p, "//"))
}
