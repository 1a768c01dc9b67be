package loader

import (
	"fmt"
	"sync"

	"github.com/meshbuild/bg/src/core"
	"github.com/meshbuild/bg/src/lang"
)

// LoadMode records whether a file was first loaded synchronously (via
// import) or asynchronously (via the scheduler). Mixing modes for the same
// file is rejected, per spec.md §4.6's anti-deadlock rule: the async queue
// behind a file could be arbitrarily long, and a sync waiter blocking
// behind it would effectively deadlock.
type LoadMode int

const (
	modeUnset LoadMode = iota
	modeSync
	modeAsync
)

type fileEntry struct {
	mode    LoadMode
	loading bool
	waiters []func(*lang.File, error)
	result  *lang.File
	err     error
}

// FileManager is the input-file manager (component G): it ensures each
// build file is parsed exactly once, serving every other caller the same
// parsed AST (or the same load error) regardless of how many places
// reference it.
type FileManager struct {
	tree  *core.SourceTree
	sched *Scheduler

	mu      sync.Mutex
	entries map[string]*fileEntry
}

// NewFileManager creates a FileManager backed by tree for file content and
// sched for dispatching async loads.
func NewFileManager(tree *core.SourceTree, sched *Scheduler) *FileManager {
	return &FileManager{tree: tree, sched: sched, entries: map[string]*fileEntry{}}
}

// AsyncLoad schedules a background load of file. If the file is already
// loaded, callback is invoked directly on the pool. Multiple callbacks may
// be queued while a load is in flight; all are called, on the goroutine
// that finishes the load, when it completes.
func (m *FileManager) AsyncLoad(path string, parse func(*core.SourceFile) (*lang.File, error), callback func(*lang.File, error)) {
	m.mu.Lock()
	e, ok := m.entries[path]
	if !ok {
		e = &fileEntry{mode: modeAsync}
		m.entries[path] = e
	} else if e.mode == modeSync {
		m.mu.Unlock()
		callback(nil, fmt.Errorf("load type mismatch: %q was already loaded synchronously", path))
		return
	}
	if e.result != nil || e.err != nil {
		result, err := e.result, e.err
		m.mu.Unlock()
		m.sched.Submit(func() { callback(result, err) })
		return
	}
	if e.loading {
		e.waiters = append(e.waiters, callback)
		m.mu.Unlock()
		return
	}
	e.loading = true
	m.mu.Unlock()

	m.sched.Submit(func() { m.doLoad(path, e, parse, callback) })
}

// SyncLoad loads file on the caller's goroutine if nobody has started
// loading it yet, or blocks until another caller's in-flight synchronous
// load completes. A file already loaded asynchronously is rejected with a
// load type mismatch error. Used by the import() builtin.
func (m *FileManager) SyncLoad(path string, parse func(*core.SourceFile) (*lang.File, error)) (*lang.File, error) {
	m.mu.Lock()
	e, ok := m.entries[path]
	if !ok {
		e = &fileEntry{mode: modeSync, loading: true}
		m.entries[path] = e
		m.mu.Unlock()
		result, err := parse(m.mustLoad(path))
		m.complete(path, e, result, err)
		return result, err
	}
	if e.mode == modeAsync {
		m.mu.Unlock()
		return nil, fmt.Errorf("load type mismatch: %q was already loaded asynchronously", path)
	}
	if e.result != nil || e.err != nil {
		result, err := e.result, e.err
		m.mu.Unlock()
		return result, err
	}
	done := make(chan struct{})
	e.waiters = append(e.waiters, func(f *lang.File, err error) { close(done) })
	m.mu.Unlock()
	<-done
	m.mu.Lock()
	result, err := e.result, e.err
	m.mu.Unlock()
	return result, err
}

func (m *FileManager) mustLoad(path string) *core.SourceFile {
	f, err := m.tree.Load(path)
	if err != nil {
		panic(err)
	}
	return f
}

func (m *FileManager) doLoad(path string, e *fileEntry, parse func(*core.SourceFile) (*lang.File, error), callback func(*lang.File, error)) {
	src, err := m.tree.Load(path)
	var result *lang.File
	if err == nil {
		result, err = parse(src)
	}
	m.complete(path, e, result, err)
	callback(result, err)
}

func (m *FileManager) complete(path string, e *fileEntry, result *lang.File, err error) {
	m.mu.Lock()
	e.loading = false
	e.result = result
	e.err = err
	waiters := e.waiters
	e.waiters = nil
	m.mu.Unlock()

	for _, w := range waiters {
		w(result, err)
	}
}
