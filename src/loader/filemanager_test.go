package loader

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshbuild/bg/src/core"
	"github.com/meshbuild/bg/src/lang"
)

type fmFakeFS struct {
	files map[string][]byte
}

func (f *fmFakeFS) ReadFile(path string) ([]byte, error) {
	if data, ok := f.files[path]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no such file %s", path)
}

func (f *fmFakeFS) DirExists(path string) bool { return false }

func countingParse(calls *int32Counter) func(*core.SourceFile) (*lang.File, error) {
	return func(src *core.SourceFile) (*lang.File, error) {
		calls.inc()
		return &lang.File{}, nil
	}
}

type int32Counter struct {
	mu sync.Mutex
	n  int
}

func (c *int32Counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *int32Counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestAsyncLoadParsesOnce(t *testing.T) {
	fs := &fmFakeFS{files: map[string][]byte{"a.bg": []byte("x")}}
	tree := core.NewSourceTree(fs)
	sched := NewScheduler(4)
	fm := NewFileManager(tree, sched)

	counter := &int32Counter{}
	var wg sync.WaitGroup
	err := sched.Run(func() {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			fm.AsyncLoad("a.bg", countingParse(counter), func(f *lang.File, err error) {
				require.NoError(t, err)
				require.NotNil(t, f)
				wg.Done()
			})
		}
	})
	require.NoError(t, err)
	wg.Wait()
	assert.Equal(t, 1, counter.get())
}

func TestSyncLoadParsesOnce(t *testing.T) {
	fs := &fmFakeFS{files: map[string][]byte{"a.bg": []byte("x")}}
	tree := core.NewSourceTree(fs)
	sched := NewScheduler(4)
	fm := NewFileManager(tree, sched)

	counter := &int32Counter{}
	f, err := fm.SyncLoad("a.bg", countingParse(counter))
	require.NoError(t, err)
	require.NotNil(t, f)

	f2, err := fm.SyncLoad("a.bg", countingParse(counter))
	require.NoError(t, err)
	assert.Same(t, f, f2)
	assert.Equal(t, 1, counter.get())
}

func TestMixedSyncThenAsyncIsRejected(t *testing.T) {
	fs := &fmFakeFS{files: map[string][]byte{"a.bg": []byte("x")}}
	tree := core.NewSourceTree(fs)
	sched := NewScheduler(4)
	fm := NewFileManager(tree, sched)

	_, err := fm.SyncLoad("a.bg", countingParse(&int32Counter{}))
	require.NoError(t, err)

	done := make(chan struct{})
	fm.AsyncLoad("a.bg", countingParse(&int32Counter{}), func(f *lang.File, err error) {
		assert.Error(t, err)
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never invoked")
	}
}

func TestMixedAsyncThenSyncIsRejected(t *testing.T) {
	fs := &fmFakeFS{files: map[string][]byte{"a.bg": []byte("x")}}
	tree := core.NewSourceTree(fs)
	sched := NewScheduler(4)
	fm := NewFileManager(tree, sched)

	done := make(chan struct{})
	fm.AsyncLoad("a.bg", countingParse(&int32Counter{}), func(f *lang.File, err error) {
		close(done)
	})
	<-done

	_, err := fm.SyncLoad("a.bg", countingParse(&int32Counter{}))
	assert.Error(t, err)
}

func TestAsyncLoadPropagatesParseError(t *testing.T) {
	fs := &fmFakeFS{files: map[string][]byte{}}
	tree := core.NewSourceTree(fs)
	sched := NewScheduler(2)
	fm := NewFileManager(tree, sched)

	done := make(chan struct{})
	fm.AsyncLoad("missing.bg", countingParse(&int32Counter{}), func(f *lang.File, err error) {
		assert.Error(t, err)
		assert.Nil(t, f)
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never invoked")
	}
}
