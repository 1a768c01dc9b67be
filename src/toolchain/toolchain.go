// Package toolchain implements the toolchain manager (component J):
// per-toolchain Settings loading, the default-toolchain bootstrap via the
// null-toolchain sentinel, and system variable seeding.
package toolchain

import (
	"fmt"
	"runtime"
	"sync"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/meshbuild/bg/src/cmap"
	"github.com/meshbuild/bg/src/core"
)

var log = logging.MustGetLogger("toolchain")

// LoadState is the settings load state for one toolchain, per spec.md
// §4.9.
type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Loaded
)

// Settings is the per-toolchain state: its base config scope handle (an
// opaque pointer into the lang package's Scope, kept untyped here to avoid
// a dependency cycle between toolchain and lang) and output subdirectory.
// It carries no host OS flags; SystemVars computes those from
// runtime.GOOS.
type Settings struct {
	Label       core.Label
	OutputDir   string
	BaseScope   interface{}
	State       LoadState
}

// Manager tracks every toolchain referenced so far, including the
// bootstrap default-toolchain entry that starts out keyed by the null
// label until set_default_toolchain re-keys it.
type Manager struct {
	graph *core.ItemGraph

	mu       sync.Mutex
	settings *cmap.ErrMap[string, *Settings]
	pending  map[string][]func(*Settings, error) // queued invocation requests while Loading

	defaultLabel    core.Label
	defaultSet      bool
	defaultSetFrom  string
}

// NewManager creates a Manager backed by graph for toolchain item storage.
func NewManager(graph *core.ItemGraph) *Manager {
	return &Manager{
		graph:    graph,
		settings: cmap.NewErrMap[string, *Settings](cmap.SmallShardCount, cmap.XXHash),
		pending:  map[string][]func(*Settings, error){},
	}
}

// SystemVars returns the is_win/is_mac/is_linux/is_posix values this
// manager seeds before running a toolchain's base config, according to the
// host the process is actually running on.
func SystemVars() map[string]bool {
	isWin := runtime.GOOS == "windows"
	isMac := runtime.GOOS == "darwin"
	isLinux := runtime.GOOS == "linux"
	return map[string]bool{
		"is_win":   isWin,
		"is_mac":   isMac,
		"is_linux": isLinux,
		"is_posix": !isWin,
	}
}

// BootstrapDefault begins loading the default toolchain's base config under
// the null-toolchain sentinel label, since the real default toolchain name
// is not known until that config calls set_default_toolchain. load is
// invoked to actually run the base config script; it returns the BaseScope
// to store.
func (m *Manager) BootstrapDefault(load func() (interface{}, error)) (*Settings, error) {
	key := core.NullToolchain
	return m.settings.GetOrSet(key, func() (*Settings, error) {
		scope, err := load()
		if err != nil {
			return nil, err
		}
		return &Settings{BaseScope: scope, State: Loaded}, nil
	})
}

// SetDefaultToolchain re-keys the null-toolchain bootstrap entry to label,
// once the default build config calls set_default_toolchain: the same
// Settings are stored under label, and the null-key entry stays in place.
// If this is never called, any later Load(label) for a real label with no
// matching entry goes through the normal Load path instead of reusing the
// bootstrap scope.
func (m *Manager) SetDefaultToolchain(label core.Label, setFrom string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.defaultSet {
		return fmt.Errorf("default toolchain already set (from %s)", m.defaultSetFrom)
	}
	settings, _, ok := m.settings.Get(core.NullToolchain)
	if !ok {
		return fmt.Errorf("set_default_toolchain called with no bootstrap toolchain in flight")
	}
	settings.Label = label
	m.settings.Set(label.String(), settings, nil)
	m.defaultLabel = label
	m.defaultSet = true
	m.defaultSetFrom = setFrom
	return nil
}

// DefaultToolchain returns the label set by set_default_toolchain, and
// whether one has been set yet.
func (m *Manager) DefaultToolchain() (core.Label, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultLabel, m.defaultSet
}

// Load returns the Settings for a non-default toolchain label, loading it
// via load on first reference. Concurrent callers for the same label block
// until the first caller's load completes, exactly as cmap.ErrMap.GetOrSet
// provides.
func (m *Manager) Load(label core.Label, load func() (interface{}, error)) (*Settings, error) {
	return m.settings.GetOrSet(label.String(), func() (*Settings, error) {
		scope, err := load()
		if err != nil {
			return nil, err
		}
		return &Settings{Label: label, BaseScope: scope, State: Loaded}, nil
	})
}

// QueueInvocation records a pending invocation of a build file under
// toolchainLabel while its settings are still loading, per spec.md §4.9's
// per-toolchain pending-invocations map. The queue is drained by DrainQueue
// once settings finish loading.
func (m *Manager) QueueInvocation(toolchainLabel string, fn func(*Settings, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[toolchainLabel] = append(m.pending[toolchainLabel], fn)
}

// DrainQueue runs every invocation queued for toolchainLabel with the now
// finished settings (or error), and clears the queue.
func (m *Manager) DrainQueue(toolchainLabel string, settings *Settings, err error) {
	m.mu.Lock()
	fns := m.pending[toolchainLabel]
	delete(m.pending, toolchainLabel)
	m.mu.Unlock()
	for _, fn := range fns {
		fn(settings, err)
	}
}
