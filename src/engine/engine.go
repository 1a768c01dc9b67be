// Package engine wires the loader, toolchain manager, and target manager
// together behind the lang.Host interface: it is the concrete dependency
// the evaluator calls out to, and the top-level driver that cmd/bgraph
// runs against a real filesystem. Grounded on the teacher's
// src/plz/plz.go, which plays the same "own one graph, own one scheduler,
// implement the callback interface the parser needs" role for a build
// rather than this module's item graph.
package engine

import (
	"fmt"
	"path"
	"strings"
	"sync"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/meshbuild/bg/src/cmap"
	"github.com/meshbuild/bg/src/core"
	"github.com/meshbuild/bg/src/lang"
	"github.com/meshbuild/bg/src/loader"
	"github.com/meshbuild/bg/src/target"
	"github.com/meshbuild/bg/src/toolchain"
)

var log = logging.MustGetLogger("engine")

// ctxKey is a private property key type for the scope property the engine
// threads through file evaluation to record which toolchain a
// declaration's label should be qualified with, mirroring how builtins.go
// threads the in-progress toolchain payload via its own private
// propertyKey type.
type ctxKey int

const toolchainCtxKey ctxKey = iota

// Engine implements lang.Host and is the top-level driver: Run evaluates a
// set of explicitly requested build files to a fixed point and validates
// the resulting item graph.
type Engine struct {
	config  *core.Configuration
	rootDir string

	tree  *core.SourceTree
	graph *core.ItemGraph
	files *loader.FileManager
	sched *loader.Scheduler

	toolchains *toolchain.Manager
	targets    *target.Manager

	evalCache *cmap.ErrMap[string, *lang.Scope]

	writesMu sync.Mutex
	writes   map[string]string

	requestedMu sync.Mutex
	requested   map[string]bool
}

// NewEngine creates an Engine backed by rootFS for file content, config for
// worker-pool sizing and generation policy, and rootDir as the real
// filesystem path ExecScript resolves scripts against (ReadFile/WriteFile
// never need it, since they go through rootFS/a core.Writer instead).
func NewEngine(config *core.Configuration, rootFS core.ReadOnlyFS, rootDir string) *Engine {
	graph := core.NewItemGraph()
	sched := loader.NewScheduler(config.Build.NumWorkers)
	tree := core.NewSourceTree(rootFS)
	return &Engine{
		config:     config,
		rootDir:    rootDir,
		tree:       tree,
		graph:      graph,
		files:      loader.NewFileManager(tree, sched),
		sched:      sched,
		toolchains: toolchain.NewManager(graph),
		targets:    target.NewManager(graph),
		evalCache:  cmap.NewErrMap[string, *lang.Scope](cmap.SmallShardCount, cmap.XXHash),
		writes:     map[string]string{},
		requested:  map[string]bool{},
	}
}

// Graph returns the item graph Run populates, for a caller that wants to
// enumerate resolved targets/configs/toolchains once Run returns.
func (e *Engine) Graph() *core.ItemGraph { return e.graph }

// GenDependencies returns the accumulated gen-dependency set, for emission
// into a top-level manifest.
func (e *Engine) GenDependencies() []string { return e.sched.GenDependencies() }

// FlushWrites writes every staged write_file output to w. Callers must only
// call this after a successful Run, so that a failed evaluation leaves no
// partial output on disk.
func (e *Engine) FlushWrites(w core.Writer) error {
	e.writesMu.Lock()
	defer e.writesMu.Unlock()
	for p, data := range e.writes {
		if err := w.WriteFile(p, []byte(data)); err != nil {
			return fmt.Errorf("writing %s: %w", p, err)
		}
	}
	return nil
}

// BootstrapDefault evaluates configFile as the default toolchain's base
// build config (spec.md §4.9): a normal build-description file run with
// processing_build_config and processing_default_build_config set, with
// is_win/is_mac/is_linux/is_posix seeded from toolchain.SystemVars. The
// file is expected to call set_default_toolchain exactly once; if it never
// does, BootstrapDefault fails once the load settles.
func (e *Engine) BootstrapDefault(configFile string) error {
	resolved := e.resolvePathFromRoot(configFile)
	log.Info("bootstrapping default toolchain from %s", resolved)
	_, err := e.toolchains.BootstrapDefault(func() (interface{}, error) {
		scope, err := e.evalBuildConfigScope(resolved, true)
		if err != nil {
			return nil, err
		}
		if _, ok := e.toolchains.DefaultToolchain(); !ok {
			return nil, fmt.Errorf("default build config %s never called set_default_toolchain", resolved)
		}
		return scope, nil
	})
	return err
}

func (e *Engine) evalBuildConfigScope(resolved string, isDefault bool) (*lang.Scope, error) {
	src, err := e.tree.Load(resolved)
	if err != nil {
		return nil, err
	}
	f, err := lang.ParseFile(src)
	if err != nil {
		return nil, err
	}
	scope := lang.NewScope()
	scope.SetMode(lang.ModeProcessingBuildConfig)
	if isDefault {
		scope.SetMode(lang.ModeProcessingDefaultBuildConfig)
	}
	for name, v := range toolchain.SystemVars() {
		scope.Set(name, boolValue(v), lang.Position{})
		scope.MarkUsed(name)
	}
	interp := lang.NewInterpreter(e)
	if err := interp.Eval(f, scope, false); err != nil {
		return nil, err
	}
	return scope, nil
}

func boolValue(b bool) core.Value {
	if b {
		return core.Integer(1)
	}
	return core.Integer(0)
}

// Run is the top-level driver (component H's main loop plus component G's
// requested-file entry points): it schedules evaluation of every file in
// files under the default toolchain, blocks until the scheduler's work
// counter reaches zero or a failure latches, then validates the graph.
// BootstrapDefault must have completed successfully first.
func (e *Engine) Run(files []string) error {
	log.Debug("running %d requested file(s)", len(files))
	for _, f := range files {
		e.requestedMu.Lock()
		e.requested[e.resolvePathFromRoot(f)] = true
		e.requestedMu.Unlock()
	}
	err := e.sched.Run(func() {
		for _, f := range files {
			e.requestBuildFile(f)
		}
	})
	if err != nil {
		return err
	}
	if e.config.Build.Greedy {
		for _, l := range e.graph.Labels() {
			e.graph.SetShouldGenerate(l)
		}
	}
	return e.graph.CheckForBadItems()
}

// RequestFileForToolchain schedules file's evaluation under tcLabel,
// loading tcLabel's own base config (configFile) first if its settings
// aren't already cached. This is the driver for spec.md §4.9's "re-run a
// build file once per explicitly referenced toolchain". No code in this
// module calls it; naming a non-default toolchain in a build file does not
// trigger it.
func (e *Engine) RequestFileForToolchain(file, configFile string, tcLabel core.Label) {
	e.sched.Submit(func() {
		_, err := e.toolchains.Load(tcLabel, func() (interface{}, error) {
			resolved := e.resolvePathFromRoot(configFile)
			return e.evalBuildConfigScope(resolved, false)
		})
		if err != nil {
			e.sched.FailWith(err)
			return
		}
		e.requestBuildFileForToolchain(file, tcLabel)
	})
}

func (e *Engine) requestBuildFile(file string) {
	tcLabel := e.defaultToolchainLabelOrZero()
	e.requestBuildFileForToolchain(file, tcLabel)
}

func (e *Engine) requestBuildFileForToolchain(file string, tcLabel core.Label) {
	resolved := e.resolvePathFromRoot(file)
	e.files.AsyncLoad(resolved, e.parseOnly, func(f *lang.File, err error) {
		if err != nil {
			e.sched.FailWith(err)
			return
		}
		if _, evalErr := e.evalCache.GetOrSet(fileKey(resolved, tcLabel), func() (*lang.Scope, error) {
			return e.evalFile(f, resolved, tcLabel, false)
		}); evalErr != nil {
			e.sched.FailWith(evalErr)
		}
	})
}

func (e *Engine) defaultToolchainLabelOrZero() core.Label {
	if l, ok := e.toolchains.DefaultToolchain(); ok {
		return l
	}
	return core.Label{}
}

func (e *Engine) parseOnly(src *core.SourceFile) (*lang.File, error) {
	return lang.ParseFile(src)
}

func (e *Engine) evalFile(f *lang.File, path string, tcLabel core.Label, isImport bool) (*lang.Scope, error) {
	scope := lang.NewScope()
	if isImport {
		scope.SetMode(lang.ModeProcessingImport)
	} else {
		scope.SetProperty(toolchainCtxKey, tcLabel)
	}
	interp := lang.NewInterpreter(e)
	if err := interp.Eval(f, scope, isImport); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scope, nil
}

func fileKey(path string, tcLabel core.Label) string {
	if tcLabel == (core.Label{}) {
		return path
	}
	return path + "##" + tcLabel.String()
}

func (e *Engine) isRequestedFile(origin lang.Node) bool {
	f := e.tree.File(origin.Position().FileID)
	if f == nil {
		return false
	}
	e.requestedMu.Lock()
	defer e.requestedMu.Unlock()
	return e.requested[f.Path]
}

// getItem is the single path every Host method uses to look up or create a
// node, applying greedy generation's "should_generate implied from first
// reference" rule (spec.md §4.8) as it goes.
func (e *Engine) getItem(label core.Label, origin core.Origin, depFrom core.Label, hasDepFrom bool) *core.Node {
	n := e.targets.Get(label, origin, depFrom, hasDepFrom)
	if e.config.Build.Greedy {
		e.graph.SetShouldGenerate(label)
	}
	return n
}

// qualifyLabel builds name's label in origin's declaring directory, qualified
// with the toolchain scope's evaluation was tagged with (the zero Label for
// a file evaluated before any toolchain context is known, which resolves to
// NullToolchain — the same as an unqualified label).
func (e *Engine) qualifyLabel(origin lang.Node, scope *lang.Scope, name string) core.Label {
	label := core.NewLabel(e.declaringDir(origin), name)
	if v, ok := scope.Property(toolchainCtxKey); ok {
		if tc, ok := v.(core.Label); ok && tc != (core.Label{}) {
			label = label.WithToolchain(tc.Dir, tc.Name)
		}
	}
	return label
}

func (e *Engine) declaringDir(origin lang.Node) string {
	f := e.tree.File(origin.Position().FileID)
	if f == nil {
		return "//"
	}
	dir := path.Dir(f.Path)
	if dir == "." {
		return "//"
	}
	return "//" + dir
}

// resolvePath implements spec.md §6's path-resolution rules: a leading "//"
// is source-root-relative, a leading "/" is system-absolute (left as-is,
// since this module never walks outside the source root for reads), and
// anything else is relative to origin's declaring file's directory.
func (e *Engine) resolvePath(origin lang.Node, p string) string {
	switch {
	case strings.HasPrefix(p, "//"):
		return path.Clean(strings.TrimPrefix(p, "//"))
	case strings.HasPrefix(p, "/"):
		return path.Clean(p)
	default:
		dir := "."
		if f := e.tree.File(origin.Position().FileID); f != nil {
			dir = path.Dir(f.Path)
		}
		return path.Clean(path.Join(dir, p))
	}
}

func (e *Engine) resolvePathFromRoot(p string) string {
	return path.Clean(strings.TrimPrefix(p, "//"))
}

var _ lang.Host = (*Engine)(nil)
