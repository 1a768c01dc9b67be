package engine

import (
	"fmt"

	"github.com/meshbuild/bg/src/core"
	"github.com/meshbuild/bg/src/lang"
)

// Import performs a synchronous load of file (component G's sync_load),
// returning the root scope produced by evaluating it. Imports never
// declare targets/configs/toolchains (ModeProcessingImport forbids it), so
// they are evaluated once per path regardless of toolchain context.
func (e *Engine) Import(origin lang.Node, file string) (*lang.Scope, error) {
	resolved := e.resolvePath(origin, file)
	f, err := e.files.SyncLoad(resolved, e.parseOnly)
	if err != nil {
		return nil, err
	}
	return e.evalCache.GetOrSet(fileKey(resolved, core.Label{}), func() (*lang.Scope, error) {
		return e.evalFile(f, resolved, core.Label{}, true)
	})
}

// DeclareTarget registers a new target item, populates it from scope, and
// propagates should_generate to its deps/configs when running in on-demand
// mode and this target is itself reachable.
func (e *Engine) DeclareTarget(origin lang.Node, outputType core.OutputType, scope *lang.Scope) (core.Label, error) {
	name := stringField(scope, "target_name")
	if name == "" {
		return core.Label{}, fmt.Errorf("target declared with no name")
	}
	label := e.qualifyLabel(origin, scope, name)
	e.getItem(label, origin, core.Label{}, false)

	t := generateTarget(outputType, scope)
	if err := e.targets.Populate(label, t); err != nil {
		return core.Label{}, err
	}

	if !e.config.Build.Greedy {
		if e.isRequestedFile(origin) {
			e.graph.SetShouldGenerate(label)
		}
		if n := e.graph.GetOrNull(label); n != nil && n.ShouldGenerate {
			for _, dep := range t.Deps {
				e.graph.SetShouldGenerate(dep)
			}
			for _, dep := range t.Configs {
				e.graph.SetShouldGenerate(dep)
			}
		}
	}

	e.targets.GenerationComplete(label)
	return label, nil
}

// DeclareConfig registers a new config item named name, with values
// populated from scope's ConfigValues-shaped bindings.
func (e *Engine) DeclareConfig(origin lang.Node, name string, scope *lang.Scope) (core.Label, error) {
	label := e.qualifyLabel(origin, scope, name)
	n := e.getItem(label, origin, core.Label{}, false)
	cv := generateConfigValues(scope)
	n.Item.SetConfig(&cv)
	e.graph.MarkDefined(label)
	return label, nil
}

// DeclareToolchain registers a new toolchain item named name. Toolchain
// labels are never themselves toolchain-qualified (a toolchain item IS a
// toolchain, not something re-evaluated per toolchain), so this always
// qualifies against NullToolchain regardless of the declaring file's own
// toolchain context.
func (e *Engine) DeclareToolchain(origin lang.Node, name string, block *lang.Block, scope *lang.Scope) error {
	tc, ok := lang.ToolchainFromScope(scope)
	if !ok {
		return fmt.Errorf("toolchain %q: no toolchain payload on scope", name)
	}
	label := core.NewLabel(e.declaringDir(origin), name)
	n := e.getItem(label, origin, core.Label{}, false)
	if n.Item.Kind != core.ItemKindUnresolved {
		return fmt.Errorf("toolchain %s already declared", label)
	}
	n.Item.SetToolchain(tc)
	e.graph.MarkDefined(label)
	return nil
}

// SetDefaultToolchain records label (in its canonical "dir :: name" textual
// form) as the default toolchain.
func (e *Engine) SetDefaultToolchain(origin lang.Node, labelStr string, scope *lang.Scope) error {
	label, err := core.ParseLabel(labelStr)
	if err != nil {
		return fmt.Errorf("set_default_toolchain: %w", err)
	}
	return e.toolchains.SetDefaultToolchain(label, origin.Describe())
}

// ReadFile returns the contents of a plain (non-build) file, resolved per
// spec.md §6's path rules relative to origin's declaring file.
func (e *Engine) ReadFile(origin lang.Node, name string) (string, error) {
	resolved := e.resolvePath(origin, name)
	f, err := e.tree.Load(resolved)
	if err != nil {
		return "", err
	}
	return string(f.Content), nil
}

// WriteFile stages data to be written to name once Run completes
// successfully; FlushWrites performs the actual writes.
func (e *Engine) WriteFile(origin lang.Node, name, data string) error {
	resolved := e.resolvePath(origin, name)
	e.writesMu.Lock()
	e.writes[resolved] = data
	e.writesMu.Unlock()
	return nil
}

// ExecScript runs an external script, resolved relative to origin's
// declaring file and this engine's real filesystem root, and returns its
// standard output.
func (e *Engine) ExecScript(origin lang.Node, name string, args []string) (string, error) {
	resolved := e.resolvePath(origin, name)
	cmd := core.ExecCommand(joinRoot(e.rootDir, resolved), args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("exec_script %s: %w", resolved, err)
	}
	return string(out), nil
}

// AddGenDependency registers an extra file whose change should invalidate
// generated output, per spec.md §4.7's gen-dependency set.
func (e *Engine) AddGenDependency(path string) { e.sched.AddGenDependency(path) }

// Log funnels a log line through the scheduler's single log pump so
// concurrent workers never interleave output.
func (e *Engine) Log(verb, message string) { e.sched.Log(verb, message) }
