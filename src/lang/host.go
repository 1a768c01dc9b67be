package lang

import "github.com/meshbuild/bg/src/core"

// Host is everything the evaluator needs from the layers above it
// (loader, toolchain manager, target manager) to implement the built-in
// functions that reach outside pure expression evaluation. lang defines
// this interface and src/engine implements it, so the dependency runs
// upward (engine -> lang -> core) rather than lang depending on the layers
// above it directly.
type Host interface {
	// Import performs a synchronous load of file (component G's sync_load),
	// returning the root scope produced by evaluating it. origin is used
	// to resolve file's path.
	Import(origin Node, file string) (*Scope, error)

	// DeclareTarget registers a new target item under name with the given
	// output type, to be populated by the caller from the scope the target
	// block ran in. Returns the label assigned.
	DeclareTarget(origin Node, outputType core.OutputType, scope *Scope) (core.Label, error)

	// DeclareConfig registers a new config item named name, with values
	// populated from scope's ConfigValues-shaped bindings.
	DeclareConfig(origin Node, name string, scope *Scope) (core.Label, error)

	// DeclareToolchain registers a new toolchain item named name. The block
	// has already been executed in scope when this is called; scope carries
	// the Toolchain payload that its "tool(...)" calls filled in (see
	// ToolchainFromScope).
	DeclareToolchain(origin Node, name string, block *Block, scope *Scope) error

	// SetDefaultToolchain records label as the default toolchain. The
	// set_default_toolchain built-in only calls it while the default build
	// config is being processed; while a non-default toolchain's build
	// config is processed, the built-in is a no-op.
	SetDefaultToolchain(origin Node, label string, scope *Scope) error

	// ReadFile returns the contents of a plain (non-build) file, for the
	// read_file built-in.
	ReadFile(origin Node, name string) (string, error)

	// WriteFile records data to be written to name. Writes are staged, not
	// performed inline; the engine writes them out only when its caller runs
	// FlushWrites, so a failed evaluation leaves no partial output.
	WriteFile(origin Node, name, data string) error

	// ExecScript runs an external script and returns its output, for the
	// exec_script built-in.
	ExecScript(origin Node, name string, args []string) (string, error)

	// AddGenDependency registers an extra file whose change should
	// invalidate generated output, per spec.md §4.7's gen-dependency set.
	AddGenDependency(path string)

	// Log funnels a log line through the scheduler's main thread so output
	// from concurrent workers isn't interleaved.
	Log(verb, message string)
}
