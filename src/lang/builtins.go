package lang

import (
	"github.com/meshbuild/bg/src/core"
)

// Flavour distinguishes how the evaluator handles a builtin's trailing
// block argument, per spec.md §4.5's table.
type Flavour int

const (
	NoBlock Flavour = iota
	GenericBlock
	ExecutedBlock
)

// Builtin is one registered native function.
type Builtin struct {
	Name    string
	Flavour Flavour
	Call    func(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value
}

// propertyKey is a private type so properties.SetProperty keys used by this
// package's builtins can't collide with keys set by callers.
type propertyKey string

const toolchainPropertyKey propertyKey = "toolchain"

func registerBuiltins(i *Interpreter) {
	reg := func(name string, flavour Flavour, fn func(*Interpreter, *Expr, []core.Value, *Scope) core.Value) {
		i.builtins[name] = &Builtin{Name: name, Flavour: flavour, Call: fn}
	}

	reg("config", ExecutedBlock, builtinConfig)
	reg("toolchain", GenericBlock, builtinToolchain)
	reg("tool", NoBlock, builtinTool)
	reg("template", GenericBlock, builtinTemplate)
	reg("set_defaults", ExecutedBlock, builtinSetDefaults)
	reg("set_default_toolchain", NoBlock, builtinSetDefaultToolchain)
	reg("set_sources_assignment_filter", NoBlock, builtinSetSourcesFilter)
	reg("declare_args", ExecutedBlock, builtinDeclareArgs)
	reg("assert", NoBlock, builtinAssert)
	reg("print", NoBlock, builtinPrint)
	reg("import", NoBlock, builtinImport)
	reg("read_file", NoBlock, builtinReadFile)
	reg("write_file", NoBlock, builtinWriteFile)
	reg("exec_script", NoBlock, builtinExecScript)
	reg("process_file_template", NoBlock, builtinProcessFileTemplate)

	for name, outputType := range targetTypes {
		outputType := outputType
		reg(name, ExecutedBlock, func(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
			return i.declareTarget(call, outputType, args, scope)
		})
	}
	reg("component", ExecutedBlock, func(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
		return i.declareTarget(call, core.OutputUnknown, args, scope)
	})
}

var targetTypes = map[string]core.OutputType{
	"executable":     core.OutputExecutable,
	"shared_library": core.OutputSharedLibrary,
	"static_library": core.OutputStaticLibrary,
	"group":          core.OutputGroup,
	"copy":           core.OutputCopyFiles,
	"custom":         core.OutputCustom,
}

func (i *Interpreter) evalCall(e *Expr, scope *Scope) core.Value {
	b, ok := i.builtins[e.Ident]
	if !ok {
		if t, ok := scope.Template(e.Ident); ok {
			return i.invokeTemplate(e, t, scope)
		}
		fail(e.Pos, "unknown function %q", e.Ident)
	}
	if b.Flavour == NoBlock && e.Block != nil {
		fail(e.Pos, "%q does not take a block", e.Ident)
	}
	args := make([]core.Value, len(e.Args))
	for idx := range e.Args {
		args[idx] = i.evalExpr(&e.Args[idx], scope)
	}
	return b.Call(i, e, args, scope)
}

// component is resolved by inspecting the global component_mode variable,
// which must be "shared_library" or "static_library", per spec.md §4.5.
func (i *Interpreter) resolveComponentMode(call *Expr, scope *Scope) core.OutputType {
	v, ok := scope.Get("component_mode", true)
	if !ok || v.Kind != core.KindString {
		fail(call.Pos, "component() requires a string component_mode variable to be set")
	}
	switch v.Str {
	case "shared_library":
		return core.OutputSharedLibrary
	case "static_library":
		return core.OutputStaticLibrary
	default:
		fail(call.Pos, "component_mode must be shared_library or static_library, got %q", v.Str)
	}
	panic("unreachable")
}

// requireNotImportOrConfig enforces the common pre-condition shared by
// declarations: they fail if evaluated while processing_import is set, and
// (other than declare_args) while processing_build_config is set.
func requireNotImportOrConfig(call *Expr, scope *Scope, allowDuringBuildConfig bool) {
	if scope.HasMode(ModeProcessingImport) {
		fail(call.Pos, "%q cannot be called from an imported file", call.Ident)
	}
	if !allowDuringBuildConfig && scope.HasMode(ModeProcessingBuildConfig) {
		fail(call.Pos, "%q cannot be called while processing the build config", call.Ident)
	}
}

// declareTarget implements the target declaration mechanics of spec.md
// §4.5: pre-populate target_defaults, bind target_name, run the block, then
// read the populated scope into a Target payload via the host.
func (i *Interpreter) declareTarget(call *Expr, outputType core.OutputType, args []core.Value, scope *Scope) core.Value {
	requireNotImportOrConfig(call, scope, false)
	if outputType == core.OutputUnknown {
		outputType = i.resolveComponentMode(call, scope)
	}
	if len(args) != 1 || args[0].Kind != core.KindString {
		fail(call.Pos, "%s() requires a single string name argument", call.Ident)
	}
	child := scope.Child()
	if defaults, ok := scope.Defaults(call.Ident); ok {
		if err := Merge(defaults, child); err != nil {
			fail(call.Pos, "applying target_defaults(%q): %s", call.Ident, err)
		}
	}
	child.Set("target_name", args[0], call.Pos)
	child.MarkUsed("target_name")
	if call.Block != nil {
		// checkUnused is deferred: the generator below reads every known
		// field name out of child, which is what "uses" them. Running the
		// leaving-scope check here would flag every target's sources/deps
		// as unused before the generator gets a chance to read them.
		i.EvalBlock(call.Block, child, false)
	}
	markTargetFieldsUsed(child)
	i.checkUnused(child)
	label, err := i.host.DeclareTarget(call, outputType, child)
	if err != nil {
		fail(call.Pos, "%s", err)
	}
	return core.String(label.String())
}

// knownTargetFields are the variable names the target generator reads out
// of a target's populated scope; reading them counts as "use" for the
// unused-variable check, mirroring the real generator's field-by-field
// extraction.
var knownTargetFields = []string{
	"sources", "data", "deps", "data_deps", "configs",
	"all_dependent_configs", "direct_dependent_configs",
	"includes", "defines", "cflags", "cflags_c", "cflags_cc",
	"cflags_objc", "cflags_objcc", "ldflags",
	"script", "args", "outputs", "dest_dir",
}

func markTargetFieldsUsed(scope *Scope) {
	for _, name := range knownTargetFields {
		scope.MarkUsed(name)
	}
}

var knownConfigFields = []string{
	"includes", "defines", "cflags", "cflags_c", "cflags_cc",
	"cflags_objc", "cflags_objcc", "ldflags",
}

func markConfigFieldsUsed(scope *Scope) {
	for _, name := range knownConfigFields {
		scope.MarkUsed(name)
	}
}

func builtinConfig(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	if len(args) != 1 || args[0].Kind != core.KindString {
		fail(call.Pos, "config() requires a single string name argument")
	}
	child := scope.Child()
	if call.Block != nil {
		i.EvalBlock(call.Block, child, false)
	}
	markConfigFieldsUsed(child)
	label, err := i.host.DeclareConfig(call, args[0].Str, child)
	if err != nil {
		fail(call.Pos, "%s", err)
	}
	return core.String(label.String())
}

// ToolchainFromScope retrieves the *core.Toolchain payload an in-progress
// toolchain() block is building, for a Host.DeclareToolchain
// implementation: the scope passed to DeclareToolchain is the one
// builtinToolchain attached it to, and Property also finds it from any
// descendant by walking up the containing chain.
func ToolchainFromScope(scope *Scope) (*core.Toolchain, bool) {
	v, ok := scope.Property(toolchainPropertyKey)
	if !ok {
		return nil, false
	}
	tc, ok := v.(*core.Toolchain)
	return tc, ok
}

func builtinToolchain(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	requireNotImportOrConfig(call, scope, false)
	if len(args) != 1 || args[0].Kind != core.KindString {
		fail(call.Pos, "toolchain() requires a single string name argument")
	}
	child := scope.Child()
	child.SetProperty(toolchainPropertyKey, &core.Toolchain{})
	if call.Block == nil {
		fail(call.Pos, "toolchain() requires a block")
	}
	i.EvalBlock(call.Block, child, true)
	if err := i.host.DeclareToolchain(call, args[0].Str, call.Block, child); err != nil {
		fail(call.Pos, "%s", err)
	}
	return core.None
}

var toolNameToKind = map[string]core.ToolKind{
	"cc": core.ToolCC, "cxx": core.ToolCXX, "objc": core.ToolObjC,
	"objcxx": core.ToolObjCXX, "asm": core.ToolAsm, "alink": core.ToolALink,
	"solink": core.ToolSoLink, "link": core.ToolLink, "stamp": core.ToolStamp,
	"copy": core.ToolCopy,
}

func builtinTool(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	tcv, ok := scope.Property(toolchainPropertyKey)
	if !ok {
		fail(call.Pos, "tool() may only be called inside a toolchain() block")
	}
	tc := tcv.(*core.Toolchain)
	if len(args) != 1 || args[0].Kind != core.KindString {
		fail(call.Pos, "tool() requires a single string name argument")
	}
	kind, ok := toolNameToKind[args[0].Str]
	if !ok {
		fail(call.Pos, "unknown tool %q", args[0].Str)
	}
	tc.SetTool(kind, core.Tool{})
	return core.None
}

func builtinTemplate(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	requireNotImportOrConfig(call, scope, false)
	if len(args) != 1 || args[0].Kind != core.KindString {
		fail(call.Pos, "template() requires a single string name argument")
	}
	if call.Block == nil {
		fail(call.Pos, "template() requires a block")
	}
	scope.SetTemplate(args[0].Str, &TemplateDef{Name: args[0].Str, Body: call.Block})
	return core.None
}

// invokeTemplate runs the call-site block first (if present), then the
// template body, in the same fresh child scope, per spec.md §4.4's
// two-stage template evaluation. target_name is pre-populated and
// pre-marked used.
func (i *Interpreter) invokeTemplate(call *Expr, t *TemplateDef, scope *Scope) core.Value {
	if len(call.Args) != 1 || call.Args[0].Kind != ExprLiteralString {
		fail(call.Pos, "template %q requires a single string name argument", t.Name)
	}
	child := scope.Child()
	child.Set("target_name", core.String(call.Args[0].Str), call.Pos)
	child.MarkUsed("target_name")
	if call.Block != nil {
		i.EvalBlock(call.Block, child, false)
	}
	i.EvalBlock(t.Body, child, true)
	return core.None
}

func builtinSetDefaults(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	requireNotImportOrConfig(call, scope, true)
	if len(args) != 1 || args[0].Kind != core.KindString {
		fail(call.Pos, "set_defaults() requires a single string target-type argument")
	}
	child := scope.Child()
	if call.Block != nil {
		i.EvalBlock(call.Block, child, true)
	}
	scope.SetDefaults(args[0].Str, child)
	return core.None
}

func builtinSetDefaultToolchain(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	if !scope.HasMode(ModeProcessingBuildConfig) {
		fail(call.Pos, "set_default_toolchain() may only be called while processing the build config")
	}
	if len(args) != 1 || args[0].Kind != core.KindString {
		fail(call.Pos, "set_default_toolchain() requires a single string label argument")
	}
	if !scope.HasMode(ModeProcessingDefaultBuildConfig) {
		return core.None // no-op for non-default toolchains, per spec.md §4.9
	}
	if err := i.host.SetDefaultToolchain(call, args[0].Str, scope); err != nil {
		fail(call.Pos, "%s", err)
	}
	return core.None
}

func builtinSetSourcesFilter(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	if len(args) != 1 || args[0].Kind != core.KindList {
		fail(call.Pos, "set_sources_assignment_filter() requires a single list argument")
	}
	patterns := make([]string, len(args[0].List))
	for idx, v := range args[0].List {
		if v.Kind != core.KindString {
			fail(call.Pos, "set_sources_assignment_filter() patterns must be strings")
		}
		patterns[idx] = v.Str
	}
	scope.SetSourcesFilter(patterns)
	return core.None
}

var declaredArgsOnce = propertyKey("declare_args_done")

func builtinDeclareArgs(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	if !scope.HasMode(ModeProcessingBuildConfig) {
		fail(call.Pos, "declare_args() may only be called while processing the build config")
	}
	if _, ok := scope.Property(declaredArgsOnce); ok {
		fail(call.Pos, "declare_args() may only be called once per build config evaluation")
	}
	scope.SetProperty(declaredArgsOnce, true)
	if call.Block != nil {
		i.EvalBlock(call.Block, scope, false)
	}
	return core.None
}

func builtinAssert(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	if len(args) == 0 {
		fail(call.Pos, "assert() requires at least one argument")
	}
	if !args[0].Truthy() {
		msg := "assertion failed"
		if len(args) > 1 && args[1].Kind == core.KindString {
			msg = args[1].Str
		}
		fail(call.Pos, "%s", msg)
	}
	return core.None
}

func builtinPrint(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	msg := ""
	for idx, v := range args {
		if idx > 0 {
			msg += " "
		}
		msg += v.String()
	}
	i.host.Log("print", msg)
	return core.None
}

func builtinImport(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	if len(args) != 1 || args[0].Kind != core.KindString {
		fail(call.Pos, "import() requires a single string file argument")
	}
	imported, err := i.host.Import(call, args[0].Str)
	if err != nil {
		fail(call.Pos, "%s", err)
	}
	if err := Merge(imported, scope); err != nil {
		fail(call.Pos, "merging import of %q: %s", args[0].Str, err)
	}
	return core.None
}

func builtinReadFile(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	if len(args) < 1 || args[0].Kind != core.KindString {
		fail(call.Pos, "read_file() requires a string name argument")
	}
	content, err := i.host.ReadFile(call, args[0].Str)
	if err != nil {
		fail(call.Pos, "%s", err)
	}
	i.host.AddGenDependency(args[0].Str)
	return core.String(content)
}

func builtinWriteFile(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	if len(args) != 2 || args[0].Kind != core.KindString || args[1].Kind != core.KindString {
		fail(call.Pos, "write_file() requires (name, data) string arguments")
	}
	if err := i.host.WriteFile(call, args[0].Str, args[1].Str); err != nil {
		fail(call.Pos, "%s", err)
	}
	return core.None
}

func builtinExecScript(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	if len(args) < 1 || args[0].Kind != core.KindString {
		fail(call.Pos, "exec_script() requires a string name argument")
	}
	var scriptArgs []string
	if len(args) > 1 && args[1].Kind == core.KindList {
		for _, v := range args[1].List {
			scriptArgs = append(scriptArgs, v.String())
		}
	}
	out, err := i.host.ExecScript(call, args[0].Str, scriptArgs)
	if err != nil {
		fail(call.Pos, "%s", err)
	}
	return core.String(out)
}

func builtinProcessFileTemplate(i *Interpreter, call *Expr, args []core.Value, scope *Scope) core.Value {
	if len(args) != 2 || args[0].Kind != core.KindList || args[1].Kind != core.KindList {
		fail(call.Pos, "process_file_template() requires (sources, patterns) list arguments")
	}
	var out []core.Value
	for _, src := range args[0].List {
		if src.Kind != core.KindString {
			fail(call.Pos, "process_file_template() sources must be strings")
		}
		for _, pat := range args[1].List {
			if pat.Kind != core.KindString {
				fail(call.Pos, "process_file_template() patterns must be strings")
			}
			out = append(out, core.String(substituteFileTemplate(pat.Str, src.Str)))
		}
	}
	return core.List(out)
}
