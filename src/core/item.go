package core

// OutputType enumerates the target types this module understands. "component"
// is a build-time alias resolved by inspecting a build setting, not a
// distinct stored type; it is resolved away before a Target reaches the
// item graph.
type OutputType int

const (
	OutputUnknown OutputType = iota
	OutputGroup
	OutputExecutable
	OutputSharedLibrary
	OutputStaticLibrary
	OutputCopyFiles
	OutputCustom
)

// ItemKind tags which payload an Item carries. ItemKindUnresolved is the
// zero value: it marks a node created only because something else named
// its label as a dependency, before the label's own declaration has run
// and fixed its real kind.
type ItemKind int

const (
	ItemKindUnresolved ItemKind = iota
	ItemTarget
	ItemConfig
	ItemToolchain
)

// Target is the payload of an ItemKind-Target item.
type Target struct {
	OutputType OutputType

	Sources   []string
	DataFiles []string

	Deps     []Label
	DataDeps []Label
	Configs  []Label

	AllDependentConfigs    []Label
	DirectDependentConfigs []Label
	InheritedLibraries     []Label

	// ConfigValues is this target's own directly-assigned flags, before
	// flattening in any config or inherited library contributions.
	ConfigValues ConfigValues

	// ScriptValues carries the custom-action fields (script path, args,
	// outputs) for OutputCustom targets. Left zero for other output types.
	ScriptValues ScriptValues

	DestDir   string
	Generated bool

	// GeneratorToken is an opaque value the back end attaches to mark which
	// generation pass produced this target; this module only threads it
	// through untouched.
	GeneratorToken string
}

// ScriptValues holds the fields specific to a custom-action target.
type ScriptValues struct {
	Script  string
	Args    []string
	Outputs []string
}

// Toolchain is the payload of an ItemKind-Toolchain item.
type Toolchain struct {
	Tools [numToolKinds]Tool
}

// Tool returns the command slot for the given kind, or its zero value if
// the toolchain never defined it.
func (t *Toolchain) Tool(kind ToolKind) Tool {
	return t.Tools[kind]
}

// SetTool installs a tool definition for the given kind.
func (t *Toolchain) SetTool(kind ToolKind, tool Tool) {
	tool.Name = kind.String()
	t.Tools[kind] = tool
}

// Item is polymorphic over Target, Config, and Toolchain payloads, as
// described by the data model: every item has a Label and a resolved
// callback, plus exactly one of the three payloads below depending on Kind.
type Item struct {
	Label    Label
	Kind     ItemKind
	Target   *Target
	Config   *ConfigValues
	Toolchain *Toolchain

	// Resolved is invoked by the item graph exactly once, when this item's
	// node transitions to the resolved state. It is the target resolver's
	// hook (component L) for targets, and may be nil for configs and
	// toolchains, which have no further processing once resolved.
	Resolved func(*Node)
}

// NewTargetItem creates an Item wrapping a Target payload.
func NewTargetItem(label Label, t *Target) *Item {
	return &Item{Label: label, Kind: ItemTarget, Target: t}
}

// NewConfigItem creates an Item wrapping a ConfigValues payload.
func NewConfigItem(label Label, c *ConfigValues) *Item {
	return &Item{Label: label, Kind: ItemConfig, Config: c}
}

// NewToolchainItem creates an Item wrapping a Toolchain payload.
func NewToolchainItem(label Label, tc *Toolchain) *Item {
	return &Item{Label: label, Kind: ItemToolchain, Toolchain: tc}
}

// NewReferencedItem creates a bare placeholder Item for label whose kind
// isn't known yet: the gap between a dependency reference (e.g. a target's
// deps or configs list) and the label's own declaration running. Exactly
// one of SetTarget, SetConfig or SetToolchain should be called on it once
// the real declaration executes.
func NewReferencedItem(label Label) *Item {
	return &Item{Label: label}
}

// SetTarget fixes a referenced Item's kind to Target and installs t.
func (it *Item) SetTarget(t *Target) {
	it.Kind = ItemTarget
	it.Target = t
}

// SetConfig fixes a referenced Item's kind to Config and installs c.
func (it *Item) SetConfig(c *ConfigValues) {
	it.Kind = ItemConfig
	it.Config = c
}

// SetToolchain fixes a referenced Item's kind to Toolchain and installs tc.
func (it *Item) SetToolchain(tc *Toolchain) {
	it.Kind = ItemToolchain
	it.Toolchain = tc
}
