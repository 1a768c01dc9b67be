package core

// ConfigValues holds the compiler/linker flag lists that a config item
// contributes, or that a target assigns directly. The target resolver does
// not merge them; it propagates config labels only. All fields are plain
// string lists;
// includes are directories, the rest are literal flags.
type ConfigValues struct {
	Includes  []string
	Defines   []string
	CFlags    []string
	CFlagsC   []string
	CFlagsCC  []string
	CFlagsObjC  []string
	CFlagsObjCC []string
	LDFlags   []string
}

// Append concatenates other onto c in place, field by field. Order matters:
// flags accumulated earlier in the flattening walk must appear earlier on
// the generated command line.
func (c *ConfigValues) Append(other ConfigValues) {
	c.Includes = append(c.Includes, other.Includes...)
	c.Defines = append(c.Defines, other.Defines...)
	c.CFlags = append(c.CFlags, other.CFlags...)
	c.CFlagsC = append(c.CFlagsC, other.CFlagsC...)
	c.CFlagsCC = append(c.CFlagsCC, other.CFlagsCC...)
	c.CFlagsObjC = append(c.CFlagsObjC, other.CFlagsObjC...)
	c.CFlagsObjCC = append(c.CFlagsObjCC, other.CFlagsObjCC...)
	c.LDFlags = append(c.LDFlags, other.LDFlags...)
}

// Clone makes a deep copy so flattening a shared config into many targets
// can't let one target's later mutation leak into another's.
func (c ConfigValues) Clone() ConfigValues {
	var out ConfigValues
	out.Append(c)
	return out
}

// Tool is one toolchain command slot, e.g. "cc" or "solink".
type Tool struct {
	Name           string
	Command        string
	Depfile        string
	Deps           string
	Description    string
	Pool           string
	Restat         bool
	RspFile        string
	RspFileContent string
}

// ToolKind enumerates the fixed set of tool slots a Toolchain item carries.
type ToolKind int

const (
	ToolCC ToolKind = iota
	ToolCXX
	ToolObjC
	ToolObjCXX
	ToolAsm
	ToolALink
	ToolSoLink
	ToolLink
	ToolStamp
	ToolCopy
	numToolKinds
)

var toolKindNames = [numToolKinds]string{
	ToolCC: "cc", ToolCXX: "cxx", ToolObjC: "objc", ToolObjCXX: "objcxx",
	ToolAsm: "asm", ToolALink: "alink", ToolSoLink: "solink", ToolLink: "link",
	ToolStamp: "stamp", ToolCopy: "copy",
}

func (k ToolKind) String() string { return toolKindNames[k] }
