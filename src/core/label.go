package core

import (
	"fmt"
	"strings"
)

// NullToolchain is the sentinel toolchain name used for a Label before the
// default toolchain for its directory is known. Labels are re-keyed once the
// toolchain manager resolves the real default (mirrors the teacher's
// "unqualified label gets its subrepo's default toolchain" bootstrap, see
// build_label.go, generalised to toolchains rather than subrepos).
const NullToolchain = ""

// A Label uniquely identifies an item: a target, a config, or a toolchain.
// Its string form is `dir :: name (toolchain_dir :: toolchain_name)`, e.g.
// `//foo/bar :: baz (//build/toolchain :: clang)`.
type Label struct {
	Dir          string
	Name         string
	ToolchainDir string
	ToolchainName string
}

// NewLabel builds a Label in the given directory's default toolchain
// (NullToolchain), to be re-keyed once that default is known.
func NewLabel(dir, name string) Label {
	return Label{Dir: dir, Name: name}
}

// WithToolchain returns a copy of l qualified with the given toolchain.
func (l Label) WithToolchain(toolchainDir, toolchainName string) Label {
	l.ToolchainDir = toolchainDir
	l.ToolchainName = toolchainName
	return l
}

// IsNullToolchain reports whether l has not yet been qualified with a
// concrete toolchain.
func (l Label) IsNullToolchain() bool {
	return l.ToolchainName == NullToolchain
}

// String renders the canonical textual form of the label.
func (l Label) String() string {
	var b strings.Builder
	b.WriteString(l.Dir)
	b.WriteString(" :: ")
	b.WriteString(l.Name)
	if !l.IsNullToolchain() {
		b.WriteString(" (")
		b.WriteString(l.ToolchainDir)
		b.WriteString(" :: ")
		b.WriteString(l.ToolchainName)
		b.WriteString(")")
	}
	return b.String()
}

// ParseLabel parses a label in its canonical textual form. The engine uses
// it for the label strings in deps and configs lists and for
// set_default_toolchain's argument.
func ParseLabel(s string) (Label, error) {
	s = strings.TrimSpace(s)
	toolchain := ""
	if idx := strings.Index(s, "("); idx >= 0 {
		if !strings.HasSuffix(s, ")") {
			return Label{}, fmt.Errorf("malformed label %q: unterminated toolchain qualifier", s)
		}
		toolchain = strings.TrimSpace(s[idx+1 : len(s)-1])
		s = strings.TrimSpace(s[:idx])
	}
	parts := strings.SplitN(s, "::", 2)
	if len(parts) != 2 {
		return Label{}, fmt.Errorf("malformed label %q: expected \"dir :: name\"", s)
	}
	lbl := Label{Dir: strings.TrimSpace(parts[0]), Name: strings.TrimSpace(parts[1])}
	if toolchain != "" {
		tparts := strings.SplitN(toolchain, "::", 2)
		if len(tparts) != 2 {
			return Label{}, fmt.Errorf("malformed label %q: expected toolchain \"dir :: name\"", s)
		}
		lbl.ToolchainDir = strings.TrimSpace(tparts[0])
		lbl.ToolchainName = strings.TrimSpace(tparts[1])
	}
	return lbl, nil
}
