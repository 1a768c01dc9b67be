// Package lang implements the lexer, parser, scope and tree-walking
// evaluator (over core's Value model) for the build-description language
// this module's loader feeds
// source files through. It mirrors the role of the teacher's
// src/parse/asp package, but implements a deliberately simpler,
// brace-delimited, non-indentation-sensitive grammar with a flat,
// right-associative expression grammar (no operator precedence) per
// SPEC_FULL.md's design notes.
package lang

import (
	"fmt"

	"github.com/meshbuild/bg/src/core"
)

// Position identifies one point in a source file.
type Position struct {
	FileID core.FileID
	Offset int
	Line   int
	Column int
}

// Range spans from Start to End within a single file, used for
// diagnostics that need to underline more than a point.
type Range struct {
	Start, End Position
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// describer resolves a Position back to a file path for diagnostics; it is
// satisfied by *core.SourceTree.
type describer interface {
	File(core.FileID) *core.SourceFile
}

// Describe renders "path:line:col" given a tree to resolve the file name
// from.
func (p Position) Describe(tree describer) string {
	if f := tree.File(p.FileID); f != nil {
		return fmt.Sprintf("%s:%d:%d", f.Path, p.Line, p.Column)
	}
	return p.String()
}

// byteOffsetOfLine returns the byte offset of the start of the given
// 1-indexed line within text. Exposed for constructing multi-line
// diagnostics, per spec.md §4.1's byte_offset_of_line helper.
func byteOffsetOfLine(text []byte, line int) int {
	if line <= 1 {
		return 0
	}
	seen := 1
	for i, b := range text {
		if b == '\n' {
			seen++
			if seen == line {
				return i + 1
			}
		}
	}
	return len(text)
}
