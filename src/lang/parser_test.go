package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshbuild/bg/src/core"
)

func parseString(t *testing.T, src string) *File {
	t.Helper()
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte(src)}
	f, err := ParseFile(file)
	require.NoError(t, err)
	return f
}

func TestParserAssignment(t *testing.T) {
	f := parseString(t, `x = 1`)
	require.Len(t, f.Statements, 1)
	a := f.Statements[0].Assignment
	require.NotNil(t, a)
	assert.Equal(t, "x", a.Name)
	assert.Equal(t, AssignSet, a.Op)
	assert.Equal(t, int64(1), a.Value.Int)
}

func TestParserFlatRightAssociativeExpression(t *testing.T) {
	// "a + b - c" must parse as "a + (b - c)", not "(a + b) - c": no
	// operator precedence, purely right-associative.
	f := parseString(t, `x = a + b - c`)
	val := f.Statements[0].Assignment.Value
	require.Equal(t, ExprBinary, val.Kind)
	assert.Equal(t, "+", val.Op)
	assert.Equal(t, ExprIdent, val.Left.Kind)
	assert.Equal(t, "a", val.Left.Ident)
	require.Equal(t, ExprBinary, val.Right.Kind)
	assert.Equal(t, "-", val.Right.Op)
}

func TestParserCallWithTrailingBlockSameLine(t *testing.T) {
	f := parseString(t, `executable("foo") { sources = ["a.cc"] }`)
	require.Len(t, f.Statements, 1)
	call := f.Statements[0].Expr
	require.Equal(t, ExprCall, call.Kind)
	assert.Equal(t, "executable", call.Ident)
	require.NotNil(t, call.Block)
}

func TestParserCallBlockMustBeOnSameLine(t *testing.T) {
	f := parseString(t, "f(\"x\")\n{ y = 1 }")
	// The block is a separate statement, not attached to the call, since it
	// starts on a different line than the closing paren.
	require.Len(t, f.Statements, 2)
	assert.Equal(t, ExprCall, f.Statements[0].Expr.Kind)
	assert.Nil(t, f.Statements[0].Expr.Block)
	assert.NotNil(t, f.Statements[1].Block)
}

func TestParserAccessorSameLine(t *testing.T) {
	f := parseString(t, `x = a[0]`)
	val := f.Statements[0].Assignment.Value
	assert.Equal(t, ExprAccessor, val.Kind)
}

func TestParserIfElse(t *testing.T) {
	f := parseString(t, `if (a) { x = 1 } else { x = 2 }`)
	require.Len(t, f.Statements, 1)
	ifNode := f.Statements[0].If
	require.NotNil(t, ifNode)
	require.NotNil(t, ifNode.Then)
	require.NotNil(t, ifNode.Else)
}

func TestParserBareIdentifierStatementIsError(t *testing.T) {
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte(`x`)}
	_, err := ParseFile(file)
	assert.Error(t, err)
}

func TestParserList(t *testing.T) {
	f := parseString(t, `x = [1, 2, 3]`)
	val := f.Statements[0].Assignment.Value
	require.Equal(t, ExprList, val.Kind)
	assert.Len(t, val.List, 3)
}

func TestParserCompoundAssignment(t *testing.T) {
	f := parseString(t, `x += [1]`)
	a := f.Statements[0].Assignment
	assert.Equal(t, AssignAdd, a.Op)
}
