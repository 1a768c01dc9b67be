package lang

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshbuild/bg/src/core"
)

type fakeHost struct {
	targets []string
	logs    []string
}

func (h *fakeHost) Import(origin Node, file string) (*Scope, error) { return NewScope(), nil }

func (h *fakeHost) DeclareTarget(origin Node, outputType core.OutputType, scope *Scope) (core.Label, error) {
	name, _ := scope.Get("target_name", false)
	h.targets = append(h.targets, name.Str)
	return core.NewLabel("//pkg", name.Str), nil
}

func (h *fakeHost) DeclareConfig(origin Node, name string, scope *Scope) (core.Label, error) {
	return core.NewLabel("//pkg", name), nil
}

func (h *fakeHost) DeclareToolchain(origin Node, name string, block *Block, scope *Scope) error {
	return nil
}

func (h *fakeHost) SetDefaultToolchain(origin Node, label string, scope *Scope) error { return nil }

func (h *fakeHost) ReadFile(origin Node, name string) (string, error) { return "", nil }

func (h *fakeHost) WriteFile(origin Node, name, data string) error { return nil }

func (h *fakeHost) ExecScript(origin Node, name string, args []string) (string, error) {
	return "", nil
}

func (h *fakeHost) AddGenDependency(path string) {}

func (h *fakeHost) Log(verb, message string) {
	h.logs = append(h.logs, fmt.Sprintf("%s: %s", verb, message))
}

func evalString(t *testing.T, src string) (*Scope, *Interpreter, *fakeHost) {
	t.Helper()
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte(src)}
	f, err := ParseFile(file)
	require.NoError(t, err)
	host := &fakeHost{}
	interp := NewInterpreter(host)
	scope := NewScope()
	// Treated as an import: these tests read results back via scope.Get
	// after Eval returns, not from within the script itself, so the
	// leaving-scope unused check doesn't apply to them.
	require.NoError(t, interp.Eval(f, scope, true))
	return scope, interp, host
}

func TestEvalIntArithmetic(t *testing.T) {
	scope, _, _ := evalString(t, "x = 1 + 2\ny = x")
	v, ok := scope.Get("y", false)
	require.True(t, ok)
	assert.Equal(t, int64(3), v.Int)
}

func TestEvalListAppend(t *testing.T) {
	scope, _, _ := evalString(t, `x = [1, 2]
x += [3]
y = x`)
	v, ok := scope.Get("y", false)
	require.True(t, ok)
	require.Len(t, v.List, 3)
	assert.Equal(t, int64(3), v.List[2].Int)
}

func TestEvalListRemoval(t *testing.T) {
	scope, _, _ := evalString(t, `x = [1, 2, 3]
x -= [2]
y = x`)
	v, ok := scope.Get("y", false)
	require.True(t, ok)
	require.Len(t, v.List, 2)
}

func TestEvalStringConcat(t *testing.T) {
	scope, _, _ := evalString(t, `x = "a" + "b"
y = x`)
	v, _ := scope.Get("y", false)
	assert.Equal(t, "ab", v.Str)
}

func TestEvalLogicalShortCircuit(t *testing.T) {
	scope, _, _ := evalString(t, `x = 0 && 1
y = x`)
	v, _ := scope.Get("y", false)
	assert.Equal(t, int64(0), v.Int)
}

func TestEvalUnusedVariableError(t *testing.T) {
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte("if (1) { x = 1 }")}
	f, err := ParseFile(file)
	require.NoError(t, err)
	host := &fakeHost{}
	interp := NewInterpreter(host)
	err = interp.Eval(f, NewScope(), true)
	assert.Error(t, err)
}

func TestEvalOverwriteUnusedVariableError(t *testing.T) {
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte("x = 1\nx = 2\ny = x")}
	f, err := ParseFile(file)
	require.NoError(t, err)
	interp := NewInterpreter(&fakeHost{})
	err = interp.Eval(f, NewScope(), true)
	assert.Error(t, err)
}

func TestEvalOverwriteUsedListIsAllowed(t *testing.T) {
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte(`x = ["a.cc"]
print(x[0])
x = ["b.cc"]
y = x`)}
	f, err := ParseFile(file)
	require.NoError(t, err)
	interp := NewInterpreter(&fakeHost{})
	err = interp.Eval(f, NewScope(), true)
	assert.NoError(t, err)
}

func TestEvalOverwriteUnusedListSuggestsAppend(t *testing.T) {
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte(`x = ["a.cc"]
x = ["b.cc"]
y = x`)}
	f, err := ParseFile(file)
	require.NoError(t, err)
	interp := NewInterpreter(&fakeHost{})
	err = interp.Eval(f, NewScope(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean +=?")
}

func TestEvalTopLevelUnusedVariableError(t *testing.T) {
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte("x = 1")}
	f, err := ParseFile(file)
	require.NoError(t, err)
	interp := NewInterpreter(&fakeHost{})
	err = interp.Eval(f, NewScope(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"x"`)
}

func TestEvalImportedFileSkipsTopLevelUnusedCheck(t *testing.T) {
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte("x = 1")}
	f, err := ParseFile(file)
	require.NoError(t, err)
	interp := NewInterpreter(&fakeHost{})
	err = interp.Eval(f, NewScope(), true)
	assert.NoError(t, err)
}

func TestEvalTargetDeclaration(t *testing.T) {
	_, _, host := evalString(t, `executable("foo") { sources = ["a.cc"] }`)
	assert.Equal(t, []string{"foo"}, host.targets)
}

func TestEvalRelationalRequiresIntegers(t *testing.T) {
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte(`x = "a" < "b"`)}
	f, err := ParseFile(file)
	require.NoError(t, err)
	interp := NewInterpreter(&fakeHost{})
	err = interp.Eval(f, NewScope(), true)
	assert.Error(t, err)
}
