package lang

import (
	"fmt"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/meshbuild/bg/src/core"
)

var log = logging.MustGetLogger("lang")

// Interpreter is a tree-walking evaluator over a parsed File. It is not
// safe for concurrent use against a single Scope chain; the loader creates
// one Interpreter (with a fresh root Scope descendant) per file evaluation.
type Interpreter struct {
	host     Host
	builtins map[string]*Builtin
}

// NewInterpreter creates an Interpreter with the canonical built-in
// function set (see builtins.go) bound to host.
func NewInterpreter(host Host) *Interpreter {
	i := &Interpreter{host: host, builtins: map[string]*Builtin{}}
	registerBuiltins(i)
	return i
}

// Eval runs every statement of f in scope, in order (evaluation within a
// single file is strictly sequential, per spec.md §5's ordering
// guarantees). isImport must be false for a normal build/config file, whose
// own top-level scope is checked for unused variables once f finishes; an
// imported file passes true, deferring that check to the importer's scope.
func (i *Interpreter) Eval(f *File, scope *Scope, isImport bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	for _, stmt := range f.Statements {
		i.evalStatement(&stmt, scope)
	}
	if !isImport {
		i.checkUnused(scope)
	}
	return nil
}

// EvalBlock runs block's statements directly in scope (callers that need a
// fresh child scope create it first), then performs the leaving-scope
// used-variable check if checkUnused is true.
func (i *Interpreter) EvalBlock(block *Block, scope *Scope, checkUnused bool) {
	for idx := range block.Statements {
		i.evalStatement(&block.Statements[idx], scope)
	}
	if checkUnused {
		i.checkUnused(scope)
	}
}

func (i *Interpreter) checkUnused(scope *Scope) {
	for _, u := range scope.UnusedBindings() {
		fail(u.SetAt, "variable %q was set but never used", u.Name)
	}
}

func (i *Interpreter) evalStatement(s *Statement, scope *Scope) {
	switch {
	case s.Assignment != nil:
		i.evalAssignment(s.Assignment, scope)
	case s.If != nil:
		i.evalIf(s.If, scope)
	case s.Block != nil:
		child := scope.Child()
		i.EvalBlock(s.Block, child, true)
	default:
		i.evalExpr(&s.Expr, scope)
	}
}

func (i *Interpreter) evalIf(n *If, scope *Scope) {
	cond := i.evalExpr(&n.Cond, scope)
	if cond.Truthy() {
		child := scope.Child()
		i.EvalBlock(n.Then, child, true)
		return
	}
	if n.ElseIf != nil {
		i.evalIf(n.ElseIf, scope)
	} else if n.Else != nil {
		child := scope.Child()
		i.EvalBlock(n.Else, child, true)
	}
}

func (i *Interpreter) evalAssignment(a *Assignment, scope *Scope) {
	value := i.evalExpr(&a.Value, scope)
	switch a.Op {
	case AssignSet:
		if existing, used, setAt, ok := scope.Existing(a.Name); ok && !used {
			if existing.Kind == core.KindList && len(existing.List) > 0 && value.Kind == core.KindList && len(value.List) > 0 {
				fail(a.Pos, "overwriting non-empty list %q; did you mean +=?", a.Name)
			}
			fail(a.Pos, "overwriting unused variable %q (previously set at %s)", a.Name, setAt)
		}
		i.assign(a.Name, value, a.Pos, scope)
	case AssignAdd:
		existing, _, _, ok := scope.Existing(a.Name)
		if !ok {
			fail(a.Pos, "%q is not defined; += cannot create new variables", a.Name)
		}
		result, err := addValues(existing, value)
		if err != nil {
			fail(a.Pos, "%s", err)
		}
		scope.ClearUsed(a.Name)
		i.assign(a.Name, result, a.Pos, scope)
	case AssignSub:
		existing, _, _, ok := scope.Existing(a.Name)
		if !ok {
			fail(a.Pos, "%q is not defined; -= cannot create new variables", a.Name)
		}
		result, err := subValues(existing, value)
		if err != nil {
			fail(a.Pos, "%s", err)
		}
		scope.ClearUsed(a.Name)
		i.assign(a.Name, result, a.Pos, scope)
	}
}

// assign installs name = value in scope, routing through the sources
// filter if name is "sources".
func (i *Interpreter) assign(name string, value core.Value, pos Position, scope *Scope) {
	if name == "sources" {
		value = applySourcesFilter(value, scope.SourcesFilter())
	}
	scope.Set(name, value, pos)
}

func (i *Interpreter) evalExpr(e *Expr, scope *Scope) core.Value {
	switch e.Kind {
	case ExprLiteralInt:
		return core.Integer(e.Int).WithOrigin(e)
	case ExprLiteralString:
		return core.String(e.Str).WithOrigin(e)
	case ExprIdent:
		v, ok := scope.Get(e.Ident, true)
		if !ok {
			fail(e.Pos, "undefined identifier %q", e.Ident)
		}
		return v
	case ExprList:
		vals := make([]core.Value, len(e.List))
		for idx := range e.List {
			vals[idx] = i.evalExpr(&e.List[idx], scope)
		}
		return core.List(vals).WithOrigin(e)
	case ExprParen:
		return i.evalExpr(e.Inner, scope)
	case ExprUnary:
		operand := i.evalExpr(e.UnaryOperand, scope)
		b := int64(0)
		if !operand.Truthy() {
			b = 1
		}
		return core.Integer(b).WithOrigin(e)
	case ExprAccessor:
		v, ok := scope.Get(e.Ident, true)
		if !ok {
			fail(e.Pos, "undefined identifier %q", e.Ident)
		}
		idx := i.evalExpr(e.Index, scope)
		return i.index(v, idx, e.Pos)
	case ExprBinary:
		return i.evalBinary(e, scope)
	case ExprCall:
		return i.evalCall(e, scope)
	default:
		fail(e.Pos, "unhandled expression kind %d", e.Kind)
	}
	panic("unreachable")
}

func (i *Interpreter) index(v, idx core.Value, pos Position) core.Value {
	if v.Kind != core.KindList {
		fail(pos, "cannot index a %s", v.Kind)
	}
	if idx.Kind != core.KindInteger {
		fail(pos, "list index must be an integer")
	}
	n := int(idx.Int)
	if n < 0 || n >= len(v.List) {
		fail(pos, "list index %d out of range (len %d)", n, len(v.List))
	}
	return v.List[n]
}

func (i *Interpreter) evalBinary(e *Expr, scope *Scope) core.Value {
	left := i.evalExpr(e.Left, scope)
	// && and || short-circuit, consistent with the teacher's Lazy() marking
	// for logical operators even though this grammar has no precedence.
	if e.Op == "&&" {
		if !left.Truthy() {
			return core.Integer(0).WithOrigin(e)
		}
		right := i.evalExpr(e.Right, scope)
		return boolValue(right.Truthy()).WithOrigin(e)
	}
	if e.Op == "||" {
		if left.Truthy() {
			return core.Integer(1).WithOrigin(e)
		}
		right := i.evalExpr(e.Right, scope)
		return boolValue(right.Truthy()).WithOrigin(e)
	}
	right := i.evalExpr(e.Right, scope)
	switch e.Op {
	case "+":
		v, err := addValues(left, right)
		if err != nil {
			fail(e.Pos, "%s", err)
		}
		return v.WithOrigin(e)
	case "-":
		v, err := subValues(left, right)
		if err != nil {
			fail(e.Pos, "%s", err)
		}
		return v.WithOrigin(e)
	case "==":
		return boolValue(left.Equal(right)).WithOrigin(e)
	case "!=":
		return boolValue(!left.Equal(right)).WithOrigin(e)
	case "<", ">", "<=", ">=":
		if left.Kind != core.KindInteger || right.Kind != core.KindInteger {
			fail(e.Pos, "relational operator %s requires integers on both sides", e.Op)
		}
		return boolValue(compareInts(left.Int, right.Int, e.Op)).WithOrigin(e)
	default:
		fail(e.Pos, "unknown operator %q", e.Op)
	}
	panic("unreachable")
}

func compareInts(l, r int64, op string) bool {
	switch op {
	case "<":
		return l < r
	case ">":
		return l > r
	case "<=":
		return l <= r
	case ">=":
		return l >= r
	}
	return false
}

func boolValue(b bool) core.Value {
	if b {
		return core.Integer(1)
	}
	return core.Integer(0)
}

func addValues(l, r core.Value) (core.Value, error) {
	switch {
	case l.Kind == core.KindInteger && r.Kind == core.KindInteger:
		return core.Integer(l.Int + r.Int), nil
	case l.Kind == core.KindString && r.Kind == core.KindString:
		return core.String(l.Str + r.Str), nil
	case l.Kind == core.KindString && r.Kind == core.KindInteger:
		return core.String(l.Str + r.String()), nil
	case l.Kind == core.KindInteger && r.Kind == core.KindString:
		return core.String(l.String() + r.Str), nil
	case l.Kind == core.KindList && r.Kind == core.KindList:
		return core.List(append(append([]core.Value{}, l.List...), r.List...)), nil
	case l.Kind == core.KindList:
		return core.List(append(append([]core.Value{}, l.List...), r)), nil
	default:
		return core.None, fmt.Errorf("cannot add %s and %s", l.Kind, r.Kind)
	}
}

func subValues(l, r core.Value) (core.Value, error) {
	switch {
	case l.Kind == core.KindInteger && r.Kind == core.KindInteger:
		return core.Integer(l.Int - r.Int), nil
	case l.Kind == core.KindList && r.Kind == core.KindList:
		out := append([]core.Value{}, l.List...)
		for _, e := range r.List {
			var err error
			out, err = removeOne(out, e)
			if err != nil {
				return core.None, err
			}
		}
		return core.List(out), nil
	case l.Kind == core.KindList:
		out, err := removeOne(l.List, r)
		if err != nil {
			return core.None, err
		}
		return core.List(out), nil
	default:
		return core.None, fmt.Errorf("cannot subtract %s from %s", r.Kind, l.Kind)
	}
}

// removeOne removes all occurrences of target from list, erroring if none
// is found (spec.md §4.3: "list - element" removes all occurrences; "Item
// not found" if none match).
func removeOne(list []core.Value, target core.Value) ([]core.Value, error) {
	out := make([]core.Value, 0, len(list))
	found := false
	for _, e := range list {
		if e.Equal(target) {
			found = true
			continue
		}
		out = append(out, e)
	}
	if !found {
		return nil, fmt.Errorf("item not found: %s", target)
	}
	return out, nil
}

// applySourcesFilter drops list elements matching any installed filter
// pattern and keeps the rest, per spec.md §4.3's sources-assignment filter.
// Non-list values pass through unfiltered (the filter only applies to the
// list-building rules for "sources").
func applySourcesFilter(v core.Value, patterns []string) core.Value {
	if v.Kind != core.KindList || len(patterns) == 0 {
		return v
	}
	var out []core.Value
	for _, e := range v.List {
		if e.Kind == core.KindString && matchesAny(e.Str, patterns) {
			continue
		}
		out = append(out, e)
	}
	return core.List(out)
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := globMatch(p, s); ok {
			return true
		}
	}
	return false
}
