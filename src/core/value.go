package core

import "fmt"

// Kind tags the variant held by a Value.
type Kind int

// The value kinds. Deliberately does not include dict, float, or lambda:
// the language this module evaluates is simpler than a general scripting
// language (see lang.Interpreter).
const (
	KindNone Kind = iota
	KindInteger
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Origin identifies the AST node that produced a Value, so diagnostics can
// blame the right source location. It is implemented by the lang package's
// AST node types (and by *SourceFile), but
// core cannot import lang (lang depends on core for Value), so it is
// threaded through as an opaque interface.
type Origin interface {
	// Describe returns a human-readable location, e.g. "foo/BUILD:12:3".
	Describe() string
}

// A Value is the tagged union every expression in the language evaluates
// to: none, an integer, a string, or a list of Values.
type Value struct {
	Kind    Kind
	Int     int64
	Str     string
	List    []Value
	Origin  Origin
}

// None is the canonical none value.
var None = Value{Kind: KindNone}

// Integer wraps an int64 as a Value.
func Integer(i int64) Value { return Value{Kind: KindInteger, Int: i} }

// String wraps a string as a Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// List wraps a slice of Values as a list Value. The slice is not copied;
// callers must not mutate it after passing it in.
func List(vs []Value) Value { return Value{Kind: KindList, List: vs} }

// WithOrigin returns a copy of v carrying the given origin, for error
// blaming. The zero value of Origin is nil, meaning "no known origin"
// (e.g. a value synthesised by a built-in rather than parsed from source).
func (v Value) WithOrigin(o Origin) Value {
	v.Origin = o
	return v
}

// Truthy follows the language's truthiness rule: none and the empty
// string/list/zero integer are false, everything else is true.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNone:
		return false
	case KindInteger:
		return v.Int != 0
	case KindString:
		return v.Str != ""
	case KindList:
		return len(v.List) != 0
	default:
		return false
	}
}

// Equal reports whether two Values are the same kind and content. Origin is
// ignored: two values computed the same way from different source
// locations are still equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNone:
		return true
	case KindInteger:
		return v.Int == o.Int
	case KindString:
		return v.Str == o.Str
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNone:
		return "<none>"
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindList:
		s := "["
		for i, e := range v.List {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + "]"
	default:
		return "<invalid>"
	}
}
