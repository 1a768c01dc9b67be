package lang

import (
	"fmt"
	"strings"
)

// ANSI formatting codes, reused verbatim for diagnostic rendering so output
// matches the rest of this module's tooling.
const (
	reset     = "\033[0m"
	boldRed   = "\033[31;1m"
	boldWhite = "\033[37;1m"
	red       = "\033[31m"
	yellow    = "\033[33m"
)

// Diagnostic is an error carrying a position and an optional stack of
// enclosing positions, e.g. a parse error inside a template body inside an
// import chain. Mirrors the teacher's errorStack, generalised to also carry
// an optional secondary Range (e.g. "matching opener is here").
type Diagnostic struct {
	Stack     []Position
	Secondary *Range
	err       error
}

// fail panics with a Diagnostic; used throughout the lexer/parser/evaluator
// for error paths that unwind through many levels of recursive descent.
func fail(pos Position, format string, args ...interface{}) {
	panic(AddStackFrame(pos, fmt.Errorf(format, args...)))
}

// AddStackFrame appends pos as a new frame onto err's Diagnostic (creating
// one if err isn't already a Diagnostic), skipping the push if pos repeats
// the innermost frame already recorded.
func AddStackFrame(pos Position, err interface{}) error {
	diag, ok := err.(*Diagnostic)
	if !ok {
		if e, ok := err.(error); ok {
			diag = &Diagnostic{err: e}
		} else {
			diag = &Diagnostic{err: fmt.Errorf("%v", err)}
		}
	} else if n := len(diag.Stack) - 1; n >= 0 && diag.Stack[n] == pos {
		return diag
	}
	diag.Stack = append(diag.Stack, pos)
	return diag
}

// WithSecondary attaches a secondary range to a Diagnostic (e.g. to point
// at a matching opening brace), for errors that name two distinct
// locations.
func WithSecondary(err error, r Range) error {
	if diag, ok := err.(*Diagnostic); ok {
		diag.Secondary = &r
	}
	return err
}

// Error implements the builtin error interface.
func (d *Diagnostic) Error() string {
	if len(d.Stack) > 1 {
		return d.message() + "\n" + d.trace()
	}
	return d.message()
}

func (d *Diagnostic) message() string {
	pos := ""
	if len(d.Stack) > 0 {
		pos = d.Stack[len(d.Stack)-1].String() + ": "
	}
	return pos + d.err.Error()
}

func (d *Diagnostic) trace() string {
	lines := make([]string, len(d.Stack))
	for i, p := range d.Stack {
		lines[i] = fmt.Sprintf("  at %s", p)
	}
	return strings.Join(lines, "\n")
}

// Render returns a coloured rendering of err, following the teacher's
// errors.go ANSI scheme: the message in bold red, the stack trace in bold
// white, and a secondary range (if any) in yellow.
func Render(err error) string {
	diag, ok := err.(*Diagnostic)
	if !ok {
		return err.Error()
	}
	var sb strings.Builder
	sb.WriteString(boldRed)
	sb.WriteString(diag.message())
	sb.WriteString(reset)
	if len(diag.Stack) > 1 {
		sb.WriteString("\n")
		sb.WriteString(boldWhite)
		sb.WriteString(diag.trace())
		sb.WriteString(reset)
	}
	if diag.Secondary != nil {
		sb.WriteString("\n")
		sb.WriteString(yellow)
		sb.WriteString(fmt.Sprintf("  matching location: %s", diag.Secondary.Start))
		sb.WriteString(reset)
	}
	return sb.String()
}
