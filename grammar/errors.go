package grammar

import "fmt"

// SyntaxError is raised by the SGL frontend on a malformed token or
// production. It carries the line number where the problem was found.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("syntax error: %s", e.Msg)
}

// NewSyntaxError is a convenience constructor matching fmt.Errorf's
// formatting.
func NewSyntaxError(line int, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// GrammarError covers left recursion, a missing rule, an arity mismatch in a
// parameterized rule, applying arguments to a terminal, or a type error
// during string interpolation. It aborts the compile.
type GrammarError struct {
	Msg string
}

func (e *GrammarError) Error() string { return "grammar error: " + e.Msg }

// NewGrammarError is a convenience constructor matching fmt.Errorf's
// formatting.
func NewGrammarError(format string, args ...interface{}) *GrammarError {
	return &GrammarError{Msg: fmt.Sprintf(format, args...)}
}

// InternalError marks an assertion-class failure: a branch arm constructed
// with both an empty production and an empty follow set (impossible if the
// grammar's invariants hold), or an emitter name collision between two
// conflicting argument tuples. These indicate the generator is buggy, not
// that the input is.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }

// NewInternalError is a convenience constructor matching fmt.Errorf's
// formatting.
func NewInternalError(format string, args ...interface{}) *InternalError {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

// UnsupportedError marks use of a grammar feature the generator does not
// implement.
type UnsupportedError struct {
	Line int
	Msg  string
}

func (e *UnsupportedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("unsupported at line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("unsupported: %s", e.Msg)
}
