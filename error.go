package peg

import (
	"errors"
	"fmt"
)

// Common compilation errors.
var (
	// ErrNoRules indicates an empty grammar.
	ErrNoRules = errors.New("grammar has no rules")

	// ErrUndefinedStart indicates the start rule is not defined.
	ErrUndefinedStart = errors.New("undefined start rule")

	// ErrUndefinedRule indicates a rule reference names an undefined rule.
	ErrUndefinedRule = errors.New("undefined rule reference")

	// ErrDuplicateRule indicates two rules share a name.
	ErrDuplicateRule = errors.New("duplicate rule name")

	// ErrBadRepeat indicates repetition bounds with min > max or min < 0.
	ErrBadRepeat = errors.New("invalid repetition bounds")

	// ErrBadCount indicates a negative byte count.
	ErrBadCount = errors.New("negative byte count")

	// ErrTooComplex indicates a pattern tree too deep to compile, which
	// usually means a cyclic node structure was built by mistake.
	ErrTooComplex = errors.New("pattern too complex")
)

// CompileError wraps compilation failures with the rule being compiled.
// Compile never produces a partial Program alongside a CompileError.
type CompileError struct {
	Rule string
	Err  error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("grammar compilation failed in rule %q: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("grammar compilation failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}
