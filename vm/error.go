// Package vm executes compiled grammar programs against subject strings.
//
// A Program is an immutable, 0-indexed sequence of instructions plus a
// name-to-address symbol table. Matching allocates all mutable state fresh per
// call, so a single Program may be matched concurrently from multiple
// goroutines against independent subjects.
package vm

import (
	"errors"
	"fmt"
)

// Errors that abort a match or reject a program.
var (
	// ErrStackOverflow indicates the return or backtrack stack exceeded its
	// configured bound. This signals a grammar defect, such as runaway
	// recursion, not an unmatched input.
	ErrStackOverflow = errors.New("stack depth limit exceeded")

	// ErrEmptyLoop indicates a repetition body matched the empty string,
	// which would loop forever. Raised only when Config.GuardEmptyLoop is set.
	ErrEmptyLoop = errors.New("repetition matched the empty string")

	// ErrLabel indicates a user-authored error label was reached.
	ErrLabel = errors.New("error label reached")

	// ErrCaptureParse indicates a typed capture's text is not a valid number.
	ErrCaptureParse = errors.New("captured text is not a valid number")

	// ErrUnknownAction indicates an action capture closed with no callback
	// registered under its id.
	ErrUnknownAction = errors.New("no action registered for capture")

	// ErrBadCapture indicates the capture stack was not well-nested at
	// reduction time.
	ErrBadCapture = errors.New("malformed capture nesting")

	// ErrBadAddress indicates an instruction address outside the program.
	ErrBadAddress = errors.New("instruction address out of range")

	// ErrBadOpcode indicates an instruction with an unknown opcode.
	ErrBadOpcode = errors.New("unknown opcode")

	// ErrInvalidConfig indicates a non-positive stack bound.
	ErrInvalidConfig = errors.New("invalid VM configuration")
)

// MatchError is a fatal parse error. It aborts the match immediately,
// bypassing all pending backtrack entries, and is never converted into an
// ordinary failed MatchResult.
type MatchError struct {
	// Msg is the user-authored label message, when Err is ErrLabel.
	Msg string

	// Offset is the subject index at the time the error triggered.
	Offset int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *MatchError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Msg)
	}
	return fmt.Sprintf("match aborted at offset %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *MatchError) Unwrap() error {
	return e.Err
}
