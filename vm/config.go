package vm

// Default stack bounds. Deep enough for any reasonable grammar, small enough
// to turn runaway recursion into an immediate error instead of unbounded
// memory growth.
const (
	DefaultMaxCallDepth      = 1024
	DefaultMaxBacktrackDepth = 1024
)

// Config bounds the resources of a single match call.
type Config struct {
	// MaxCallDepth limits the return stack. Exceeding it is a fatal
	// ErrStackOverflow, distinct from ordinary match failure.
	MaxCallDepth int

	// MaxBacktrackDepth limits the choice-point stack, same policy as
	// MaxCallDepth. The capture stack is intentionally unbounded; it grows
	// at most in proportion to the subject.
	MaxBacktrackDepth int

	// GuardEmptyLoop makes a repetition iteration that consumes no input a
	// fatal ErrEmptyLoop instead of looping forever. Callers that need the
	// unguarded behavior of grammars known to terminate can disable it.
	GuardEmptyLoop bool
}

// DefaultConfig returns the configuration used by Compile.
func DefaultConfig() Config {
	return Config{
		MaxCallDepth:      DefaultMaxCallDepth,
		MaxBacktrackDepth: DefaultMaxBacktrackDepth,
		GuardEmptyLoop:    true,
	}
}

func (c Config) validate() error {
	if c.MaxCallDepth <= 0 || c.MaxBacktrackDepth <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
