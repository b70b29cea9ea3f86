package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig indicates invalid engine configuration.
var ErrInvalidConfig = errors.New("invalid engine configuration")

// RuleExecutionError indicates a rule that could not be executed, such as
// one with an invalid format pattern. It never escapes evaluation: the rule
// is reported as a critical result instead.
type RuleExecutionError struct {
	RuleID string
	Cause  error
}

// Error returns the error message.
func (e *RuleExecutionError) Error() string {
	return fmt.Sprintf("rule %s: execution error: %v", e.RuleID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RuleExecutionError) Unwrap() error {
	return e.Cause
}

// PatternError indicates a regular expression that failed to compile.
type PatternError struct {
	Pattern string
	Cause   error
}

// Error returns the error message.
func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *PatternError) Unwrap() error {
	return e.Cause
}
