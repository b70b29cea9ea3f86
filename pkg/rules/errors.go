package rules

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRuleNotFound is returned when a lookup by rule ID finds nothing.
var ErrRuleNotFound = errors.New("rule not found")

// ConfigError represents a rule configuration file that could not be used.
// This includes missing files, malformed documents and records failing
// schema validation. The Store recovers from it by loading the default rule set.
type ConfigError struct {
	// Path is the rule file that failed to load
	Path string

	// Message describes the error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rule config %q: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("rule config %q: %s", e.Path, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// IOError represents a failure to write a rule file. It is always returned
// to the caller; the store does not retry.
type IOError struct {
	// Path is the destination that could not be written
	Path string

	// Op is the failed operation ("create", "write", "rename", "encode")
	Op string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("rule file %q: %s failed: %v", e.Path, e.Op, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *IOError) Unwrap() error {
	return e.Cause
}

// ValidationError represents a rule that violates a structural invariant.
type ValidationError struct {
	// RuleID is the offending rule (empty when the ID itself is missing)
	RuleID string

	// Record is the 1-based position of the record in a rule file,
	// or 0 when the rule did not come from a file
	Record int

	// Field is the offending field (e.g., "category", "min_match.min_matches")
	Field string

	// Message describes the violation
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := []string{"validation error"}

	if e.RuleID != "" {
		parts = append(parts, fmt.Sprintf("in rule %q", e.RuleID))
	}
	if e.Record > 0 {
		parts = append(parts, fmt.Sprintf("at rules[%d]", e.Record-1))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field %s", e.Field))
	}

	parts = append(parts, e.Message)

	return strings.Join(parts, " ")
}

// ErrorList collects several validation errors from one rule file.
type ErrorList struct {
	Errors []error
}

// Add appends err to the list. Nil errors are ignored.
func (l *ErrorList) Add(err error) {
	if err != nil {
		l.Errors = append(l.Errors, err)
	}
}

// HasErrors reports whether the list holds any error.
func (l *ErrorList) HasErrors() bool {
	return len(l.Errors) > 0
}

// Error implements the error interface.
func (l *ErrorList) Error() string {
	if len(l.Errors) == 1 {
		return l.Errors[0].Error()
	}
	msgs := make([]string, len(l.Errors))
	for i, err := range l.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors: %s", len(l.Errors), strings.Join(msgs, "; "))
}

// Unwrap returns the collected errors for errors.Is/As traversal.
func (l *ErrorList) Unwrap() []error {
	return l.Errors
}
