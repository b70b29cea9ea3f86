package cli

import (
	"errors"
	"fmt"
	"strings"

	"mercator-hq/compliance/pkg/rules"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitUsage     = 2
	ExitThreshold = 3
)

// ConfigError represents an invalid flag or configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ThresholdError is returned when an evaluated report is at or beyond the
// level passed to --fail-on.
type ThresholdError struct {
	Subject   string
	Level     rules.Level
	Threshold rules.Level
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%s is %s (fail-on %s)", e.Subject, e.Level, e.Threshold)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ParseFailOn validates a --fail-on flag value. An empty value or "none"
// disables the check.
func ParseFailOn(s string) (rules.Level, error) {
	switch l := rules.Level(strings.ToLower(s)); {
	case s == "" || strings.EqualFold(s, "none"):
		return "", nil
	case l.ValidSeverity():
		return l, nil
	default:
		return "", NewConfigError("fail-on", fmt.Sprintf("invalid level %q (want warning, violation, critical or none)", s))
	}
}

// CheckThreshold returns a *ThresholdError when level is at or worse than
// threshold. An empty threshold never fails.
func CheckThreshold(subject string, level, threshold rules.Level) error {
	if threshold == "" || level.Rank() < threshold.Rank() {
		return nil
	}
	return &ThresholdError{Subject: subject, Level: level, Threshold: threshold}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var thresholdErr *ThresholdError
	if errors.As(err, &thresholdErr) {
		return ExitThreshold
	}
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return ExitUsage
	}
	return ExitError
}
