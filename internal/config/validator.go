package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/richinsley/mailbox"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config key (e.g., "queue.max_messages")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.Session != "" && c.Session != AutoSession {
		if _, err := mailbox.SessionNames(c.Session); err != nil {
			errs = append(errs, ValidationError{
				Field:   "session",
				Value:   c.Session,
				Message: "must start with a letter or digit and use only letters, digits, '.', '_' or '-' (at most 64)",
			})
		}
	}

	if _, err := mailbox.ParseCodec(c.Codec); err != nil {
		errs = append(errs, ValidationError{
			Field:   "codec",
			Value:   c.Codec,
			Message: "must be one of: text, envelope",
		})
	}

	if _, err := mailbox.ParseLinePolicy(c.LinePolicy); err != nil {
		errs = append(errs, ValidationError{
			Field:   "line_policy",
			Value:   c.LinePolicy,
			Message: "must be one of: split, truncate, reject",
		})
	}

	if c.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "timeout",
			Value:   c.Timeout,
			Message: "must be zero (wait forever) or positive",
		})
	}

	if c.Queue.MaxMessages < 1 {
		errs = append(errs, ValidationError{
			Field:   "queue.max_messages",
			Value:   c.Queue.MaxMessages,
			Message: "must be at least 1",
		})
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: "must be one of: " + strings.Join(ValidLogLevels(), ", "),
		})
	}

	return errs
}
