package config

import "fmt"

// ValidationError reports a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRequired fails when value is empty.
func ValidateRequired(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidatePort fails unless 1 <= port <= 65535.
func ValidatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{Field: field, Message: "must be between 1 and 65535"}
	}
	return nil
}

// ValidateLogLevel accepts the level names understood by the logger package.
func ValidateLogLevel(field, level string) error {
	switch level {
	case "", "debug", "info", "warn", "warning", "error", "fatal":
		return nil
	default:
		return &ValidationError{Field: field, Message: "must be one of: debug, info, warn, error, fatal"}
	}
}

// Validate validates the database settings.
func (c *DatabaseConfig) Validate(prefix string) error {
	if err := ValidateRequired(prefix+".host", c.Host); err != nil {
		return err
	}
	if err := ValidatePort(prefix+".port", c.Port); err != nil {
		return err
	}
	if err := ValidateRequired(prefix+".user", c.User); err != nil {
		return err
	}
	return ValidateRequired(prefix+".database", c.Database)
}
