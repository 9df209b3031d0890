package config

import "strings"

// ConfigError names the configuration key that failed validation. Allowed lists
// the accepted values when the set is closed.
//
//nolint:revive // config.ConfigError reads better than config.Error at call sites
type ConfigError struct {
	Field   string
	Message string
	Allowed []string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid config ")
	b.WriteString(e.Field)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Allowed) > 0 {
		b.WriteString(" (allowed: ")
		b.WriteString(strings.Join(e.Allowed, ", "))
		b.WriteByte(')')
	}
	return b.String()
}

// NewInvalidFieldError reports a value outside allowed.
func NewInvalidFieldError(field, message string, allowed []string) *ConfigError {
	return &ConfigError{Field: field, Message: message, Allowed: allowed}
}

// NewValidationError reports a value that breaks a rule other than membership.
func NewValidationError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}
