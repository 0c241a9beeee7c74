package engine

import (
	"errors"
	"fmt"
)

// ConfigError reports an engine that cannot be constructed.
//
// Config errors include:
//   - Invalid geometry: zero rows or columns
//   - Missing collaborator: nil Layers or Device
//   - Invalid table: a rule references a layer beyond MaxLayers
//
// Once constructed the engine has no error paths; every runtime failure is
// expressed as a masked event.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Rule is the offending table index for INVALID_TABLE, otherwise -1.
	Rule int
}

// ConfigErrorCode categorizes construction errors.
type ConfigErrorCode string

const (
	ErrCodeInvalidGeometry     ConfigErrorCode = "INVALID_GEOMETRY"
	ErrCodeMissingCollaborator ConfigErrorCode = "MISSING_COLLABORATOR"
	ErrCodeInvalidTable        ConfigErrorCode = "INVALID_TABLE"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Rule >= 0 {
		return fmt.Sprintf("%s: %s (rule=%d)", e.Code, e.Message, e.Rule)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError reports whether err wraps a ConfigError with the given code.
// An empty code matches any ConfigError.
func IsConfigError(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return code == "" || ce.Code == code
	}
	return false
}

func newConfigError(code ConfigErrorCode, rule int, format string, args ...any) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Rule:    rule,
	}
}
