// Package errors defines the typed failures surfaced by deployline outside the
// domain layer. Every type unwraps to its cause so errors.Is and errors.As see
// through it.
package errors

import (
	"fmt"
)

// cause carries the wrapped error shared by the types below.
type cause struct {
	Err error
}

// Unwrap exposes the underlying error.
func (c cause) Unwrap() error { return c.Err }

func (c cause) message() string {
	if c.Err == nil {
		return "unknown failure"
	}
	return c.Err.Error()
}

// ParseError reports a configuration file that could not be decoded. Line is
// zero when the decoder gave no position.
type ParseError struct {
	cause
	Path string
	Line int
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	return &ParseError{cause: cause{Err: err}, Path: path, Line: line}
}

func (e *ParseError) Error() string {
	location := e.Path
	if e.Line > 0 {
		location = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	return fmt.Sprintf("parse error: %s: %s", location, e.message())
}

// ValidationError reports a decoded document that breaks a schema rule.
type ValidationError struct {
	cause
	Field   string
	Message string
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{cause: cause{Err: err}, Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// ConfigurationError reports a missing orchestrator input. It is fatal and
// never retried.
type ConfigurationError struct {
	Input   string
	Message string
}

// NewConfigurationError constructs a ConfigurationError.
func NewConfigurationError(input, message string) error {
	return &ConfigurationError{Input: input, Message: message}
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// ExecutionError is returned by built-in hooks. Hook is "<plugin>.<stage>".
type ExecutionError struct {
	cause
	Hook string
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(hook string, err error) error {
	return &ExecutionError{cause: cause{Err: err}, Hook: hook}
}

func (e *ExecutionError) Error() string {
	if e.Hook == "" {
		return "execution error: " + e.message()
	}
	return fmt.Sprintf("execution error in hook %s: %s", e.Hook, e.message())
}

// PluginError marks a malformed contributor or a failing plugin factory.
type PluginError struct {
	cause
	Plugin string
}

// NewPluginError constructs a PluginError for the named contributor.
func NewPluginError(plugin string, err error) error {
	return &PluginError{cause: cause{Err: err}, Plugin: plugin}
}

func (e *PluginError) Error() string {
	if e.Plugin == "" {
		return "plugin error: " + e.message()
	}
	return fmt.Sprintf("plugin error [%s]: %s", e.Plugin, e.message())
}
