// Package errors provides custom error types for the forgetap system.
// These errors let callers check failure kinds programmatically while
// keeping the context (namespace, URL, file) needed to debug a capture.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As are the standard library functions, re-exported so callers
// need only this package.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the forgetap system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyInstalled indicates a transport wrapper is already in place
	ErrAlreadyInstalled = errors.New("already installed")

	// ErrDisabled indicates that interception is switched off
	ErrDisabled = errors.New("interception disabled")

	// ErrHandlerFailed indicates that a subscriber callback failed
	ErrHandlerFailed = errors.New("handler failed")

	// ErrUpstreamUnavailable indicates that the proxied game server could not be reached
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// HandlerError wraps a failed or panicking subscriber callback.
// Namespace is one of "response", "request", "meta", "raw", "ws" or "ws-raw".
type HandlerError struct {
	Namespace string
	Service   string
	Method    string
	Panic     any
	Err       error
}

// Error implements the error interface
func (e *HandlerError) Error() string {
	target := e.Namespace
	if e.Service != "" || e.Method != "" {
		target = fmt.Sprintf("%s %s.%s", e.Namespace, e.Service, e.Method)
	}
	if e.Panic != nil {
		return fmt.Sprintf("%s handler panicked: %v", target, e.Panic)
	}
	return fmt.Sprintf("%s handler failed: %v", target, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *HandlerError) Is(target error) bool {
	return target == ErrHandlerFailed
}

// NewHandlerError creates a new HandlerError
func NewHandlerError(namespace, service, method string, err error) *HandlerError {
	return &HandlerError{
		Namespace: namespace,
		Service:   service,
		Method:    method,
		Err:       err,
	}
}

// ProxyError represents a failure talking to the upstream game server
type ProxyError struct {
	Upstream   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *ProxyError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("proxy error for %s (status %d): %s", e.Upstream, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("proxy error for %s: %s", e.Upstream, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ProxyError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ProxyError) Is(target error) bool {
	if e.StatusCode == 0 || e.StatusCode >= 500 {
		return target == ErrUpstreamUnavailable
	}
	return false
}

// NewProxyError creates a new ProxyError
func NewProxyError(upstream string, statusCode int, message string) *ProxyError {
	return &ProxyError{
		Upstream:   upstream,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsHandlerError checks if an error came from a subscriber callback
func IsHandlerError(err error) bool {
	return errors.Is(err, ErrHandlerFailed)
}

// IsUpstreamUnavailable checks if an error indicates the game server is unreachable
func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "jsonl", "yaml"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// TimeoutError represents an operation timeout
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Duration != "" {
		return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
	}
	return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
		Message:   message,
	}
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapHandler wraps a callback error as a HandlerError
func WrapHandler(namespace, service, method string, err error) error {
	if err == nil {
		return nil
	}
	return NewHandlerError(namespace, service, method, err)
}

// WrapProxy wraps a transport error as a ProxyError
func WrapProxy(upstream string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &ProxyError{
		Upstream:   upstream,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
