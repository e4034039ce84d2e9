// Package errors provides the typed error taxonomy shared by the pricing engine.
// Every error produced by the engine is permanent for its input: nothing here is retryable.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeInput indicates invalid caller input (duration, timestamps, seeds)
	TypeInput Type = "INPUT_ERROR"

	// TypeParsing indicates a malformed document (seed files, request bodies)
	TypeParsing Type = "PARSING_ERROR"

	// TypeConfig indicates an incorrect parameter combination: a required rate row does not exist
	TypeConfig Type = "CONFIG_ERROR"

	// TypeNotFound indicates a rate row lookup miss
	TypeNotFound Type = "NOT_FOUND"

	// TypeStorage indicates a persistence failure in the rate store
	TypeStorage Type = "STORAGE_ERROR"

	// TypeInternal indicates a broken engine invariant
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type           `json:"type"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Context map[string]any `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the caller may retry the same input.
// Only storage failures qualify; engine errors are fixed by correcting data or input.
func (e *Error) Retryable() bool {
	return e.Type == TypeStorage
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...any) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{Type: errType, Message: message, Cause: cause}
}

// TypeOf returns the type of the first *Error in err's chain, or TypeInternal.
func TypeOf(err error) Type {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return TypeInternal
}

// IsType checks if any error in the chain is of a specific type
func IsType(err error, t Type) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// Input creates an input error
func Input(format string, args ...any) *Error {
	return Newf(TypeInput, format, args...)
}

// Parsing creates a parsing error
func Parsing(message string, cause error) *Error {
	return Wrap(TypeParsing, message, cause)
}

// Config creates an incorrect-parameter-combination error
func Config(format string, args ...any) *Error {
	return Newf(TypeConfig, format, args...)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Storage creates a storage error
func Storage(message string, cause error) *Error {
	return Wrap(TypeStorage, message, cause)
}

// Internal creates an internal error
func Internal(format string, args ...any) *Error {
	return Newf(TypeInternal, format, args...)
}
