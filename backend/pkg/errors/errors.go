package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents storage faults in the graph or record store
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeNotFound represents a missing request, group, post or user
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation represents rejected input or a rejected creation
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors, including unknown edge types
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

func (e *BaseError) base() *BaseError { return e }

// Graph Errors

// ErrGraphWriteFailed is returned when an edge or record write fails although its
// preconditions held. It signals a storage fault and is never retried by the core.
type ErrGraphWriteFailed struct {
	*BaseError
	Operation string
	Edge      string
}

func NewGraphWriteFailed(operation, edge string, err error) *ErrGraphWriteFailed {
	return &ErrGraphWriteFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("%s failed for edge %s", operation, edge), err),
		Operation: operation,
		Edge:      edge,
	}
}

// ErrGraphConnectionFailed is returned when Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a read against the store fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

// ErrUnknownEdgeType is returned when an operation names an edge type that was never registered.
type ErrUnknownEdgeType struct {
	*BaseError
	Name string
}

func NewUnknownEdgeType(name string) *ErrUnknownEdgeType {
	return &ErrUnknownEdgeType{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("unknown edge type: %q", name), nil),
		Name:      name,
	}
}

// Not Found

// ErrNotFound is returned when a referenced entity does not exist
type ErrNotFound struct {
	*BaseError
	Entity string
	ID     string
}

func NewNotFound(entity, id string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", entity, id), nil),
		Entity:    entity,
		ID:        id,
	}
}

// Validation Errors

// ErrValidationFailed is returned when input is rejected before any state changes
type ErrValidationFailed struct {
	*BaseError
	Field  string
	Reason string
	// Conflict marks input that clashes with existing state, such as a taken
	// slug or a request that is already pending.
	Conflict bool
}

func NewValidationFailed(field, reason string) *ErrValidationFailed {
	return &ErrValidationFailed{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// NewValidationConflict rejects input that clashes with existing state.
func NewValidationConflict(field, reason string) *ErrValidationFailed {
	err := NewValidationFailed(field, reason)
	err.Conflict = true
	return err
}

// IsConflict reports whether err is a validation error caused by a clash
// with existing state.
func IsConflict(err error) bool {
	var v *ErrValidationFailed
	return stderrors.As(err, &v) && v.Conflict
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), nil),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type typed interface {
	base() *BaseError
}

// TypeOf returns the category of the first BaseError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var t typed
	if stderrors.As(err, &t) {
		return t.base().Type
	}
	return ""
}

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if t, ok := err.(typed); ok && t.base().Type == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err signals a missing entity.
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsValidation reports whether err is a rejected input.
func IsValidation(err error) bool {
	return IsErrorType(err, ErrorTypeValidation)
}

// IsGraphFault reports whether err is a storage fault that callers should surface as an internal error.
func IsGraphFault(err error) bool {
	return IsErrorType(err, ErrorTypeGraph)
}
