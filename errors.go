// Package gudaflow structured error types for better error handling
package gudaflow

import (
	"errors"
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Memory errors
	ErrTypeMemory ErrorType = iota
	// Invalid argument errors
	ErrTypeInvalidArg
	// Execution errors
	ErrTypeExecution
	// Numerical errors
	ErrTypeNumerical
	// Device errors
	ErrTypeDevice
	// Precondition errors: a kernel or transfer touched a region that is
	// not present on the device
	ErrTypePrecondition
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Op      string      // Operation that failed
	Message string      // Human-readable message
	Err     error       // Underlying error if any
	Context interface{} // Additional context
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Context != nil {
		msg = fmt.Sprintf("%s [%v]", msg, e.Context)
	}
	if e.Err != nil {
		return fmt.Sprintf("gudaflow %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, msg, e.Err)
	}
	return fmt.Sprintf("gudaflow %s error in %s: %s",
		e.Type.String(), e.Op, msg)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same type and message,
// so errors.Is matches the sentinels below whichever operation raised them.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeNumerical:
		return "Numerical"
	case ErrTypeDevice:
		return "Device"
	case ErrTypePrecondition:
		return "Precondition"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &Error{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewPreconditionError creates a precondition error. context carries the
// offending buffer name.
func NewPreconditionError(op string, message string, context interface{}) error {
	return &Error{
		Type:    ErrTypePrecondition,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// Common pre-defined errors

var (
	// ErrOutOfMemory indicates memory allocation failure
	ErrOutOfMemory = NewMemoryError("Malloc", "out of memory", nil)

	// ErrInvalidSize indicates invalid size parameter
	ErrInvalidSize = NewInvalidArgError("Malloc", "size must be positive")

	// ErrDoubleFree indicates double free attempt
	ErrDoubleFree = NewMemoryError("Free", "double free detected", nil)

	// ErrUnknownQueue indicates an enqueue against a queue the context does not own
	ErrUnknownQueue = NewInvalidArgError("Enqueue", "unknown queue")

	// ErrNotPresent indicates a device access to an absent region
	ErrNotPresent = NewPreconditionError("Region", "region not present on device", nil)

	// ErrContextDestroyed indicates use of a context after Destroy
	ErrContextDestroyed = &Error{Type: ErrTypeDevice, Op: "Context", Message: "context destroyed"}
)

// IsMemoryError checks if an error is a memory error
func IsMemoryError(err error) bool {
	return hasType(err, ErrTypeMemory)
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	return hasType(err, ErrTypeInvalidArg)
}

// IsExecutionError checks if an error is an execution error
func IsExecutionError(err error) bool {
	return hasType(err, ErrTypeExecution)
}

// IsPreconditionError checks if an error is a precondition error
func IsPreconditionError(err error) bool {
	return hasType(err, ErrTypePrecondition)
}

func hasType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}
