package errors

import (
	"errors"
	"fmt"
)

// Error kinds for classification of generation failures

// ErrorKind represents different categories of generation errors
type ErrorKind string

const (
	ErrorKindInputFormat ErrorKind = "input_format"
	ErrorKindPermissions ErrorKind = "user_permissions"
	ErrorKindIO          ErrorKind = "io"
	ErrorKindNetwork     ErrorKind = "network"
	ErrorKindProcess     ErrorKind = "process"
	ErrorKindLogging     ErrorKind = "logging"
)

// GenerationError represents a structured error with kind and context
type GenerationError struct {
	Kind    ErrorKind
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific kind
func (e *GenerationError) Is(target error) bool {
	if other, ok := target.(*GenerationError); ok {
		return e.Kind == other.Kind
	}
	return false
}

// WithContext adds context information to the error
func (e *GenerationError) WithContext(key string, value interface{}) *GenerationError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewGenerationError creates a new generation error
func NewGenerationError(kind ErrorKind, message string, cause error) *GenerationError {
	return &GenerationError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

func NewInputFormatError(message string, cause error) *GenerationError {
	return NewGenerationError(ErrorKindInputFormat, message, cause)
}

func NewPermissionsError(message string, cause error) *GenerationError {
	return NewGenerationError(ErrorKindPermissions, message, cause)
}

// NewIOError wraps a file-system failure; the OS-level cause stays reachable
// through Unwrap
func NewIOError(message string, cause error) *GenerationError {
	return NewGenerationError(ErrorKindIO, message, cause)
}

func NewNetworkError(message string, cause error) *GenerationError {
	return NewGenerationError(ErrorKindNetwork, message, cause)
}

func NewProcessError(message string, cause error) *GenerationError {
	return NewGenerationError(ErrorKindProcess, message, cause)
}

func NewLoggingError(message string, cause error) *GenerationError {
	return NewGenerationError(ErrorKindLogging, message, cause)
}

// Error checking helpers
func IsInputFormatError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Kind == ErrorKindInputFormat
}

func IsPermissionsError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Kind == ErrorKindPermissions
}

func IsIOError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Kind == ErrorKindIO
}

func IsNetworkError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Kind == ErrorKindNetwork
}

func IsProcessError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Kind == ErrorKindProcess
}

func IsLoggingError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Kind == ErrorKindLogging
}

// KindOf extracts the kind of a generation error; foreign errors report
// as io since they only ever originate from OS calls
func KindOf(err error) ErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return ErrorKindIO
}
