package core

import "fmt"

// ErrorCategory groups failures by how they are recovered.
type ErrorCategory string

// ErrorCategory values
const (
	ErrCategoryTransport  ErrorCategory = "transport"  // device or service unreachable
	ErrCategoryParse      ErrorCategory = "parse"      // malformed dump or response
	ErrCategoryResolution ErrorCategory = "resolution" // target element not found
	ErrCategoryConfig     ErrorCategory = "config"     // invalid configuration
)

// ExecutionError is a structured error with category and machine-readable
// code. Public operations translate these into status-tagged results rather
// than letting them escape.
type ExecutionError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of the error with the given cause.
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	ErrDeviceUnreachable = &ExecutionError{
		Category: ErrCategoryTransport,
		Code:     "device_unreachable",
		Message:  "device is not connected",
	}
	ErrDumpFailed = &ExecutionError{
		Category: ErrCategoryTransport,
		Code:     "dump_failed",
		Message:  "accessibility tree dump failed",
	}
	ErrVisionUnavailable = &ExecutionError{
		Category: ErrCategoryTransport,
		Code:     "vision_unavailable",
		Message:  "vision service is unreachable or unhealthy",
	}
	ErrParseFailed = &ExecutionError{
		Category: ErrCategoryParse,
		Code:     "parse_failed",
		Message:  "could not parse extraction payload",
	}
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrTapFailed = &ExecutionError{
		Category: ErrCategoryTransport,
		Code:     "tap_failed",
		Message:  "tap command failed",
	}
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
)
