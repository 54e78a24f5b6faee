package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates insufficient permissions
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Agent runtime errors

var (
	// ErrAgentNotFound indicates the requested agent is not in the catalog
	ErrAgentNotFound = errors.New("agent not found")

	// ErrToolNotFound indicates the requested tool is not in the catalog
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidAgents indicates a handoff between invalid or unrelated agents
	ErrInvalidAgents = errors.New("invalid agents")

	// ErrHandoffDepthExceeded indicates the handoff chain hit the escalation cap
	ErrHandoffDepthExceeded = errors.New("handoff depth exceeded")

	// ErrExecutionTimeout indicates an agent run exceeded its deadline
	ErrExecutionTimeout = errors.New("agent execution timeout")

	// ErrAgentRun indicates the model loop failed before producing an answer
	ErrAgentRun = errors.New("agent run failed")

	// ErrCatalogFrozen indicates registration was attempted after startup
	ErrCatalogFrozen = errors.New("catalog is frozen")
)

// Outcome codes surfaced to the API layer. Every exposed operation maps its
// failure onto one of these.
const (
	CodeValidationError       = "VALIDATION_ERROR"
	CodeAgentNotFound         = "AGENT_NOT_FOUND"
	CodeToolNotFound          = "TOOL_NOT_FOUND"
	CodeAgentError            = "AGENT_ERROR"
	CodeExecutionTimeout      = "EXECUTION_TIMEOUT"
	CodeInvalidAgents         = "INVALID_AGENTS"
	CodeHandoffDepthExceeded  = "HANDOFF_DEPTH_EXCEEDED"
	CodeInternalError         = "INTERNAL_ERROR"
)

// DomainError wraps an error with a stable outcome code
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf maps an error chain to its outcome code. Unknown errors are
// reported as internal so nothing caller-visible leaks from deep failures.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}

	switch {
	case errors.Is(err, ErrAgentNotFound):
		return CodeAgentNotFound
	case errors.Is(err, ErrToolNotFound):
		return CodeToolNotFound
	case errors.Is(err, ErrInvalidAgents):
		return CodeInvalidAgents
	case errors.Is(err, ErrHandoffDepthExceeded):
		return CodeHandoffDepthExceeded
	case errors.Is(err, ErrExecutionTimeout), errors.Is(err, ErrTimeout):
		return CodeExecutionTimeout
	case errors.Is(err, ErrAgentRun):
		return CodeAgentError
	case errors.Is(err, ErrInvalidInput):
		return CodeValidationError
	default:
		return CodeInternalError
	}
}

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap lets callers match validation failures against ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
