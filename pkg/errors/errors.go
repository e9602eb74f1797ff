// Package errors provides typed error handling with rich context for Quaero.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies Quaero errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates rate limiting was triggered.
	CodeRateLimit ErrorCode = "RATE_LIMITED"

	// CodeSearchError indicates a web search provider error.
	CodeSearchError ErrorCode = "SEARCH_ERROR"

	// CodeLLMError indicates an LLM provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeMemoryError indicates a semantic memory error.
	CodeMemoryError ErrorCode = "MEMORY_ERROR"

	// CodeValidationError indicates fact validation failed.
	CodeValidationError ErrorCode = "VALIDATION_ERROR"

	// CodeContextLost indicates context was cancelled mid-operation.
	CodeContextLost ErrorCode = "CONTEXT_LOST"
)

// QuaeroError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type QuaeroError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *QuaeroError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *QuaeroError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *QuaeroError) MarshalJSON() ([]byte, error) {
	payload := map[string]interface{}{
		"message":     e.Error(),
		"code":        string(e.Code),
		"recoverable": e.Recoverable,
	}
	if e.Err != nil {
		payload["error"] = e.Err.Error()
	}
	if len(e.Context) > 0 {
		payload["context"] = e.Context
	}
	return json.Marshal(payload)
}

// New creates a new QuaeroError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *QuaeroError {
	return &QuaeroError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *QuaeroError) WithContext(key string, value interface{}) *QuaeroError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *QuaeroError) WithRecoverable(recoverable bool) *QuaeroError {
	e.Recoverable = recoverable
	return e
}

// AsQuaeroError attempts to convert an error to a QuaeroError.
// Returns the error as QuaeroError if it is one, or wraps it otherwise.
func AsQuaeroError(err error) *QuaeroError {
	if err == nil {
		return nil
	}
	var qe *QuaeroError
	if stderrors.As(err, &qe) {
		return qe
	}
	return New(CodeInternal, "wrapped error", err)
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeInvalidInput:
		return 400
	case CodeTimeout:
		return 408
	case CodeRateLimit:
		return 429
	default:
		return 500
	}
}
