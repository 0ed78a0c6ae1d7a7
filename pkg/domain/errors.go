package domain

import "errors"

// Common domain errors
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrBodyTooLarge     = errors.New("request body too large")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrConfigInvalid    = errors.New("invalid configuration")
)

// DomainError wraps errors with additional context.
//
//nolint:revive // Name is intentionally verbose to distinguish domain-layer errors
type DomainError struct {
	Err     error
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError builds a DomainError around one of the sentinel errors.
func NewError(err error, code, message string) *DomainError {
	return &DomainError{Err: err, Code: code, Message: message}
}

// ErrorResponse defines the standard JSON error model returned by the HTTP API.
// TraceID carries the current OpenTelemetry trace identifier when available.
type ErrorResponse struct {
	Code    string `json:"code"`               // Machine-readable error code (e.g., INVALID_REQUEST)
	Message string `json:"message"`            // Human-readable message (safe for logs)
	TraceID string `json:"trace_id,omitempty"` // Optional trace/correlation ID
}
