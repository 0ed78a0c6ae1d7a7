package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/polisai/sourcemark/pkg/domain"
)

// statusFor maps domain errors to HTTP status codes and machine-readable codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE"
	case errors.Is(err, domain.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "REQUEST_CANCELLED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// writeError writes a JSON ErrorResponse. DomainError messages are passed through;
// anything else gets a generic message.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := statusFor(err)

	message := http.StatusText(status)
	var de *domain.DomainError
	if errors.As(err, &de) {
		if de.Code != "" {
			code = de.Code
		}
		message = de.Error()
	}

	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		traceID = sc.TraceID().String()
	}

	if status >= http.StatusInternalServerError {
		s.requestLog(ctx).Error("Request failed", "error", err)
	}

	s.writeJSON(w, status, domain.ErrorResponse{Code: code, Message: message, TraceID: traceID})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
