package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Captain-Sangam/KubePeek/k8s"
	"github.com/google/uuid"
)

// Error codes
const (
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeTimeout            = "TIMEOUT"
)

// ErrorResponse is the body of every failed API request that has no
// operation-specific envelope.
type ErrorResponse struct {
	Code      string         `json:"code" yaml:"code"`
	Message   string         `json:"message" yaml:"message"`
	Details   map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	RequestID string         `json:"requestId" yaml:"requestId"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Retryable bool           `json:"retryable" yaml:"retryable"`
}

// WriteError writes an ErrorResponse carrying the request ID.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code, message string, retryable bool, details map[string]any) {

	requestID, _ := r.Context().Value(contextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	RespondJSON(w, statusCode, ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	})
}

// writeAggregationError maps a failed aggregation to a response.
func writeAggregationError(w http.ResponseWriter, r *http.Request, cluster string, err error) {
	details := map[string]any{"cluster": cluster}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, r, http.StatusGatewayTimeout, ErrCodeTimeout,
			"Request timed out while querying the cluster", true, details)
	case errors.Is(err, k8s.ErrNoUsableContext):
		WriteError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			err.Error(), true, details)
	default:
		WriteError(w, r, http.StatusInternalServerError, ErrCodeInternalError,
			err.Error(), true, details)
	}
}
