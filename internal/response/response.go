package response

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"triphub/internal/contextutils"
	"triphub/internal/services"
)

// ===============================
// RESPONSE TYPES
// ===============================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
}

// ErrorDetail carries error information in API responses.
type ErrorDetail struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
}

// ===============================
// WRITER
// ===============================

// Writer serializes service results and errors into the JSON envelope.
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a response writer.
func NewWriter(logger *zap.Logger) *Writer {
	return &Writer{logger: logger}
}

// Success writes a 2xx response with the payload wrapped in the envelope.
func (w *Writer) Success(rw http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.write(rw, r, status, &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: contextutils.GetRequestID(r.Context()),
		Timestamp: time.Now().Unix(),
	})
}

// Error maps a service error onto its HTTP status and writes the envelope.
// Internal errors are masked; everything else passes its message through.
func (w *Writer) Error(rw http.ResponseWriter, r *http.Request, err error) {
	serviceErr := services.GetServiceError(err)

	detail := &ErrorDetail{
		Type:      serviceErr.Type,
		Message:   serviceErr.Message,
		Code:      serviceErr.Code,
		Details:   serviceErr.Details,
		Retryable: serviceErr.Retryable,
	}
	if serviceErr.GetStatusCode() >= http.StatusInternalServerError {
		detail.Message = "an internal error occurred"
		w.logger.Error("Request failed",
			zap.Error(err),
			zap.String("request_id", contextutils.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
		)
	}

	w.write(rw, r, serviceErr.GetStatusCode(), &APIResponse{
		Success:   false,
		Error:     detail,
		RequestID: contextutils.GetRequestID(r.Context()),
		Timestamp: time.Now().Unix(),
	})
}

func (w *Writer) write(rw http.ResponseWriter, r *http.Request, status int, body *APIResponse) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(body); err != nil {
		w.logger.Error("Failed to encode response",
			zap.Error(err),
			zap.String("path", r.URL.Path),
		)
	}
}
