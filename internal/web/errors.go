package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode)
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is written as JSON

import (
	"context"
	"errors"
	"net/http"

	gojson "github.com/goccy/go-json"

	"github.com/Fillereine/MathE/internal/core"
	"github.com/Fillereine/MathE/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and writes the mapped user message.
// A statusCode of 0 derives the status from the error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)
	if statusCode == 0 {
		statusCode = statusFor(err, userMsg)
	}

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	respondErrorJSON(w, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	gojson.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status for an error by its user message code.
func statusFor(err error, msg core.UserMessage) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	switch msg.Code {
	case "FILE001":
		return http.StatusRequestEntityTooLarge
	case "FILE002":
		return http.StatusUnsupportedMediaType
	case "FILE003", "FILE005", "PARSE001", "CLEAN001":
		return http.StatusUnprocessableEntity
	case "JOB001":
		return http.StatusServiceUnavailable
	case "REQ002":
		return http.StatusGatewayTimeout
	case "RATE001":
		return http.StatusTooManyRequests
	case "COL001":
		return http.StatusNotFound
	case "ERR000":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
