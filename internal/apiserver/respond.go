// Package apiserver is the thin HTTP surface of the gateway, wiring
// chi routes directly onto the query planner, the classification
// queue, and the taxonomy/health endpoints with no business logic of
// its own -- that lives in internal/search, internal/sync, and their
// peers.
package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/agentauri/gateway/internal/errs"
)

// ErrorCode is the closed set of codes the error envelope may carry.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "VALIDATION_ERROR"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

type errorEnvelope struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Code      ErrorCode `json:"code"`
	RequestID string    `json:"requestId"`
}

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, successEnvelope{Success: true, Data: data})
}

func respondCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, successEnvelope{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, requestID string, status int, code ErrorCode, err error) {
	writeJSON(w, status, errorEnvelope{
		Success:   false,
		Error:     err.Error(),
		Code:      code,
		RequestID: requestID,
	})
}

// respondFromErr maps the errs taxonomy onto an HTTP status and
// envelope code.
func respondFromErr(w http.ResponseWriter, requestID string, err error) {
	switch {
	case errs.Is(err, errs.Validation):
		respondError(w, requestID, http.StatusBadRequest, CodeValidation, err)
	case errs.Is(err, errs.NotFound):
		respondError(w, requestID, http.StatusNotFound, CodeNotFound, err)
	case errs.Is(err, errs.UpstreamTransient):
		respondError(w, requestID, http.StatusServiceUnavailable, CodeServiceUnavailable, err)
	default:
		respondError(w, requestID, http.StatusInternalServerError, CodeInternalError, err)
	}
}
