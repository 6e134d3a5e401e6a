package server

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in the error envelope.
const (
	CodeNoFile          = "NO_FILE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeFileNotFound    = "FILE_NOT_FOUND"
	CodeInvalidSettings = "INVALID_SETTINGS"
	CodeJobNotFound     = "JOB_NOT_FOUND"
	CodeProcessingError = "PROCESSING_ERROR"
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	CodeInternalError   = "INTERNAL_ERROR"
)

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:      code,
		Message:   message,
		RequestID: requestID(r),
	}})
}
