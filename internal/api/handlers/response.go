package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/markdave123-py/pdfchat/internal/core/session"
	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
	"github.com/markdave123-py/pdfchat/internal/services"
)

type apiResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type errorResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ErrorCode string    `json:"error_code"`
	Timestamp time.Time `json:"timestamp"`
}

var statusByKind = map[string]int{
	"SESSION_NOT_FOUND":     http.StatusNotFound,
	"DOCUMENT_NOT_FOUND":    http.StatusNotFound,
	"SESSION_EXPIRED":       http.StatusGone,
	"DUPLICATE_FILENAME":    http.StatusConflict,
	"FILE_TOO_LARGE":        http.StatusRequestEntityTooLarge,
	"INVALID_FILE_TYPE":     http.StatusBadRequest,
	"NO_DOCUMENT_LOADED":    http.StatusBadRequest,
	"EMPTY_MESSAGE":         http.StatusBadRequest,
	"EXTRACTION_FAILED":     http.StatusUnprocessableEntity,
	"TOKEN_BUDGET_EXCEEDED": http.StatusUnprocessableEntity,
	"COMPLETION_FAILED":     http.StatusBadGateway,
	"EXTRACTION_TIMEOUT":    http.StatusGatewayTimeout,
	"COMPLETION_TIMEOUT":    http.StatusGatewayTimeout,
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, apiResponse{Success: true, Message: message, Data: data, Timestamp: time.Now()})
}

// writeError maps err onto its HTTP status and stable error code.
func writeError(w http.ResponseWriter, log logger.ILogger, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error("HTTP", "Request error", map[string]interface{}{"error_code": code, "error": err})
	}
	writeJSON(w, status, errorResponse{
		Success:   false,
		Message:   err.Error(),
		ErrorCode: code,
		Timestamp: time.Now(),
	})
}

func classify(err error) (int, string) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"
	}
	if errors.Is(err, services.ErrInvalidRequest) {
		return http.StatusBadRequest, "INVALID_REQUEST"
	}
	code := session.KindOf(err)
	if status, ok := statusByKind[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, code
}
