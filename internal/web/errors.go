package web

// errors.go provides unified error response handling for the web layer.
//
// Every failure leaves through respondError:
//  1. the status code is derived from the error category
//  2. core.MapError turns the error into a coded, user-friendly message
//  3. the technical error is logged with the request id for correlation
//  4. the client receives ErrorResponse as JSON

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// Request-level failures detected by handlers before reaching the core.
var (
	errNoFile          = errors.New("no file provided")
	errInvalidFileType = errors.New("invalid file type")
	errNothingImported = errors.New("nothing imported")
	errInvalidID       = &core.ValidationError{Field: "id", Message: "must be a positive integer"}
)

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, errNoFile),
		errors.Is(err, errInvalidFileType),
		errors.Is(err, errNothingImported):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConcurrency):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	}
	if msg := core.MapError(err); msg.Code == "DB001" {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes its user-facing form.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	log := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", args...)
	} else {
		log.Warn("request rejected", args...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{ //nolint:errcheck // headers already sent
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}
