package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/qrhunt/internal/hunt"
)

// ErrorResponse is returned for all error responses. Error carries the
// stable taxonomy key.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps an engine or store error onto an HTTP response.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *hunt.ValidationError
	code := hunt.Code(err)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: code, Message: err.Error(), Missing: verr.Missing})
	case errors.Is(err, hunt.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: code, Message: err.Error()})
	case errors.Is(err, hunt.ErrNotFound):
		writeError(w, http.StatusNotFound, code)
	case errors.Is(err, hunt.ErrDuplicate):
		writeError(w, http.StatusConflict, code)
	case hunt.IsBusinessRule(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: code, Message: err.Error()})
	case errors.Is(err, hunt.ErrTransient):
		logger.Warn("store unavailable", "error", err)
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, code)
	default:
		logger.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
