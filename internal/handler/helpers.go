package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiForms/internal/apperr"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 10 << 20

type errorBody struct {
	Error      string             `json:"error"`
	Reason     string             `json:"reason,omitempty"`
	Details    []string           `json:"details,omitempty"`
	Violations []apperr.Violation `json:"violations,omitempty"`
	InvalidIDs []string           `json:"invalidIds,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// readBody reads the whole request body, refusing more than MaxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
}

// writeBodyError answers a failed readBody.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large", Reason: "body_too_large"})
		return
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
}

// writeServiceError maps a service error to its status code and body.
// Untyped errors are logged and answered with fallback and a 500.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	var (
		formatErr  *apperr.FormatError
		validErr   *apperr.ValidationError
		foreignErr *apperr.ForeignReferenceError
		notFound   *apperr.NotFoundError
		authErr    *apperr.AuthError
	)
	switch {
	case errors.As(err, &formatErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid token format", Reason: formatErr.Reason()})
	case errors.As(err, &validErr):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:      "Validation failed",
			Reason:     validErr.Reason(),
			Details:    validErr.Messages(),
			Violations: validErr.Violations,
		})
	case errors.As(err, &foreignErr):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:      "Invalid field IDs provided",
			Reason:     foreignErr.Reason(),
			InvalidIDs: foreignErr.IDs,
		})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: capitalize(notFound.Error()), Reason: notFound.Reason()})
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: capitalize(authErr.Error()), Reason: authErr.Reason()})
	default:
		log.Error(fallback, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: fallback, Reason: apperr.ReasonInternal})
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
