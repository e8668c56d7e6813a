// Package api serves the catalog, the simulation clock, and the
// positioning operations over HTTP JSON, plus a WebSocket stream of
// clock updates.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stellarworks/universe-simulator/astro"
	"github.com/stellarworks/universe-simulator/catalog"
	"github.com/stellarworks/universe-simulator/internal/logging"
)

// errorResponse is the single wire shape for all error replies.
type errorResponse struct {
	Error string `json:"error"`
}

// badRequestError marks handler-level validation failures so statusFor
// can map them without a dedicated sentinel per field.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// statusFor maps domain sentinels onto HTTP status codes. Everything
// unrecognized is an internal error.
func statusFor(err error) int {
	var br *badRequestError
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, astro.ErrUnknownUnit):
		return http.StatusBadRequest
	case errors.Is(err, astro.ErrNoConvergence):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and writes the error body, logging
// server-side causes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", logging.Err(err),
			logging.String("path", r.URL.Path))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
