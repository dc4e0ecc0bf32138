// Package httpserver contains the HTTP handlers and middleware of the
// pgdeveloper daemon.
//
// Handlers decode and validate requests, call the usecase services and map
// domain errors onto status codes and a JSON error envelope.
package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

// internalBody is sent when a response value cannot be encoded.
const internalBody = `{"error":{"code":"INTERNAL","message":"response could not be encoded","details":null}}` + "\n"

// writeJSON encodes v before the status line is written, so an unencodable
// value turns into a 500 envelope instead of a 200 with a truncated body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err != nil {
		slog.Error("response encoding failed", slog.Int("status", status), slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(internalBody))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// statusFor maps a domain error onto an HTTP status and envelope code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrNoActiveProfile):
		return http.StatusConflict, "NO_ACTIVE_PROFILE"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, domain.ErrConnection):
		return http.StatusBadGateway, "CONNECTION_FAILED"
	case errors.Is(err, domain.ErrQuery):
		return http.StatusUnprocessableEntity, "QUERY_FAILED"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func writeError(w http.ResponseWriter, r *http.Request, err error, details interface{}) {
	code, codeStr := statusFor(err)
	if code >= http.StatusInternalServerError && r != nil {
		LoggerFrom(r).Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}
