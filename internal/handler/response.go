package handler

// Every JSON response from the API uses one envelope:
//
//	{"success": true,  "data": {...}}
//	{"success": true,  "count": 2, "data": [...]}
//	{"success": false, "message": "Application not found with id abc"}
//	{"success": false, "message": "...", "errors": [{"field": "...", "message": "..."}]}
//
// The auth endpoints add top-level "token" and "user" instead of "data".

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/job-tracker/internal/apperror"
)

// maxBodyBytes caps request bodies; the largest valid application is well
// under this.
const maxBodyBytes = 1 << 20

// Envelope is the standard response body.
type Envelope struct {
	Success bool                 `json:"success"`
	Count   *int                 `json:"count,omitempty"`
	Data    any                  `json:"data,omitempty"`
	Message string               `json:"message,omitempty"`
	Errors  []apperror.Violation `json:"errors,omitempty"`
}

// writeJSON sends a JSON response with the given status code. Headers must
// be set before WriteHeader; anything set afterwards is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteError maps a domain error to an HTTP status and writes the failure
// envelope. It is exported so the auth middleware and the router's fallback
// handlers render errors the same way the handlers do.
//
//	ErrValidation      → 400
//	ErrUnauthenticated → 401
//	ErrForbidden       → 403
//	ErrNotFound        → 404
//	ErrConflict        → 409
//	anything else      → 500, details logged and never sent
func WriteError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, Envelope{Message: "Server Error"})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	}

	writeJSON(w, status, Envelope{
		Message: appErr.Message,
		Errors:  appErr.Violations,
	})
}

// NotFound and MethodNotAllowed replace chi's plain-text defaults.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, Envelope{Message: fmt.Sprintf("Route %s not found", r.URL.Path)})
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, Envelope{Message: fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path)})
}

// decodeJSON reads a single JSON value from the request body into dst.
// Unknown fields are ignored. Any failure comes back as a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var (
			syntaxErr *json.SyntaxError
			typeErr   *json.UnmarshalTypeError
			maxErr    *http.MaxBytesError
			timeErr   *dateError
		)
		switch {
		case errors.As(err, &syntaxErr):
			return apperror.ValidationFailed("", "Invalid JSON body")
		case errors.As(err, &typeErr):
			return apperror.ValidationFailed(typeErr.Field, fmt.Sprintf("Invalid value for %s", typeErr.Field))
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("", "Request body too large")
		case errors.As(err, &timeErr):
			return apperror.ValidationFailed("", timeErr.Error())
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("", "Request body is required")
		default:
			return apperror.ValidationFailed("", "Invalid JSON body")
		}
	}
	return nil
}

// flexTime accepts RFC 3339 timestamps and bare YYYY-MM-DD dates, the two
// forms browsers and curl users send. Bare dates are midnight UTC.
type flexTime time.Time

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

type dateError struct{ value string }

func (e *dateError) Error() string {
	return fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD or RFC 3339", e.value)
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &dateError{value: string(b)}
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = flexTime(parsed.UTC())
			return nil
		}
	}
	return &dateError{value: s}
}

func (t *flexTime) timePtr() *time.Time {
	if t == nil {
		return nil
	}
	v := time.Time(*t)
	return &v
}
