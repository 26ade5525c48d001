package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//
//	{"error": "validation_error", "message": "Invalid reminderTime. Use HH:MM."}
//
// The "error" field is a machine-readable kind from apperror.Kind and the
// status code comes from apperror.Status, so a given failure produces the
// same response whichever layer created it.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/auth"
	"github.com/sakif/mos-mood/internal/model"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written; once Encode
// calls w.Write the headers are on the wire and later changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps err to its status code and error body.
//
// AppErrors carry a client-safe message. Anything else becomes a generic
// 500: a raw error might contain SQL or file paths.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperror.Status(err), ErrorResponse{
		Error:   apperror.Kind(err),
		Message: apperror.PublicMessage(err),
	})
}

// fail logs a handler failure with its route and principal, then writes the
// error response. Client errors are logged at Info, server errors at Error.
func fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	level := slog.LevelInfo
	if apperror.Status(err) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []slog.Attr{
		slog.String("op", op),
		slog.String("kind", apperror.Kind(err)),
		slog.String("error", err.Error()),
	}
	if user, ok := auth.UserFromContext(r.Context()); ok {
		attrs = append(attrs, slog.String("user_id", user.ID))
	}
	logger.LogAttrs(r.Context(), level, "request failed", attrs...)
	writeError(w, err)
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "Request body is required")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// principal returns the user RequireAuth put in the context. A route wired
// without RequireAuth gets a 401 rather than a nil dereference.
func principal(r *http.Request) (*model.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, apperror.MissingCredential("Missing authentication. No valid session cookie or bearer token.")
	}
	return user, nil
}

// jsonString returns raw as a string when it is a JSON string.
func jsonString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// truthy coerces a JSON value the way a JavaScript Boolean() call does:
// false, 0, "", null and an absent field are false, everything else is true.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
