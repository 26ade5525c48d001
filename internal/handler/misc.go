package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// HandleMe returns the authenticated principal.
//
// HTTP: GET /api/me
func HandleMe(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := principal(r)
		if err != nil {
			fail(w, r, logger, "me", err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// HandleCronRun is the scheduler's trigger. It sits behind
// auth.RequireBearerSecret and only acknowledges the call.
//
// HTTP: GET /api/cron/run
func HandleCronRun(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.InfoContext(r.Context(), "cron run triggered")
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// EmailSettings is what the diagnostics route reports about email delivery.
type EmailSettings interface {
	Configured() bool
	From() string
}

// HandleDebugEnv reports whether email delivery is configured. It never
// returns the key itself.
//
// HTTP: GET /api/debug/env
func HandleDebugEnv(settings EmailSettings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"hasResendKey": settings.Configured(),
			"resendFrom":   settings.From(),
		})
	}
}

// Pinger is implemented by the stores.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HandleHealth reports liveness, and store reachability when db is set.
//
// HTTP: GET /healthz
func HandleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
