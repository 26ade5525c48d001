package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A plain string key could be
// read or shadowed by any package that knows the string. Only this package
// can create a contextKey, so only this package can read or write the user.
type contextKey string

const userKey contextKey = "user"

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It runs the Resolver (cookie session, then bearer token) and stores the
// resolved *model.User in the request context. On failure it writes the
// resolver's error as {"error": kind, "message": ...} with the matching
// status and stops the chain.
//
// MIDDLEWARE PATTERN IN GO:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... before ...
//	        next.ServeHTTP(w, r)
//	        // ... after ...
//	    })
//	}
func RequireAuth(resolver *Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.Resolve(r)
			if err != nil {
				level := slog.LevelInfo
				if apperror.Status(err) >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.Log(r.Context(), level, "auth: request not authenticated",
					slog.String("path", r.URL.Path),
					slog.String("kind", apperror.Kind(err)),
					slog.String("error", err.Error()),
				)
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user. Handlers never call it;
// RequireAuth does, and tests use it to skip the resolver.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated principal.
//
// Returns (nil, false) if the request did not pass through RequireAuth.
//
// Usage in handlers:
//
//	user, ok := auth.UserFromContext(r.Context())
//	if !ok {
//	    // not authenticated
//	}
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil && u.ID != ""
}

// RequireAPIKey protects server-to-server routes with a static key sent in
// header. The comparison is exact and constant-time. An empty configured
// secret rejects every request, so a missing NOTIFICATION_API_KEY never
// opens the route.
func RequireAPIKey(header, secret string) func(http.Handler) http.Handler {
	return staticSecret(secret, func(r *http.Request) string {
		return r.Header.Get(header)
	})
}

// RequireBearerSecret is RequireAPIKey for "Authorization: Bearer <secret>",
// used by the cron trigger.
func RequireBearerSecret(secret string) func(http.Handler) http.Handler {
	return staticSecret(secret, func(r *http.Request) string {
		v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			return ""
		}
		return v
	})
}

func staticSecret(secret string, presented func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := presented(r)
			if secret == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeError(w, apperror.Unauthorized("Unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeError mirrors handler.writeError; the auth package cannot import the
// handler package without a cycle.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperror.Status(err))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   apperror.Kind(err),
		"message": apperror.PublicMessage(err),
	})
}
