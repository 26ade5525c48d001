// Package auth resolves the authenticated principal of a request.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. The browser signs in with a magic link; /auth/confirm exchanges the
//     link's code for a session and stores it in the session cookie.
//  2. Browser requests carry that cookie. API clients may instead send
//     "Authorization: Bearer <access token>".
//  3. RequireAuth runs the Resolver on every protected route and puts the
//     resulting *model.User in the request context.
//
// The server never decides on its own that a token is valid: verification is
// delegated to a Verifier, normally the managed auth service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/model"
)

// Verifier checks an access token and returns the user it belongs to.
//
// Implementations return apperror InvalidCredential for rejected tokens and
// Downstream for transport failures.
type Verifier interface {
	GetUser(ctx context.Context, accessToken string) (*model.User, error)
}

// unavailable is the Verifier used when a client could not be configured.
type unavailable struct{ err error }

// Unavailable returns a Verifier that always fails with err. The server uses
// it in place of the elevated client when the service-role key is missing,
// so that bearer requests fail with a configuration error instead of the
// whole server refusing to start.
func Unavailable(err error) Verifier {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		err = &apperror.AppError{Err: apperror.ErrMissingConfiguration, Message: err.Error()}
	}
	return unavailable{err: err}
}

func (u unavailable) GetUser(context.Context, string) (*model.User, error) {
	return nil, u.err
}

const missingCredentialMessage = "Missing authentication. No valid session cookie or bearer token."

// ResolverConfig selects which strategies are tried. Precedence is fixed:
// the cookie session first, then the bearer token.
type ResolverConfig struct {
	CookieSession bool
	BearerToken   bool
	// CookieName is the session cookie base name. Empty means discover any
	// sb-<ref>-auth-token cookie.
	CookieName string
}

// Resolver determines the principal of a request.
type Resolver struct {
	cfg      ResolverConfig
	sessions Verifier // anon-privilege verification of cookie sessions
	tokens   Verifier // elevated verification of bearer tokens
	logger   *slog.Logger
}

// NewResolver creates a Resolver. sessions verifies cookie sessions and tokens
// verifies bearer tokens; either may be nil when its strategy is disabled.
func NewResolver(cfg ResolverConfig, sessions, tokens Verifier, logger *slog.Logger) *Resolver {
	return &Resolver{cfg: cfg, sessions: sessions, tokens: tokens, logger: logger}
}

// Resolve returns the request's principal or an *apperror.AppError whose
// apperror.Kind and apperror.Status give the failure kind and HTTP status:
//
//   - missing_credential (401): no session and no "Bearer <token>" header
//   - invalid_credential (401): the bearer token was rejected
//   - configuration_error (500): the elevated verifier is not configured
//   - downstream_error (500): verification could not be completed
//
// A cookie session that cannot be verified, for any reason, falls through to
// the bearer header. Its error is returned only when no bearer token is
// presented. Resolve never panics; a panicking Verifier is reported as
// downstream_error.
func (res *Resolver) Resolve(r *http.Request) (user *model.User, err error) {
	defer func() {
		if p := recover(); p != nil {
			res.logger.Error("auth: verifier panicked", slog.Any("panic", p))
			user, err = nil, apperror.DownstreamMessage(fmt.Sprintf("authentication failed: %v", p))
		}
	}()

	ctx := r.Context()

	// Step 1: cookie session.
	var (
		cookieMessage string
		cookieErr     error // non-credential failure of the cookie check
	)
	if res.cfg.CookieSession && res.sessions != nil {
		if token := DecodeSessionToken(r.Cookies(), res.cfg.CookieName); token != "" {
			u, verr := res.sessions.GetUser(ctx, token)
			switch {
			case verr == nil && u != nil && u.ID != "":
				return u, nil
			case verr == nil:
				cookieMessage = "Invalid session"
			case errors.Is(verr, apperror.ErrInvalidCredential):
				cookieMessage = verr.Error()
			default:
				cookieErr = classify(verr)
				cookieMessage = cookieErr.Error()
				res.logger.Warn("auth: cookie session check failed", slog.String("error", cookieMessage))
			}
		}
	}

	// noBearer is the result when step 2 finds nothing to verify.
	noBearer := func() error {
		if cookieErr != nil {
			return cookieErr
		}
		return apperror.MissingCredential(firstNonEmpty(cookieMessage, missingCredentialMessage))
	}

	if !res.cfg.BearerToken {
		return nil, noBearer()
	}

	// Step 2: the Authorization header must be "Bearer <token>".
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return nil, noBearer()
	}

	// Step 3: verify with the elevated client.
	if res.tokens == nil {
		return nil, apperror.MissingConfiguration("SUPABASE_SERVICE_ROLE_KEY")
	}
	u, verr := res.tokens.GetUser(ctx, token)
	if verr != nil {
		return nil, classify(verr)
	}
	if u == nil || u.ID == "" {
		return nil, apperror.InvalidCredential("Invalid token")
	}
	return u, nil
}

// classify keeps taxonomy errors as they are and turns anything else into a
// downstream error, so every failure carries a kind.
func classify(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Downstream(err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
