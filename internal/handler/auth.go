package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/xid"
	"golang.org/x/oauth2"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/auth"
)

const (
	// pkceCookie holds the sealed "state:verifier" pair between /auth/login
	// and /auth/confirm.
	pkceCookie = "mos_pkce"
	pkceMaxAge = 60 * 60 // magic links expire after an hour

	// sessionMaxAge matches the auth helpers' default cookie lifetime.
	sessionMaxAge = 400 * 24 * 60 * 60

	confirmedRedirect = "/today"
	failedRedirect    = "/login?error=auth_failed"
)

// AuthService is the part of the auth-service client the login flow uses.
// *supabase.Client implements it.
type AuthService interface {
	SendMagicLink(ctx context.Context, email, redirectTo, codeChallenge string) error
	ExchangeCodeForSession(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	VerifyOTP(ctx context.Context, tokenHash, otpType string) (*oauth2.Token, error)
}

// AuthHandler runs the magic-link login flow and manages session cookies.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin   → ask the auth service to email a PKCE-bound magic link
//   - HandleConfirm → turn the link's code (or token hash) into a session cookie
//   - HandleLogout  → clear the session cookie and all its fragments
//
// CSRF PROTECTION VIA STATE:
// Login generates an xid state, puts it in the confirm URL and seals it
// together with the PKCE verifier into a short-lived cookie. Confirm only
// exchanges a code when the state in the URL matches the sealed one.
type AuthHandler struct {
	auth       AuthService
	sealer     *auth.Sealer // nil when no cookie secret is configured
	cookieName string
	siteURL    string
	logger     *slog.Logger
}

// NewAuthHandler creates an AuthHandler. siteURL is the public origin used in
// magic-link redirects; when empty it is derived from each request.
func NewAuthHandler(svc AuthService, sealer *auth.Sealer, cookieName, siteURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       svc,
		sealer:     sealer,
		cookieName: cookieName,
		siteURL:    strings.TrimRight(siteURL, "/"),
		logger:     logger,
	}
}

type loginRequest struct {
	Email string `json:"email"`
}

// HandleLogin emails a magic link to the given address.
//
// HTTP: POST /auth/login
// REQUEST BODY: {"email": "ana@example.com"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "auth.login"

	if h.sealer == nil {
		fail(w, r, h.logger, op, apperror.MissingConfiguration("COOKIE_SECRET", "SUPABASE_SERVICE_ROLE_KEY"))
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.logger, op, err)
		return
	}
	addr := strings.TrimSpace(req.Email)
	if !strings.Contains(addr, "@") {
		fail(w, r, h.logger, op, apperror.ValidationFailed("email", "Enter a valid email address"))
		return
	}

	state := xid.New().String()
	verifier := oauth2.GenerateVerifier()
	sealed, err := h.sealer.Seal(state + ":" + verifier)
	if err != nil {
		fail(w, r, h.logger, op, err)
		return
	}

	redirectTo := h.origin(r) + "/auth/confirm?" + url.Values{"state": {state}}.Encode()
	if err := h.auth.SendMagicLink(r.Context(), addr, redirectTo, oauth2.S256ChallengeFromVerifier(verifier)); err != nil {
		fail(w, r, h.logger, op, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     pkceCookie,
		Value:    sealed,
		Path:     "/auth",
		MaxAge:   pkceMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.InfoContext(r.Context(), "magic link sent")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Check your email for the sign-in link"})
}

// HandleConfirm completes a login from the emailed link.
//
// HTTP: GET /auth/confirm?code=...&state=...
// HTTP: GET /auth/confirm?token_hash=...&type=magiclink
//
// Success sets the session cookie and redirects to /today. Any failure
// redirects to /login?error=auth_failed; the reason is only logged.
func (h *AuthHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		tok *oauth2.Token
		err error
	)
	switch {
	case q.Get("token_hash") != "" && q.Get("type") != "":
		tok, err = h.auth.VerifyOTP(r.Context(), q.Get("token_hash"), q.Get("type"))
	case q.Get("code") != "":
		var verifier string
		verifier, err = h.pkceVerifier(r, q.Get("state"))
		if err == nil {
			tok, err = h.auth.ExchangeCodeForSession(r.Context(), q.Get("code"), verifier)
		}
	default:
		err = apperror.ValidationFailed("code", "missing code query param")
	}

	clearCookie(w, pkceCookie, "/auth")
	if err != nil {
		h.logger.WarnContext(r.Context(), "auth callback failed", slog.String("error", err.Error()))
		http.Redirect(w, r, failedRedirect, http.StatusSeeOther)
		return
	}

	if err := h.setSession(w, r, tok); err != nil {
		h.logger.ErrorContext(r.Context(), "auth callback: writing session cookie", slog.String("error", err.Error()))
		http.Redirect(w, r, failedRedirect, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, confirmedRedirect, http.StatusSeeOther)
}

// HandleLogout clears the session cookie and every fragment of it.
//
// HTTP: POST /auth/logout
//
// The access token stays valid until it expires; without the cookie the
// browser simply stops presenting it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	for _, name := range auth.SessionCookieNames(r.Cookies(), h.cookieName) {
		clearCookie(w, name, "/")
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) pkceVerifier(r *http.Request, state string) (string, error) {
	if h.sealer == nil {
		return "", apperror.MissingConfiguration("COOKIE_SECRET", "SUPABASE_SERVICE_ROLE_KEY")
	}
	c, err := r.Cookie(pkceCookie)
	if err != nil {
		return "", apperror.InvalidCredential("missing PKCE cookie")
	}
	plain, err := h.sealer.Open(c.Value)
	if err != nil {
		return "", err
	}
	sealedState, verifier, ok := strings.Cut(plain, ":")
	if !ok || state == "" || subtle.ConstantTimeCompare([]byte(sealedState), []byte(state)) != 1 {
		return "", apperror.InvalidCredential("state mismatch")
	}
	return verifier, nil
}

// setSession writes tok as the session cookie, then expires any fragments
// left over from a previous, larger session.
func (h *AuthHandler) setSession(w http.ResponseWriter, r *http.Request, tok *oauth2.Token) error {
	cookies, err := auth.EncodeSessionCookies(h.cookieName, tok)
	if err != nil {
		return err
	}

	written := make(map[string]bool, len(cookies))
	for _, c := range cookies {
		c.Path = "/"
		c.MaxAge = sessionMaxAge
		c.HttpOnly = true
		c.Secure = r.TLS != nil
		c.SameSite = http.SameSiteLaxMode
		http.SetCookie(w, c)
		written[c.Name] = true
	}
	for _, name := range auth.SessionCookieNames(r.Cookies(), h.cookieName) {
		if !written[name] {
			clearCookie(w, name, "/")
		}
	}
	return nil
}

func (h *AuthHandler) origin(r *http.Request) string {
	if h.siteURL != "" {
		return h.siteURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
