// Package supabase adapts the managed auth service's Go client to this
// server's types.
//
// Only the handful of endpoints this server needs are covered:
//
//	GET  /auth/v1/user                     verify an access token, return the user
//	POST /auth/v1/token?grant_type=pkce    exchange a magic-link code for a session
//	POST /auth/v1/verify                   exchange a one-time token hash for a session
//	POST /auth/v1/otp                      send a magic link
//
// Requests go through auth-go. Sessions are returned as *oauth2.Token: the
// auth service speaks OAuth-style token responses, and oauth2.Token already
// carries the access token, refresh token and expiry we care about. Failures
// are mapped onto the apperror taxonomy from the HTTP status of the exchange.
//
// Two clients are built at startup: one with the anon key (what browsers use)
// and one with the service-role key. Both are safe for concurrent use.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	authgo "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"
	"golang.org/x/oauth2"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/model"
)

// Client talks to one auth-service project with one API key.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	auth    authgo.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the project at rawURL using apiKey. Use the anon
// key for browser-equivalent calls and the service-role key for the elevated
// client.
func New(rawURL, apiKey string, opts ...Option) (*Client, error) {
	if rawURL == "" {
		return nil, apperror.MissingConfiguration("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL")
	}
	if apiKey == "" {
		return nil, apperror.MissingConfiguration("SUPABASE_API_KEY")
	}
	u, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase: invalid project URL %q", rawURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.auth = authgo.New(c.projectRef(), apiKey).WithCustomAuthURL(u.String() + "/auth/v1")
	return c, nil
}

func (c *Client) projectRef() string {
	ref, _, _ := strings.Cut(c.baseURL.Hostname(), ".")
	return ref
}

// SessionCookieName is the cookie the auth helpers store the session in:
// "sb-<project ref>-auth-token", where the ref is the first label of the host.
func (c *Client) SessionCookieName() string {
	return "sb-" + c.projectRef() + "-auth-token"
}

// errorPayload covers both error shapes the auth service returns.
type errorPayload struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
}

func (e errorPayload) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// GetUser verifies accessToken with the auth service and returns its user.
//
// A rejected token is an InvalidCredential error; transport failures and
// 5xx responses are Downstream errors so callers can tell "re-authenticate"
// from "try again later".
func (c *Client) GetUser(ctx context.Context, accessToken string) (*model.User, error) {
	var resp *types.UserResponse
	err := c.call(ctx, accessToken, nil, func(ac authgo.Client) (err error) {
		resp, err = ac.GetUser()
		return err
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.ID == uuid.Nil {
		return nil, apperror.InvalidCredential("Invalid token")
	}
	return &model.User{ID: resp.ID.String(), Email: resp.Email}, nil
}

// ExchangeCodeForSession completes a PKCE magic-link login.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	var resp *types.TokenResponse
	err := c.call(ctx, "", nil, func(ac authgo.Client) (err error) {
		resp, err = ac.Token(types.TokenRequest{GrantType: "pkce", Code: code, CodeVerifier: verifier})
		return err
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, apperror.InvalidCredential("auth service returned no session")
	}
	return sessionToken(resp.Session)
}

// VerifyOTP exchanges a one-time token hash (from an email link) for a
// session. otpType is the link's "type" parameter, e.g. "magiclink" or "email".
func (c *Client) VerifyOTP(ctx context.Context, tokenHash, otpType string) (*oauth2.Token, error) {
	var resp *types.VerifyForUserResponse
	err := c.call(ctx, "", nil, func(ac authgo.Client) (err error) {
		resp, err = ac.VerifyForUser(types.VerifyForUserRequest{
			Type:      types.VerificationType(otpType),
			TokenHash: tokenHash,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, apperror.InvalidCredential("auth service returned no session")
	}
	return sessionToken(resp.Session)
}

// SendMagicLink asks the auth service to email a sign-in link to email. The
// link redirects to redirectTo with a code bound to codeChallenge.
func (c *Client) SendMagicLink(ctx context.Context, email, redirectTo, codeChallenge string) error {
	query := url.Values{"redirect_to": {redirectTo}}
	err := c.call(ctx, "", query, func(ac authgo.Client) error {
		return ac.OTP(types.OTPRequest{
			Email:               email,
			CreateUser:          true,
			CodeChallenge:       codeChallenge,
			CodeChallengeMethod: "s256",
		})
	})
	if errors.Is(err, apperror.ErrInvalidCredential) {
		// 4xx here means the address or rate limit was rejected, not a token.
		return apperror.ValidationFailed("email", err.Error())
	}
	return err
}

func sessionToken(s types.Session) (*oauth2.Token, error) {
	if s.AccessToken == "" {
		return nil, apperror.InvalidCredential("auth service returned no session")
	}

	tok := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
	}
	switch {
	case s.ExpiresAt > 0:
		tok.Expiry = time.Unix(int64(s.ExpiresAt), 0)
	case s.ExpiresIn > 0:
		tok.Expiry = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	if s.User.ID != uuid.Nil {
		tok = tok.WithExtra(map[string]any{"user_id": s.User.ID.String(), "email": s.User.Email})
	}
	return tok, nil
}

// call runs fn against the auth-go client with requests bound to ctx. bearer,
// when set, is presented as the user's own token; query is added to the
// request URL. The error is classified from the response status: none means
// a transport failure, 5xx is Downstream and other non-2xx statuses are
// InvalidCredential carrying the service's message.
func (c *Client) call(ctx context.Context, bearer string, query url.Values, fn func(authgo.Client) error) error {
	rt := &exchange{ctx: ctx, query: query, base: c.http.Transport}
	hc := *c.http
	hc.Transport = rt

	ac := c.auth.WithClient(hc)
	if bearer != "" {
		ac = ac.WithToken(bearer)
	}

	err := fn(ac)
	switch {
	case err == nil:
		return nil
	case rt.status == 0:
		return apperror.Downstream(fmt.Errorf("supabase: %w", err))
	case rt.status >= 300:
		msg := rt.message
		if msg == "" {
			msg = fmt.Sprintf("auth service returned status %d", rt.status)
		}
		if rt.status >= 500 {
			return apperror.Downstream(errors.New(msg))
		}
		return apperror.InvalidCredential(msg)
	default:
		return apperror.Downstream(fmt.Errorf("supabase: decoding response: %w", err))
	}
}

// exchange is the RoundTripper of one call. It records the response status
// and error message, which auth-go only reports as formatted text.
type exchange struct {
	ctx   context.Context
	query url.Values
	base  http.RoundTripper

	status  int
	message string
}

func (e *exchange) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(e.ctx)
	if len(e.query) > 0 {
		q := req.URL.Query()
		for k, vs := range e.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	base := e.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	e.status = resp.StatusCode
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		var ep errorPayload
		_ = json.Unmarshal(body, &ep)
		e.message = ep.text()
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}
	return resp, nil
}
