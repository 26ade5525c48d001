package auth

// LOCAL TOKEN VERIFICATION
//
// Access tokens issued by the auth service are JWTs signed with the project's
// JWT secret (HS256). When SUPABASE_JWT_SECRET is configured the server can
// verify bearer tokens itself instead of calling GET /auth/v1/user for every
// request:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:  {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<user uuid>","email":"...","aud":"authenticated","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
//
// The trade-off: a locally verified token stays valid until it expires even if
// the user signs out elsewhere. The remote verifier does not have that gap.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/model"
)

// tokenAudience is the "aud" claim of tokens minted for signed-in users.
const tokenAudience = "authenticated"

// TokenService signs and verifies auth-service access tokens with the
// project's shared secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the access-token payload. "sub" holds the user id.
type claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token for user that expires after ttl. The auth service does
// this in production; Issue exists for local development and tests.
func (s *TokenService) Issue(user model.User, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Email: user.Email,
		Role:  tokenAudience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenStr and returns the user it identifies.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid
//   - Token is not expired, and carries an expiry at all
//   - Audience is "authenticated" (anon and service-role keys are JWTs too)
//   - Algorithm is HS256, which rules out "alg":"none"
func (s *TokenService) Verify(tokenStr string) (*model.User, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.InvalidCredential("invalid JWT: token is expired")
		}
		return nil, apperror.InvalidCredential("invalid JWT: " + err.Error())
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return nil, apperror.InvalidCredential("Invalid token")
	}
	return &model.User{ID: c.Subject, Email: c.Email}, nil
}

// GetUser implements Verifier.
func (s *TokenService) GetUser(_ context.Context, accessToken string) (*model.User, error) {
	return s.Verify(accessToken)
}
