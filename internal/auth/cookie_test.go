package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testCookie = "sb-abcdefgh-auth-token"

// testJWT returns a structurally valid access token for sub.
func testJWT(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte("fixture-signing-key"))
	require.NoError(t, err)
	return s
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// chunk splits value into n roughly equal fragment cookies name.0..name.n-1.
func chunk(name, value string, n int) []*http.Cookie {
	size := (len(value) + n - 1) / n
	var out []*http.Cookie
	for i := 0; i < n; i++ {
		start := min(i*size, len(value))
		end := min(start+size, len(value))
		out = append(out, &http.Cookie{Name: name + "." + strconv.Itoa(i), Value: value[start:end]})
	}
	return out
}

func TestDecodeSessionToken_Formats(t *testing.T) {
	token := testJWT(t, "u-1")
	object := mustJSON(t, map[string]any{"access_token": token, "refresh_token": "r", "token_type": "bearer"})

	tests := []struct {
		name  string
		value string
	}{
		{"raw token", token},
		{"percent-encoded token", url.QueryEscape(token)},
		{"JSON string", mustJSON(t, token)},
		{"JSON array", mustJSON(t, []any{token, "refresh", nil, nil})},
		{"JSON object", object},
		{"percent-encoded JSON object", url.QueryEscape(object)},
		{"JSON string holding an object", mustJSON(t, object)},
		{"base64- prefixed object", "base64-" + base64.RawURLEncoding.EncodeToString([]byte(object))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cookies := []*http.Cookie{{Name: testCookie, Value: tt.value}}
			assert.Equal(t, token, DecodeSessionToken(cookies, testCookie))
		})
	}
}

func TestDecodeSessionToken_NoToken(t *testing.T) {
	tests := []struct {
		name    string
		cookies []*http.Cookie
	}{
		{"no cookies", nil},
		{"unrelated cookie", []*http.Cookie{{Name: "theme", Value: "dark"}}},
		{"not a token", []*http.Cookie{{Name: testCookie, Value: "hello"}}},
		{"object without access_token", []*http.Cookie{{Name: testCookie, Value: `{"refresh_token":"r"}`}}},
		{"array of non-tokens", []*http.Cookie{{Name: testCookie, Value: `["a","b"]`}}},
		{"three parts but not a JWT", []*http.Cookie{{Name: testCookie, Value: "a.b.c"}}},
		{"broken base64", []*http.Cookie{{Name: testCookie, Value: "base64-%%%"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, DecodeSessionToken(tt.cookies, testCookie))
		})
	}
}

func TestDecodeSessionToken_FragmentsJoinInNumericOrder(t *testing.T) {
	token := testJWT(t, "u-chunked")
	value := mustJSON(t, map[string]any{"access_token": token, "user": map[string]string{"id": "u-chunked"}})

	cookies := chunk(testCookie, value, 12)
	// Deliver them shuffled, with .10 and .11 ahead of .2 as a string sort would put them.
	shuffled := []*http.Cookie{cookies[10], cookies[2], cookies[11], cookies[0], cookies[1]}
	shuffled = append(shuffled, cookies[3:10]...)

	assert.Equal(t, token, DecodeSessionToken(shuffled, testCookie))
}

func TestDecodeSessionToken_WholeCookieWinsOverFragments(t *testing.T) {
	whole := testJWT(t, "whole")
	cookies := append(chunk(testCookie, testJWT(t, "fragmented"), 2), &http.Cookie{Name: testCookie, Value: whole})

	assert.Equal(t, whole, DecodeSessionToken(cookies, testCookie))
}

func TestDecodeSessionToken_DiscoversCookieWithoutName(t *testing.T) {
	token := testJWT(t, "u-1")
	cookies := []*http.Cookie{
		{Name: "theme", Value: "dark"},
		{Name: "sb-otherref-auth-token-code-verifier", Value: "x"},
		{Name: "sb-zyx-auth-token", Value: mustJSON(t, []string{token})},
	}

	assert.Equal(t, token, DecodeSessionToken(cookies, ""))
}

func TestDecodeSessionToken_IgnoresOtherProjects(t *testing.T) {
	cookies := []*http.Cookie{{Name: "sb-otherref-auth-token", Value: testJWT(t, "u-1")}}
	assert.Empty(t, DecodeSessionToken(cookies, testCookie))
}

func TestEncodeSessionCookies_RoundTrip(t *testing.T) {
	token := testJWT(t, "u-1")

	t.Run("single cookie", func(t *testing.T) {
		cookies, err := EncodeSessionCookies(testCookie, &oauth2.Token{AccessToken: token, RefreshToken: "r", TokenType: "bearer"})
		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.Equal(t, testCookie, cookies[0].Name)
		assert.True(t, strings.HasPrefix(cookies[0].Value, "base64-"))

		assert.Equal(t, token, DecodeSessionToken(cookies, testCookie))
	})

	t.Run("chunked", func(t *testing.T) {
		big := &oauth2.Token{AccessToken: token, RefreshToken: strings.Repeat("r", 3*maxChunkSize), Expiry: time.Now().Add(time.Hour)}
		cookies, err := EncodeSessionCookies(testCookie, big)
		require.NoError(t, err)
		require.Greater(t, len(cookies), 1)
		for i, c := range cookies {
			assert.Equal(t, testCookie+"."+strconv.Itoa(i), c.Name)
			assert.LessOrEqual(t, len(c.Value), maxChunkSize)
		}

		assert.Equal(t, token, DecodeSessionToken(cookies, testCookie))
	})
}

func TestSessionCookieNames(t *testing.T) {
	cookies := []*http.Cookie{
		{Name: testCookie + ".0"},
		{Name: "theme"},
		{Name: testCookie},
		{Name: testCookie + ".1"},
		{Name: testCookie + "-code-verifier"},
	}
	assert.Equal(t, []string{testCookie + ".0", testCookie, testCookie + ".1"}, SessionCookieNames(cookies, testCookie))
}
