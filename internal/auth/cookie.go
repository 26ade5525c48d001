package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// SESSION COOKIE FORMAT:
// The auth helpers store the session under "sb-<ref>-auth-token". When the
// value is too large for one cookie it is split into "sb-<ref>-auth-token.0",
// ".1", ... and must be concatenated in numeric order (".10" comes after ".2",
// which a plain string sort gets wrong).
//
// Over the years the value has been written as a bare JWT, a URL-encoded JWT,
// a JSON string, a JSON array whose first element is the access token, and a
// JSON object with an "access_token" field, optionally prefixed "base64-" and
// base64url-encoded. DecodeSessionToken accepts all of them.

// maxChunkSize matches the auth helpers' chunk size so our cookies stay
// readable by the browser-side client.
const maxChunkSize = 3180

const base64Prefix = "base64-"

var sessionCookiePattern = regexp.MustCompile(`^(sb-[^.]+-auth-token)(?:\.(\d+))?$`)

// DecodeSessionToken reassembles the session cookie called name (or, when
// name is empty, the first cookie matching sb-<ref>-auth-token) and extracts
// the access token. It returns "" when no cookie is present or no strategy
// yields a token.
func DecodeSessionToken(cookies []*http.Cookie, name string) string {
	raw := reassemble(cookies, name)
	if raw == "" {
		return ""
	}
	return parseSessionValue(raw)
}

// reassemble joins a whole cookie or its numbered fragments. An unsuffixed
// cookie wins over fragments with the same base name.
func reassemble(cookies []*http.Cookie, name string) string {
	type fragment struct {
		index int
		value string
	}
	var whole string
	var haveWhole bool
	fragments := map[string][]fragment{}

	for _, c := range cookies {
		m := sessionCookiePattern.FindStringSubmatch(c.Name)
		base, suffix := c.Name, ""
		if m != nil {
			base, suffix = m[1], m[2]
		} else if b, s, ok := strings.Cut(c.Name, "."); ok {
			base, suffix = b, s
		}
		if name != "" && base != name {
			continue
		}
		if name == "" && m == nil {
			continue
		}
		if name == "" {
			name = base
		}

		if suffix == "" {
			whole, haveWhole = c.Value, true
			continue
		}
		idx, err := strconv.Atoi(suffix)
		if err != nil || idx < 0 {
			continue
		}
		fragments[base] = append(fragments[base], fragment{index: idx, value: c.Value})
	}

	if haveWhole {
		return whole
	}
	parts := fragments[name]
	sort.Slice(parts, func(i, j int) bool { return parts[i].index < parts[j].index })

	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.value)
	}
	return b.String()
}

// parseSessionValue probes the parse strategies in precedence order:
// raw token, percent-decoded raw token, JSON string, JSON array, JSON object.
func parseSessionValue(raw string) string {
	raw = strings.TrimSpace(raw)
	if looksLikeToken(raw) {
		return raw
	}

	decoded := raw
	if d, err := url.PathUnescape(raw); err == nil {
		decoded = strings.TrimSpace(d)
		if looksLikeToken(decoded) {
			return decoded
		}
	}

	payload := decoded
	if strings.HasPrefix(payload, base64Prefix) {
		b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(payload[len(base64Prefix):], "="))
		if err != nil {
			return ""
		}
		payload = string(b)
	}

	var s string
	if err := json.Unmarshal([]byte(payload), &s); err == nil {
		if looksLikeToken(s) {
			return s
		}
		// A JSON string may itself hold the serialised session.
		payload = s
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &arr); err == nil {
		for _, el := range arr {
			var tok string
			if json.Unmarshal(el, &tok) == nil && looksLikeToken(tok) {
				return tok
			}
		}
	}

	var obj struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal([]byte(payload), &obj); err == nil && looksLikeToken(obj.AccessToken) {
		return obj.AccessToken
	}

	return ""
}

// looksLikeToken reports whether s is a structurally valid JWT. The signature
// is not checked here; verification is the auth service's job.
func looksLikeToken(s string) bool {
	if strings.Count(s, ".") != 2 {
		return false
	}
	_, _, err := jwt.NewParser().ParseUnverified(s, jwt.MapClaims{})
	return err == nil
}

// EncodeSessionCookies serialises tok the way the auth helpers do
// ("base64-" + base64url(JSON)) and splits it into chunks when needed. The
// returned cookies carry only name and value; the caller sets attributes.
func EncodeSessionCookies(name string, tok *oauth2.Token) ([]*http.Cookie, error) {
	session := map[string]any{
		"access_token":  tok.AccessToken,
		"token_type":    tok.TokenType,
		"refresh_token": tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		session["expires_at"] = tok.Expiry.Unix()
	}
	buf, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	value := base64Prefix + base64.RawURLEncoding.EncodeToString(buf)

	if len(value) <= maxChunkSize {
		return []*http.Cookie{{Name: name, Value: value}}, nil
	}
	var out []*http.Cookie
	for i := 0; len(value) > 0; i++ {
		n := min(maxChunkSize, len(value))
		out = append(out, &http.Cookie{Name: name + "." + strconv.Itoa(i), Value: value[:n]})
		value = value[n:]
	}
	return out, nil
}

// SessionCookieNames lists the whole cookie and every fragment of name
// present on the request, for clearing them on logout.
func SessionCookieNames(cookies []*http.Cookie, name string) []string {
	var names []string
	for _, c := range cookies {
		if c.Name == name || strings.HasPrefix(c.Name, name+".") {
			names = append(names, c.Name)
		}
	}
	return names
}
