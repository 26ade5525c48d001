package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer("cookie-secret-for-tests")
	require.NoError(t, err)

	sealed, err := s.Seal("pkce-verifier-value")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "pkce-verifier-value")

	got, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "pkce-verifier-value", got)
}

func TestSealer_FreshNoncePerSeal(t *testing.T) {
	s, err := NewSealer("cookie-secret-for-tests")
	require.NoError(t, err)

	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	assert.NotEqual(t, a, b)
}

func TestSealer_RejectsTamperingAndForeignKeys(t *testing.T) {
	s, err := NewSealer("cookie-secret-for-tests")
	require.NoError(t, err)
	other, err := NewSealer("a-different-cookie-secret")
	require.NoError(t, err)

	sealed, err := s.Seal("verifier")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.Error(t, err, "value sealed under another key")

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	_, err = s.Open(base64.RawURLEncoding.EncodeToString(raw))
	assert.Error(t, err, "modified ciphertext")

	_, err = s.Open("!!not base64!!")
	assert.Error(t, err)

	_, err = s.Open("c2hvcnQ")
	assert.Error(t, err, "shorter than a nonce")
}

func TestNewSealer_ShortSecret(t *testing.T) {
	_, err := NewSealer("short")
	assert.Error(t, err)
}
