package auth

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Sealer encrypts short values (the PKCE verifier) before they are stored in
// a cookie, so the browser carries them but cannot read or forge them.
//
// XChaCha20-Poly1305 is an AEAD: it encrypts and authenticates in one step,
// and its 24-byte nonce is large enough to pick at random for every message.
type Sealer struct {
	aead cipher.AEAD
}

// sealerInfo separates keys derived for this purpose from any other use of
// the same secret.
const sealerInfo = "mos-mood pkce verifier cookie v1"

// NewSealer derives a 256-bit key from secret with HKDF-SHA256.
func NewSealer(secret string) (*Sealer, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: cookie secret must be at least 16 characters")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sealerInfo)), key); err != nil {
		return nil, fmt.Errorf("auth: deriving cookie key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("auth: creating cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext and returns base64url(nonce || ciphertext).
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("auth: generating nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Any tampering makes it fail.
func (s *Sealer) Open(sealed string) (string, error) {
	buf, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", errors.New("auth: malformed sealed value")
	}
	if len(buf) < s.aead.NonceSize() {
		return "", errors.New("auth: sealed value too short")
	}
	nonce, ciphertext := buf[:s.aead.NonceSize()], buf[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.New("auth: sealed value failed authentication")
	}
	return string(plain), nil
}
