// Package cryptox mints the secrets of the fake API in authtest: the HS256
// signing key and opaque refresh tokens, which are kept by fingerprint only.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// RefreshTokenSize is the entropy of a refresh token in bytes
	// (43 chars base64url).
	RefreshTokenSize = 32

	// SigningKeySize is the HS256 key length in bytes.
	SigningKeySize = 32
)

// NewSigningKey returns a random HS256 key.
func NewSigningKey() ([]byte, error) {
	return randomBytes(SigningKeySize)
}

// NewRefreshToken returns a random base64url refresh token together with the
// fingerprint it should be stored under.
func NewRefreshToken() (token, fingerprint string, err error) {
	buf, err := randomBytes(RefreshTokenSize)
	if err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, Fingerprint(token), nil
}

// Fingerprint is the SHA-256 of token, base64url encoded. A presented bearer
// is looked up by its fingerprint.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read %d random bytes: %w", n, err)
	}
	return buf, nil
}
