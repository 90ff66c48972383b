package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRefreshToken(t *testing.T) {
	token, fp, err := NewRefreshToken()
	require.NoError(t, err)
	require.Len(t, token, 43)
	require.Equal(t, Fingerprint(token), fp)
	require.NotEqual(t, token, fp, "the token itself is never the lookup key")

	other, _, err := NewRefreshToken()
	require.NoError(t, err)
	require.NotEqual(t, token, other, "tokens should be unique")
}

func TestNewSigningKey(t *testing.T) {
	a, err := NewSigningKey()
	require.NoError(t, err)
	require.Len(t, a, SigningKeySize)

	b, err := NewSigningKey()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestFingerprint(t *testing.T) {
	fp1a := Fingerprint("refresh-1")
	fp1b := Fingerprint("refresh-1")
	fp2 := Fingerprint("refresh-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2)
	require.Len(t, fp1a, 43, "SHA-256 base64url should be 43 chars")
}
