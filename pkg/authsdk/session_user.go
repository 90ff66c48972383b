package authsdk

import (
	"context"
	"net/http"
)

// User operations - thin wrappers over AuthenticatedFetch

// FetchUser retrieves the profile of the logged in account from the server.
// The cached snapshot returned by GetUser is not updated.
// Automatically refreshes the access token if expired.
func (s *Session) FetchUser(ctx context.Context) (*UserProfile, error) {
	resp, err := s.AuthenticatedFetch(ctx, s.client.Endpoints.User, nil)
	if err != nil {
		return nil, err
	}

	var user UserProfile
	if err := decodeJSON(resp, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// VerifyToken asks the server whether the session is still accepted.
// It returns false, without error, when the server answers 401 and the
// session could not be refreshed because no refresh token is stored.
func (s *Session) VerifyToken(ctx context.Context) (bool, error) {
	resp, err := s.AuthenticatedFetch(ctx, s.client.Endpoints.Verify, nil)
	if err != nil {
		return false, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		discard(resp)
		return false, nil
	}

	var verifyResp VerifyResponse
	if err := decodeJSON(resp, &verifyResp); err != nil {
		return false, err
	}

	return true, nil
}
