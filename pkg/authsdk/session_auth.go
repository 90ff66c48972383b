package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ============================================================================
// Login / Registration
// ============================================================================

// Login authenticates with email and password and stores the returned
// credentials and profile, replacing whatever was stored before: a response
// without a refresh token or profile removes the old one. The email is
// lowercased before it is sent.
// A rejected login returns an *AuthError and leaves the store untouched.
func (s *Session) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := LoginRequest{
		Email:    normalizeEmail(email),
		Password: password,
	}

	resp, err := s.client.postJSON(ctx, s.client.Endpoints.Login, req)
	if err != nil {
		return nil, err
	}

	if !success(resp.StatusCode) {
		body := readErrorBody(resp)
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    serverMessage(body, defaultLoginMessage),
		}
	}

	bodyBytes, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var loginResp LoginResponse
	if err := json.Unmarshal(bodyBytes, &loginResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if loginResp.AccessToken == "" {
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    "login response carried no access token",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if err := s.storeCredentials(ctx, loginResp.AccessToken, loginResp.RefreshToken, false, loginResp.User); err != nil {
		// Never leave the new access token next to the previous account's
		// refresh token or profile.
		s.clearLocked(ctx)
		return nil, err
	}

	s.log(ctx).Info("logged in", "email", req.Email, "refreshable", loginResp.RefreshToken != "")
	return &loginResp, nil
}

// Register creates an account. It does not log in: the store is not touched.
// A rejected registration returns a *ValidationError.
func (s *Session) Register(ctx context.Context, name, email, password string) (*RegisterResponse, error) {
	req := RegisterRequest{
		Name:     strings.TrimSpace(name),
		Email:    normalizeEmail(email),
		Password: password,
	}

	resp, err := s.client.postJSON(ctx, s.client.Endpoints.Register, req)
	if err != nil {
		return nil, err
	}

	if !success(resp.StatusCode) {
		body := readErrorBody(resp)
		return nil, &ValidationError{
			StatusCode: resp.StatusCode,
			Message:    serverMessage(body, defaultRegisterMessage),
		}
	}

	bodyBytes, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	registerResp := RegisterResponse{Success: true}
	if len(strings.TrimSpace(string(bodyBytes))) > 0 {
		if err := json.Unmarshal(bodyBytes, &registerResp); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	s.log(ctx).Info("registered account", "email", req.Email)
	return &registerResp, nil
}

// ============================================================================
// Logout
// ============================================================================

// Logout removes the access token, refresh token and cached profile, even
// when ctx is already cancelled. It never fails; store errors are logged. When redirect is true the navigator is sent
// to the login surface, unless it is already there.
func (s *Session) Logout(ctx context.Context, redirect bool) {
	s.mu.Lock()
	s.generation++
	s.clearLocked(ctx)
	s.mu.Unlock()

	s.log(ctx).Info("logged out", "redirect", redirect)

	if !redirect {
		return
	}
	loginPath := s.client.LoginPath
	if loginPath == "" || samePath(s.nav.CurrentPath(), loginPath) {
		return
	}
	s.nav.Navigate(loginPath)
}

// Revoke tells the server the session is over, then logs out locally whatever
// the server answered. The returned error is informational: the local session
// is gone either way.
func (s *Session) Revoke(ctx context.Context) error {
	defer s.Logout(ctx, true)

	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	resp, err := s.client.doRequest(ctx, http.MethodPost, s.client.Endpoints.Logout, nil, map[string]string{
		headerAuthorization: "Bearer " + token,
	})
	if err != nil {
		return err
	}

	if !success(resp.StatusCode) {
		return parseErrorResponse(resp, readErrorBody(resp))
	}
	discard(resp)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
