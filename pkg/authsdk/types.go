package authsdk

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse is the error body returned by the API.
// Client code should use the typed errors from errors.go instead.
type ErrorResponse struct {
	// Error is the human-readable message (e.g., "Email ou senha incorretos")
	Error string `json:"error"`

	// Code is a machine-readable reason, sent for token failures
	// (e.g., "token_expired", "invalid_token", "missing_token")
	Code string `json:"code,omitempty"`

	// Message is used by a few endpoints instead of Error
	Message string `json:"message,omitempty"`
}

// ============================================================================
// Auth Types
// ============================================================================

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned from POST /api/login.
type LoginResponse struct {
	// AccessToken is the short-lived bearer token for protected requests
	AccessToken string `json:"access_token"`

	// RefreshToken mints new access tokens. Older deployments omit it.
	RefreshToken string `json:"refresh_token,omitempty"`

	// User is the profile snapshot of the logged in account
	User *UserProfile `json:"user,omitempty"`
}

// RegisterRequest is the body of POST /api/cadastro.
type RegisterRequest struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is returned from POST /api/cadastro.
type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RefreshResponse is returned from POST /api/refresh.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`

	// RefreshToken is set when the server rotated the refresh token
	RefreshToken string `json:"refresh_token,omitempty"`

	// User is set when the server sends a fresh profile snapshot
	User *UserProfile `json:"user,omitempty"`
}

// VerifyResponse is returned from GET /api/verify-token.
type VerifyResponse struct {
	Success bool            `json:"success"`
	UserID  json.RawMessage `json:"user_id,omitempty"`
}

// ============================================================================
// User Types
// ============================================================================

// UserProfile is the cached snapshot of the logged in account. It is written
// on login and on refresh responses that carry a profile; it may be stale.
// Trial and premium fields are cached for other layers and never interpreted
// here.
type UserProfile struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"nome,omitempty"`
	Email        string `json:"email,omitempty"`
	IsPremium    bool   `json:"is_premium"`
	TrialExpired bool   `json:"trial_expired"`
	CreatedAt    string `json:"data_criacao,omitempty"`

	// Raw is the profile object exactly as the server sent it, including
	// fields this type does not model.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts both "nome" and "name", and numeric or string ids.
func (u *UserProfile) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID           json.RawMessage `json:"id"`
		Nome         string          `json:"nome"`
		Name         string          `json:"name"`
		Email        string          `json:"email"`
		IsPremium    bool            `json:"is_premium"`
		TrialExpired bool            `json:"trial_expired"`
		CreatedAt    string          `json:"data_criacao"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*u = UserProfile{
		ID:           rawID(wire.ID),
		Name:         wire.Nome,
		Email:        wire.Email,
		IsPremium:    wire.IsPremium,
		TrialExpired: wire.TrialExpired,
		CreatedAt:    wire.CreatedAt,
		Raw:          append(json.RawMessage(nil), data...),
	}
	if u.Name == "" {
		u.Name = wire.Name
	}
	return nil
}

// MarshalJSON writes Raw when present so a cached profile round-trips
// untouched.
func (u UserProfile) MarshalJSON() ([]byte, error) {
	if len(u.Raw) > 0 {
		return u.Raw, nil
	}
	type plain UserProfile
	return json.Marshal(plain(u))
}

func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}
