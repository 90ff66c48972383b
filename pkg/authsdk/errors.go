package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ============================================================================
// Session Errors
// ============================================================================

var (
	// ErrSessionExpired is returned by Refresh when no refresh token is stored.
	// The session has already been logged out when this is returned.
	ErrSessionExpired = errors.New("authsdk: session expired")

	// ErrRefreshFailed matches every *RefreshFailedError.
	ErrRefreshFailed = errors.New("authsdk: token refresh failed")

	// ErrSessionTerminated is returned by AuthenticatedFetch when a 401 could
	// not be recovered because refreshing failed. It wraps the refresh error.
	// The session has already been logged out when this is returned.
	ErrSessionTerminated = errors.New("authsdk: session terminated")
)

// RefreshFailedError is returned when the refresh endpoint rejected the
// refresh token.
type RefreshFailedError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *RefreshFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("token refresh failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("token refresh failed with status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrRefreshFailed) match.
func (e *RefreshFailedError) Is(target error) bool {
	return target == ErrRefreshFailed
}

// terminates reports whether err means the local session is gone.
func terminates(err error) bool {
	return errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrRefreshFailed) ||
		errors.Is(err, ErrSessionTerminated)
}

// ============================================================================
// Request Errors
// ============================================================================

// AuthError is returned when the login endpoint rejects the credentials.
type AuthError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("login rejected (status %d): %s", e.StatusCode, e.Message)
}

// ValidationError is returned when the registration endpoint rejects the
// submitted account data.
type ValidationError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("registration rejected (status %d): %s", e.StatusCode, e.Message)
}

// APIError is a non-success response from any other endpoint.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("request failed with status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// NetworkError is a transport-level failure: no response was received.
// It is never retried.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to send request %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// ============================================================================
// Error Parsing Helpers
// ============================================================================

const (
	defaultLoginMessage    = "login failed"
	defaultRegisterMessage = "registration failed"
)

// parseErrorResponse extracts the server's message from an error body.
// The API answers {"error": "..."} and sometimes adds {"code": "..."}.
// Falls back to the HTTP status text when the body carries neither.
func parseErrorResponse(resp *http.Response, body []byte) *APIError {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		msg := strings.TrimSpace(errResp.Error)
		if msg == "" {
			msg = strings.TrimSpace(errResp.Message)
		}
		if msg != "" {
			return &APIError{
				StatusCode: resp.StatusCode,
				Code:       errResp.Code,
				Message:    msg,
			}
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

// serverMessage returns the server supplied message, or def when the body
// carried none.
func serverMessage(body []byte, def string) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if msg := strings.TrimSpace(errResp.Error); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(errResp.Message); msg != "" {
			return msg
		}
	}
	return def
}
