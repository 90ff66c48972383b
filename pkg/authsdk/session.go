package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
)

// Session is the single source of truth for the application's login state.
// It reads credentials from its CredentialStore on every call, so several
// Sessions over one durable store see each other's writes, but only callers
// sharing the same *Session are serialized by the refresh guard.
//
// Sessions are safe for concurrent use.
type Session struct {
	client *SDKClient
	store  CredentialStore
	nav    Navigator

	// refresh holds the in-flight call to the refresh endpoint.
	refresh singleflight.Group

	// mu serializes the write paths (login, refresh commit, logout).
	// generation is bumped by login and logout so a refresh that started
	// before either one does not write stale tokens back.
	mu         sync.Mutex
	generation uint64
}

// IsAuthenticated reports whether an access token is stored. It does not
// check the token's validity; the API decides that by answering 401.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	token, err := s.accessToken(ctx)
	if err != nil {
		s.log(ctx).Warn("credential store read failed", "key", s.client.Keys.AccessToken, "err", err)
		return false
	}
	return token != ""
}

// GetUser returns the cached profile snapshot, or nil when there is none or
// it cannot be decoded.
func (s *Session) GetUser(ctx context.Context) *UserProfile {
	raw, ok, err := s.store.Get(ctx, s.client.Keys.User)
	if err != nil {
		s.log(ctx).Warn("credential store read failed", "key", s.client.Keys.User, "err", err)
		return nil
	}
	if !ok || raw == "" || strings.TrimSpace(raw) == "null" {
		return nil
	}

	var user UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.log(ctx).Warn("discarding malformed cached profile", "err", err)
		return nil
	}
	return &user
}

// AccessToken returns the stored access token, or "" when logged out.
// For most use cases, prefer AuthenticatedFetch which handles refresh.
func (s *Session) AccessToken(ctx context.Context) string {
	token, _ := s.accessToken(ctx)
	return token
}

// RefreshToken returns the stored refresh token, or "" when none is stored.
func (s *Session) RefreshToken(ctx context.Context) string {
	token, _ := s.refreshToken(ctx)
	return token
}

func (s *Session) accessToken(ctx context.Context) (string, error) {
	return s.get(ctx, s.client.Keys.AccessToken)
}

func (s *Session) refreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, s.client.Keys.RefreshToken)
}

func (s *Session) get(ctx context.Context, key string) (string, error) {
	v, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read %q from credential store: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return v, nil
}

// storeCredentials writes a credential pair and profile. With partial set
// (refresh responses) an empty refresh token or a nil user keeps the stored
// value; otherwise (login) it removes it.
// The caller must hold s.mu.
func (s *Session) storeCredentials(
	ctx context.Context,
	access, refresh string,
	partial bool,
	user *UserProfile,
) error {
	keys := s.client.Keys

	if err := s.store.Set(ctx, keys.AccessToken, access); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}

	switch {
	case refresh != "":
		if err := s.store.Set(ctx, keys.RefreshToken, refresh); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
	case !partial:
		if err := s.store.Remove(ctx, keys.RefreshToken); err != nil {
			return fmt.Errorf("failed to remove stale refresh token: %w", err)
		}
	}

	switch {
	case user != nil:
		raw, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to encode profile: %w", err)
		}
		if err := s.store.Set(ctx, keys.User, string(raw)); err != nil {
			return fmt.Errorf("failed to store profile: %w", err)
		}
	case !partial:
		if err := s.store.Remove(ctx, keys.User); err != nil {
			return fmt.Errorf("failed to remove stale profile: %w", err)
		}
	}

	return nil
}

// clearLocked removes every credential entry, logging failures. It runs
// detached from ctx's cancellation so an expired caller still ends up
// logged out.
// The caller must hold s.mu.
func (s *Session) clearLocked(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range s.client.Keys.all() {
		if err := s.store.Remove(ctx, key); err != nil {
			s.log(ctx).Warn("failed to clear credential", "key", key, "err", err)
		}
	}
}

func (s *Session) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Session) log(ctx context.Context) *slog.Logger {
	if l, ok := slogx.LoggerFromContext(ctx); ok {
		return l
	}
	return s.client.logger()
}
