package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessionkit/internal/credstore/credstoretest"
	"github.com/aussiebroadwan/sessionkit/internal/credstore/sqlite"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk/authtest"
	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	t.Parallel()

	credstoretest.Run(t, func(t *testing.T) authsdk.CredentialStore {
		return openStore(t, filepath.Join(t.TempDir(), "credentials.db"))
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	s := openStore(t, filepath.Join(t.TempDir(), "credentials.db"))
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(t.Context()))
}

func TestValuesSurviveReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.db")
	ctx := t.Context()

	first, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "refresh_token", "durable"))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	v, ok, err := second.Get(ctx, "refresh_token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "durable", v)
}

func TestSessionSurvivesRestart(t *testing.T) {
	t.Parallel()

	srv := authtest.NewServer(t)
	srv.AddUser("Ana", "ana@mail.com", "segredo123")
	path := filepath.Join(t.TempDir(), "credentials.db")
	ctx := t.Context()

	newSession := func(store authsdk.CredentialStore) *authsdk.Session {
		client := authsdk.NewSDKClient(srv.URL)
		client.Logger = slogx.Discard()
		return client.NewSession(store, nil)
	}

	first, err := sqlite.Open(path)
	require.NoError(t, err)
	login, err := newSession(first).Login(ctx, "ana@mail.com", "segredo123")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	session := newSession(openStore(t, path))
	require.True(t, session.IsAuthenticated(ctx))
	require.Equal(t, login.AccessToken, session.AccessToken(ctx))
	require.Equal(t, "Ana", session.GetUser(ctx).Name)

	srv.ExpireAccessTokens()
	ok, err := session.VerifyToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, srv.RefreshCalls())
}

func TestLogoutWithCancelledContext(t *testing.T) {
	t.Parallel()

	srv := authtest.NewServer(t)
	srv.AddUser("Ana", "ana@mail.com", "segredo123")
	store := openStore(t, filepath.Join(t.TempDir(), "credentials.db"))

	client := authsdk.NewSDKClient(srv.URL)
	client.Logger = slogx.Discard()
	session := client.NewSession(store, nil)

	_, err := session.Login(t.Context(), "ana@mail.com", "segredo123")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	session.Logout(ctx, false)

	require.False(t, session.IsAuthenticated(t.Context()))
	require.Nil(t, session.GetUser(t.Context()))
	keys := authsdk.DefaultStoreKeys()
	for _, key := range []string{keys.AccessToken, keys.RefreshToken, keys.User} {
		_, ok, err := store.Get(t.Context(), key)
		require.NoError(t, err)
		require.False(t, ok, "key %q", key)
	}
}
