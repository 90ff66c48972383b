package credstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/sessionkit/internal/credstore/redis"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk/authtest"
	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
)

/*
 * Helpers for the credential store end-to-end tests. These run the redis
 * driver against a real Redis server in a container, so Docker is required.
 */

const (
	redisImage = "redis:7-alpine"

	testName     = "Ana"
	testEmail    = "ana@mail.com"
	testPassword = "segredo123"
)

// setupRedisContainer starts Redis and returns its address.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, mappedPort.Port())
}

// openStore connects a redis credential store with its own prefix.
func openStore(t *testing.T, addr, prefix string) *redis.Store {
	t.Helper()

	s, err := redis.Open(t.Context(), addr, prefix)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newAPI starts the fake API with one known account.
func newAPI(t *testing.T) *authtest.Server {
	t.Helper()

	srv := authtest.NewServer(t)
	srv.AddUser(testName, testEmail, testPassword)
	return srv
}

// newSession builds a session over store talking to srv.
func newSession(srv *authtest.Server, store authsdk.CredentialStore) *authsdk.Session {
	client := authsdk.NewSDKClient(srv.URL)
	client.Logger = slogx.Discard()
	return client.NewSession(store, nil)
}
