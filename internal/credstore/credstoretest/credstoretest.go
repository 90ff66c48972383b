// Package credstoretest holds the behaviour every authsdk.CredentialStore
// driver must share.
package credstoretest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
)

// Run exercises a driver. newStore must return an empty store each call.
func Run(t *testing.T, newStore func(t *testing.T) authsdk.CredentialStore) {
	t.Helper()

	t.Run("missing key", func(t *testing.T) {
		s := newStore(t)

		v, ok, err := s.Get(t.Context(), "access_token")
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.Set(ctx, "access_token", "eyJhbGciOi.payload.sig"))

		v, ok, err := s.Get(ctx, "access_token")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "eyJhbGciOi.payload.sig", v)
	})

	t.Run("set replaces", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.Set(ctx, "refresh_token", "first"))
		require.NoError(t, s.Set(ctx, "refresh_token", "second"))

		v, ok, err := s.Get(ctx, "refresh_token")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "second", v)
	})

	t.Run("empty value is present", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.Set(ctx, "user", ""))

		v, ok, err := s.Get(ctx, "user")
		require.NoError(t, err)
		require.True(t, ok)
		require.Empty(t, v)
	})

	t.Run("values round trip untouched", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		profile := `{"id":1,"nome":"José Ünïcode","extra":{"a":[1,2,3]}}` + "\n"
		require.NoError(t, s.Set(ctx, "user", profile))

		v, _, err := s.Get(ctx, "user")
		require.NoError(t, err)
		require.Equal(t, profile, v)
	})

	t.Run("remove", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.Set(ctx, "access_token", "a"))
		require.NoError(t, s.Set(ctx, "refresh_token", "r"))
		require.NoError(t, s.Remove(ctx, "access_token"))

		_, ok, err := s.Get(ctx, "access_token")
		require.NoError(t, err)
		require.False(t, ok)

		v, ok, err := s.Get(ctx, "refresh_token")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "r", v)
	})

	t.Run("remove missing key", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Remove(t.Context(), "never_set"))
	})

	t.Run("concurrent use", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers*3)

		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				key := fmt.Sprintf("key-%d", i)
				errs <- s.Set(ctx, key, key)
				_, _, err := s.Get(ctx, key)
				errs <- err
				errs <- s.Remove(ctx, key)
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
	})
}
