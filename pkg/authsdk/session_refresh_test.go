package authsdk

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRefreshWithoutRefreshToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.srv.SetLoginRefreshToken(false)
	f.login(t)

	_, err := f.session.Refresh(t.Context())
	require.ErrorIs(t, err, ErrSessionExpired)

	require.Zero(t, f.srv.RefreshCalls())
	requireLoggedOut(t, f)
	require.Equal(t, []string{"/login"}, f.nav.Visits())
}

func TestRefreshRotates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	login := f.login(t)

	access, err := f.session.Refresh(ctx)
	require.NoError(t, err)
	require.NotEqual(t, login.AccessToken, access)
	require.Equal(t, access, f.session.AccessToken(ctx))

	rotated := f.session.RefreshToken(ctx)
	require.NotEmpty(t, rotated)
	require.NotEqual(t, login.RefreshToken, rotated)

	_, err = f.session.Refresh(ctx)
	require.NoError(t, err)

	// Each refresh token was presented exactly once
	require.Equal(t, []string{login.RefreshToken, rotated}, f.srv.RefreshBearers())
	require.Equal(t, 2, f.srv.RefreshCalls())
}

func TestRefreshWithoutRotationKeepsRefreshToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.srv.SetRotateRefresh(false)
	login := f.login(t)

	access, err := f.session.Refresh(ctx)
	require.NoError(t, err)
	require.NotEqual(t, login.AccessToken, access)
	require.Equal(t, login.RefreshToken, f.session.RefreshToken(ctx))
}

func TestRefreshUpdatesCachedProfile(t *testing.T) {
	t.Parallel()

	t.Run("profile in response", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		f.srv.SetRefreshUser(true)
		f.srv.SetPremium(testEmail, true)

		_, err := f.session.Refresh(t.Context())
		require.NoError(t, err)

		user := f.session.GetUser(t.Context())
		require.NotNil(t, user)
		require.True(t, user.IsPremium)
	})

	t.Run("no profile in response", func(t *testing.T) {
		f := newFixture(t)
		login := f.login(t)
		f.srv.SetPremium(testEmail, true)

		_, err := f.session.Refresh(t.Context())
		require.NoError(t, err)
		require.Equal(t, login.User, f.session.GetUser(t.Context()))
	})
}

func TestRefreshRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.login(t)
	f.srv.RevokeRefreshTokens()

	_, err := f.session.Refresh(t.Context())
	require.ErrorIs(t, err, ErrRefreshFailed)

	var refreshErr *RefreshFailedError
	require.ErrorAs(t, err, &refreshErr)
	require.Equal(t, http.StatusUnauthorized, refreshErr.StatusCode)
	require.Equal(t, "Token inválido", refreshErr.Message)

	requireLoggedOut(t, f)
	require.Equal(t, []string{"/login"}, f.nav.Visits())
}

func TestRefreshEmptySuccessBody(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusOK, http.StatusNoContent} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			f := newFixture(t)
			f.login(t)
			f.srv.SetRefreshStatus(status)

			_, err := f.session.Refresh(t.Context())
			require.ErrorIs(t, err, ErrRefreshFailed)
			requireLoggedOut(t, f)
		})
	}
}

func TestRefreshServerError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.login(t)
	f.srv.SetRefreshStatus(http.StatusInternalServerError)

	_, err := f.session.Refresh(t.Context())

	var refreshErr *RefreshFailedError
	require.ErrorAs(t, err, &refreshErr)
	require.Equal(t, http.StatusInternalServerError, refreshErr.StatusCode)
	requireLoggedOut(t, f)
}

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

var errOffline = errors.New("network unreachable")

// failRefreshTransport fails every call to the refresh endpoint and lets the
// rest through.
func failRefreshTransport() http.RoundTripper {
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if strings.HasSuffix(r.URL.Path, "/api/refresh") {
			return nil, errOffline
		}
		return http.DefaultTransport.RoundTrip(r)
	})
}

func TestRefreshNetworkErrorKeepsCredentials(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	login := f.login(t)
	f.session.client.HTTPClient = &http.Client{Transport: failRefreshTransport()}

	_, err := f.session.Refresh(ctx)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.ErrorIs(t, err, errOffline)
	require.NotErrorIs(t, err, ErrRefreshFailed)

	require.Equal(t, login.AccessToken, f.session.AccessToken(ctx))
	require.Equal(t, login.RefreshToken, f.session.RefreshToken(ctx))
	require.NotNil(t, f.session.GetUser(ctx))
	require.Empty(t, f.nav.Visits())
}

func TestConcurrentRefreshSharesOneCall(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	login := f.login(t)
	started, release := f.srv.BlockRefresh()
	t.Cleanup(release)

	const callers = 16

	var (
		ready sync.WaitGroup
		done  sync.WaitGroup
	)
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := range callers {
		ready.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			ready.Done()
			tokens[i], errs[i] = f.session.Refresh(ctx)
		}()
	}

	ready.Wait()
	<-started
	// Let the stragglers join the parked call.
	time.Sleep(50 * time.Millisecond)
	release()
	done.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		require.Equal(t, tokens[0], tokens[i])
	}
	require.Equal(t, f.session.AccessToken(ctx), tokens[0])
	require.Equal(t, 1, f.srv.RefreshCalls())
	require.Equal(t, []string{login.RefreshToken}, f.srv.RefreshBearers())
}

func TestLogoutDuringRefresh(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.login(t)
	started, release := f.srv.BlockRefresh()
	t.Cleanup(release)

	errCh := make(chan error, 1)
	go func() {
		_, err := f.session.Refresh(ctx)
		errCh <- err
	}()

	<-started
	f.session.Logout(ctx, false)
	release()

	require.ErrorIs(t, <-errCh, ErrSessionTerminated)
	requireLoggedOut(t, f)
}

func TestLoginDuringRefresh(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.login(t)
	started, release := f.srv.BlockRefresh()
	t.Cleanup(release)

	type result struct {
		token string
		err   error
	}
	resCh := make(chan result, 1)
	go func() {
		token, err := f.session.Refresh(ctx)
		resCh <- result{token, err}
	}()

	<-started
	second := f.login(t)
	release()

	res := <-resCh
	require.NoError(t, res.err)
	require.Equal(t, second.AccessToken, res.token)

	// The new login survives the late refresh result
	require.Equal(t, second.AccessToken, f.session.AccessToken(ctx))
	require.Equal(t, second.RefreshToken, f.session.RefreshToken(ctx))
}

func TestRefreshWaiterCancellation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	login := f.login(t)
	started, release := f.srv.BlockRefresh()
	t.Cleanup(release)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		_, err := f.session.Refresh(ctx)
		errCh <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// The shared call carries on and commits its result
	release()
	require.Eventually(t, func() bool {
		return f.session.AccessToken(t.Context()) != login.AccessToken
	}, 2*time.Second, 10*time.Millisecond)
	require.NotEqual(t, login.RefreshToken, f.session.RefreshToken(t.Context()))
	require.Equal(t, 1, f.srv.RefreshCalls())
}
