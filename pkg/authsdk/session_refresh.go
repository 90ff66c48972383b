package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
)

// refreshKey is the single-flight key shared by every refresh of a Session.
const refreshKey = "refresh"

// Refresh trades the stored refresh token for a new access token and returns
// it. Concurrent callers share one call to the refresh endpoint: a rotating
// refresh token is never presented twice.
//
// Without a stored refresh token the session is logged out and
// ErrSessionExpired is returned. A rejection by the server logs out and
// returns a *RefreshFailedError. A transport failure returns a *NetworkError
// and keeps the stored credentials.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	// The shared call must not die with whichever caller happened to start it.
	shared := context.WithoutCancel(ctx)
	ch := s.refresh.DoChan(refreshKey, func() (any, error) {
		return s.doRefresh(shared)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			s.log(ctx).Debug("joined in-flight token refresh")
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Session) doRefresh(ctx context.Context) (string, error) {
	log := s.log(ctx)
	gen := s.currentGeneration()

	refresh, err := s.refreshToken(ctx)
	if err != nil {
		return "", err
	}
	if refresh == "" {
		log.Warn("token refresh impossible, no refresh token stored")
		s.Logout(ctx, true)
		return "", ErrSessionExpired
	}

	log.Debug("refreshing access token")
	resp, err := s.client.doRequest(ctx, http.MethodPost, s.client.Endpoints.Refresh, nil, map[string]string{
		headerAuthorization: "Bearer " + refresh,
	})
	if err != nil {
		log.Warn("token refresh request failed", "err", err)
		return "", err
	}

	if !success(resp.StatusCode) {
		body := readErrorBody(resp)
		log.Warn("token refresh rejected", "status", resp.StatusCode)
		s.Logout(ctx, true)
		return "", &RefreshFailedError{
			StatusCode: resp.StatusCode,
			Message:    serverMessage(body, ""),
		}
	}

	bodyBytes, err := readBody(resp)
	if err != nil {
		return "", err
	}

	var refreshResp RefreshResponse
	if err := json.Unmarshal(bodyBytes, &refreshResp); err != nil || refreshResp.AccessToken == "" {
		log.Warn("token refresh returned no usable access token", "status", resp.StatusCode)
		s.Logout(ctx, true)
		return "", &RefreshFailedError{
			StatusCode: resp.StatusCode,
			Message:    "refresh response carried no access token",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		// A logout or a new login happened while the call was in flight.
		// Its state wins; this result is dropped.
		current, err := s.accessToken(ctx)
		if err != nil {
			return "", err
		}
		if current == "" {
			log.Debug("dropping refresh result, session ended while in flight")
			return "", ErrSessionTerminated
		}
		log.Debug("dropping refresh result, session replaced while in flight")
		return current, nil
	}

	// Keep the stored refresh token unless the server rotated it.
	if err := s.storeCredentials(ctx, refreshResp.AccessToken, refreshResp.RefreshToken, true, refreshResp.User); err != nil {
		return "", err
	}

	log.Debug("access token refreshed", "rotated", refreshResp.RefreshToken != "")
	return refreshResp.AccessToken, nil
}
