package authsdk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aussiebroadwan/sessionkit/pkg/idx"
)

// RequestOptions describes a request sent through AuthenticatedFetch.
// Body is a byte slice so the request can be replayed after a refresh.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   []byte
}

// AuthenticatedFetch sends a request carrying the stored access token.
//
// rawURL is used as-is when absolute, otherwise it is resolved against the
// client's BaseURL; the resolved URL is used for every attempt. A nil opts
// sends a GET without a body.
//
// When the server answers 401 and a refresh token is stored, the access token
// is refreshed (joining any refresh already in flight) and the request is sent
// exactly once more; whatever that attempt returns is handed back, including a
// second 401. Without a refresh token the first 401 is returned untouched.
// If refreshing fails the session has been logged out and the returned error
// matches ErrSessionTerminated. Transport failures return a *NetworkError and
// are never retried. The caller must close the response body.
func (s *Session) AuthenticatedFetch(ctx context.Context, rawURL string, opts *RequestOptions) (*http.Response, error) {
	var o RequestOptions
	if opts != nil {
		o = *opts
	}
	if o.Method == "" {
		o.Method = http.MethodGet
	}

	target := s.client.resolveURL(rawURL)

	header := o.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if header.Get(headerRequestID) == "" {
		header.Set(headerRequestID, idx.New().String())
	}

	log := s.log(ctx).With("req_id", header.Get(headerRequestID), "method", o.Method, "url", target)

	sent, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.send(ctx, o.Method, target, header, o.Body, sent)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	refresh, err := s.refreshToken(ctx)
	if err != nil {
		discard(resp)
		return nil, err
	}
	if refresh == "" {
		log.Debug("unauthorized, no refresh token stored")
		return resp, nil
	}

	// Another caller may have refreshed while this request was on the wire.
	current, err := s.accessToken(ctx)
	if err != nil {
		discard(resp)
		return nil, err
	}
	if current == "" || current == sent {
		log.Debug("unauthorized, refreshing access token")
		if _, err := s.Refresh(ctx); err != nil {
			discard(resp)
			if errors.Is(err, ErrSessionTerminated) {
				return nil, err
			}
			if terminates(err) {
				return nil, fmt.Errorf("%w: %w", ErrSessionTerminated, err)
			}
			return nil, err
		}

		// A logout may have landed between the refresh and now.
		current, err = s.accessToken(ctx)
		if err != nil {
			discard(resp)
			return nil, err
		}
		if current == "" {
			discard(resp)
			log.Debug("session ended before retry")
			return nil, ErrSessionTerminated
		}
	} else {
		log.Debug("unauthorized, access token already rotated")
	}

	discard(resp)
	log.Debug("retrying request with new access token")
	return s.send(ctx, o.Method, target, header, o.Body, current)
}

func (s *Session) send(
	ctx context.Context,
	method, target string,
	header http.Header,
	body []byte,
	token string,
) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = header.Clone()
	if token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+token)
	}

	resp, err := s.client.HTTPClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}

	return resp, nil
}
