package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/sessionkit/pkg/idx"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
	headerContentType   = "Content-Type"
)

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// url builds a complete URL by appending the path to the base URL.
func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// resolveURL returns raw unchanged when it is absolute, otherwise prefixes it
// with the base URL.
func (c *SDKClient) resolveURL(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return raw
	}
	if raw != "" && !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return c.url(raw)
}

// doRequest performs an HTTP request with the SDKClient's HTTP client.
// This is for requests that carry no access token (login, registration,
// refresh); the caller sets any Authorization header itself.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	target := c.url(path)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set custom headers
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get(headerRequestID) == "" {
		req.Header.Set(headerRequestID, idx.New().String())
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}

	return resp, nil
}

// postJSON marshals v and POSTs it to path.
func (c *SDKClient) postJSON(ctx context.Context, path string, v any) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		headerContentType: "application/json",
	}

	return c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(body), headers)
}

// readBody reads and closes the response body.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return bodyBytes, nil
}

// readErrorBody reads at most maxErrorBody bytes and closes the body.
func readErrorBody(resp *http.Response) []byte {
	defer resp.Body.Close()
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return bodyBytes
}

// discard drains and closes a response we are about to replace, so the
// connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}

// decodeJSON decodes a JSON response into the target interface.
// Returns an *APIError if the response status is not 2xx.
func decodeJSON(resp *http.Response, target any) error {
	if !success(resp.StatusCode) {
		return parseErrorResponse(resp, readErrorBody(resp))
	}

	bodyBytes, err := readBody(resp)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}
