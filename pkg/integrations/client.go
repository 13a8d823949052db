package integrations

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/psfind/pkg/errors"
	"github.com/matzehuels/psfind/pkg/observability"
)

// Client provides shared HTTP functionality for feed clients.
// It applies common request headers and classifies failures into coded errors.
//
// Every call performs exactly one request: there is no retry and no cache.
type Client struct {
	http    *http.Client
	headers map[string]string
}

// NewClient creates a Client with the given request timeout and default headers.
// Headers are applied to all requests made through this client.
// Pass nil for headers if no default headers are needed.
func NewClient(timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		http:    NewHTTPClient(timeout),
		headers: headers,
	}
}

// GetBytes performs an HTTP GET request and returns the response body.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return c.GetBytesWithHeaders(ctx, rawURL, nil)
}

// GetBytesWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
//
// Errors:
//   - CANCELLED when ctx is done before the body is read
//   - TRANSPORT for network failures and non-2xx responses; the latter carry
//     the status code and a truncated body
func (c *Client) GetBytesWithHeaders(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	body, err := c.doRequest(ctx, rawURL, headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, classify(ctx, err, "read %s", rawURL)
	}
	return data, nil
}

func (c *Client) doRequest(ctx context.Context, rawURL string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransport, err, "build request for %s", rawURL)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	host, path := hostPath(req.URL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, classify(ctx, err, "GET %s", rawURL)
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp, rawURL); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// checkStatus converts a non-2xx response into a TRANSPORT error carrying the
// status code and the first maxErrorBody bytes of the body.
func checkStatus(resp *http.Response, rawURL string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &errors.Error{
		Code:       errors.ErrCodeTransport,
		Message:    "GET " + rawURL,
		StatusCode: resp.StatusCode,
		Body:       string(snippet),
	}
}

// classify maps a request failure to CANCELLED when the context ended and to
// TRANSPORT otherwise.
func classify(ctx context.Context, err error, format string, args ...any) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrap(errors.ErrCodeCancelled, ctxErr, format, args...)
	}
	return errors.Wrap(errors.ErrCodeTransport, err, format, args...)
}

func hostPath(u *url.URL) (string, string) {
	if u == nil {
		return "", ""
	}
	return u.Host, u.Path
}
