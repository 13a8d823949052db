package integrations

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a single feed request when the caller sets none.
const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// NewHTTPClient creates an HTTP client with the given timeout.
// A non-positive timeout selects [DefaultTimeout].
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
