// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about resolution calls and feed requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the resolution packages
// never import a metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetFindHooks(&myFindHooks{})
//	    observability.SetHTTPHooks(&myHTTPHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Find().OnFindStart(ctx, repo, request)
//	// ... resolve ...
//	observability.Find().OnFindComplete(ctx, repo, request, results, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Find Hooks
// =============================================================================

// FindHooks receives events from request resolution.
type FindHooks interface {
	// Single request events. request is a short description of the request.
	OnFindStart(ctx context.Context, repository, request string)
	OnFindComplete(ctx context.Context, repository, request string, results int, duration time.Duration, err error)

	// Batch events. failed counts the slots holding an error record.
	OnBatchStart(ctx context.Context, repository string, items int)
	OnBatchComplete(ctx context.Context, repository string, items, failed int, duration time.Duration)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopFindHooks is a no-op implementation of FindHooks.
type NoopFindHooks struct{}

func (NoopFindHooks) OnFindStart(context.Context, string, string) {}
func (NoopFindHooks) OnFindComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopFindHooks) OnBatchStart(context.Context, string, int)                        {}
func (NoopFindHooks) OnBatchComplete(context.Context, string, int, int, time.Duration) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	findHooks FindHooks = NoopFindHooks{}
	httpHooks HTTPHooks = NoopHTTPHooks{}
	hooksMu   sync.RWMutex
)

// SetFindHooks registers custom find hooks.
// This should be called once at application startup before any find operations.
func SetFindHooks(h FindHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		findHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Find returns the registered find hooks.
func Find() FindHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return findHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	findHooks = NoopFindHooks{}
	httpHooks = NoopHTTPHooks{}
}
