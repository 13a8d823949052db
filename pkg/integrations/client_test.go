package integrations

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/psfind/pkg/errors"
	"github.com/matzehuels/psfind/pkg/observability"
)

func TestNewClient(t *testing.T) {
	headers := map[string]string{"Accept": "application/atom+xml"}
	client := NewClient(5*time.Second, headers)

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.http.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.http.Timeout)
	}
	if client.headers["Accept"] != "application/atom+xml" {
		t.Error("NewClient() headers not set correctly")
	}
}

func TestNewClientNilHeaders(t *testing.T) {
	client := NewClient(0, nil)

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.headers != nil {
		t.Error("NewClient() should allow nil headers")
	}
}

func TestClientGetBytes(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Write([]byte("<feed/>"))
	}))
	defer server.Close()

	client := NewClient(time.Second, nil)
	client.http = server.Client()

	body, err := client.GetBytes(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetBytes() error: %v", err)
	}
	if string(body) != "<feed/>" {
		t.Errorf("GetBytes() = %q, want %q", body, "<feed/>")
	}
	if calls != 1 {
		t.Errorf("server calls = %d, want 1", calls)
	}
}

func TestClientGetBytesWithHeadersOverridesDefaults(t *testing.T) {
	var receivedDefault, receivedOverride string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedDefault = r.Header.Get("X-Default")
		receivedOverride = r.Header.Get("X-Override")
	}))
	defer server.Close()

	client := NewClient(time.Second, map[string]string{"X-Default": "default", "X-Override": "default"})
	client.http = server.Client()

	_, err := client.GetBytesWithHeaders(context.Background(), server.URL, map[string]string{"X-Override": "overridden"})
	if err != nil {
		t.Fatalf("GetBytesWithHeaders() error: %v", err)
	}
	if receivedDefault != "default" {
		t.Errorf("default header = %q, want %q", receivedDefault, "default")
	}
	if receivedOverride != "overridden" {
		t.Errorf("header = %q, want %q", receivedOverride, "overridden")
	}
}

func TestClientNon2xxIsSingleAttempt(t *testing.T) {
	tests := []struct {
		name string
		code int
	}{
		{"404 Not Found", http.StatusNotFound},
		{"400 Bad Request", http.StatusBadRequest},
		{"500 Internal Server Error", http.StatusInternalServerError},
		{"503 Service Unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.code)
				w.Write([]byte("gallery says no"))
			}))
			defer server.Close()

			client := NewClient(time.Second, nil)
			client.http = server.Client()

			_, err := client.GetBytes(context.Background(), server.URL)
			if !errors.Is(err, errors.ErrCodeTransport) {
				t.Fatalf("GetBytes() error = %v, want TRANSPORT", err)
			}
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("error type = %T, want *errors.Error", err)
			}
			if e.StatusCode != tt.code {
				t.Errorf("StatusCode = %d, want %d", e.StatusCode, tt.code)
			}
			if e.Body != "gallery says no" {
				t.Errorf("Body = %q", e.Body)
			}
			if calls != 1 {
				t.Errorf("server calls = %d, want exactly 1", calls)
			}
		})
	}
}

func TestClientTruncatesErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(strings.Repeat("x", 3*maxErrorBody)))
	}))
	defer server.Close()

	client := NewClient(time.Second, nil)
	client.http = server.Client()

	_, err := client.GetBytes(context.Background(), server.URL)
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error = %v, want *errors.Error", err)
	}
	if len(e.Body) != maxErrorBody {
		t.Errorf("len(Body) = %d, want %d", len(e.Body), maxErrorBody)
	}
}

func TestClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(time.Second, nil)
	_, err := client.GetBytes(context.Background(), url)
	if !errors.Is(err, errors.ErrCodeTransport) {
		t.Errorf("GetBytes() error = %v, want TRANSPORT", err)
	}
}

func TestClientCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(10*time.Second, nil)
	client.http = server.Client()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.GetBytes(ctx, server.URL)
	if !errors.Is(err, errors.ErrCodeCancelled) {
		t.Errorf("GetBytes() error = %v, want CANCELLED", err)
	}
}

type recordingHTTPHooks struct {
	observability.NoopHTTPHooks
	mu        sync.Mutex
	requests  []string
	responses []int
}

func (h *recordingHTTPHooks) OnRequest(_ context.Context, method, _, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, method+" "+path)
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, _, _, _ string, code int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses = append(h.responses, code)
}

func TestClientFiresHTTPHooks(t *testing.T) {
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClient(time.Second, nil)
	client.http = server.Client()
	if _, err := client.GetBytes(context.Background(), server.URL+"/api/v2/Search()"); err != nil {
		t.Fatal(err)
	}

	if len(hooks.requests) != 1 || hooks.requests[0] != "GET /api/v2/Search()" {
		t.Errorf("requests = %v", hooks.requests)
	}
	if len(hooks.responses) != 1 || hooks.responses[0] != http.StatusOK {
		t.Errorf("responses = %v", hooks.responses)
	}
}

func TestNewHTTPClient(t *testing.T) {
	if c := NewHTTPClient(0); c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, DefaultTimeout)
	}
	if c := NewHTTPClient(time.Minute); c.Timeout != time.Minute {
		t.Errorf("Timeout = %v, want 1m", c.Timeout)
	}
}
