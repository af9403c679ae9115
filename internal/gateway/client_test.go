package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hpcadm/hpcadm/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func fastRetry() RetryConfig {
	return RetryConfig{
		InitialInterval:     5 * time.Millisecond,
		MaxInterval:         20 * time.Millisecond,
		MaxElapsedTime:      500 * time.Millisecond,
		Multiplier:          2.0,
		RandomizationFactor: 0.1,
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: srv.URL, Retry: fastRetry()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

// TestClientGetJSON_TransientThenSuccess verifies 5xx responses are retried.
func TestClientGetJSON_TransientThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ready"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	var out struct {
		Status string `json:"status"`
	}
	if err := c.GetJSON(context.Background(), "/images/v1/jobs/42", &out); err != nil {
		t.Fatalf("GetJSON() error = %v, expected success after retries", err)
	}
	if out.Status != "ready" {
		t.Errorf("status = %q, want %q", out.Status, "ready")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3 (2 failures + 1 success)", got)
	}
}

// TestClientGetJSON_ClientErrorIsPermanent verifies 4xx responses are not
// retried and surface as *StatusError.
func TestClientGetJSON_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such transition", http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	err := c.GetJSON(context.Background(), "/power/v1/transitions/nope", nil)
	if err == nil {
		t.Fatal("GetJSON() error = nil, want *StatusError")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error type = %T, want *StatusError", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", statusErr.Code, http.StatusNotFound)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1 (4xx must not be retried)", got)
	}
}

// TestClientPostJSON_SendsBodyAndToken verifies request headers and payload.
func TestClientPostJSON_SendsBodyAndToken(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(tokenFile, []byte("secret-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var gotAuth, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"transitionID": "abc"}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, TokenPath: tokenFile, Retry: fastRetry()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	in := map[string]string{"operation": "off"}
	var out struct {
		TransitionID string `json:"transitionID"`
	}
	if err := c.PostJSON(context.Background(), "/power/v1/transitions", in, &out); err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret-token")
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotBody != `{"operation":"off"}` {
		t.Errorf("body = %q, want %q", gotBody, `{"operation":"off"}`)
	}
	if out.TransitionID != "abc" {
		t.Errorf("transitionID = %q, want %q", out.TransitionID, "abc")
	}
}

// TestClientSend_CircuitOpensOnPersistentFailure verifies the per-service
// breaker trips after consecutive 5xx failures.
func TestClientSend_CircuitOpensOnPersistentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	// Each GetJSON retries internally; keep issuing requests until the
	// breaker reports open.
	for i := 0; i < 10; i++ {
		err := c.GetJSON(context.Background(), "/inventory/v1/components", nil)
		if err == nil {
			t.Fatalf("call %d: expected error, got success", i+1)
		}
		if errors.Is(err, gobreaker.ErrOpenState) {
			return // breaker opened as expected
		}
	}

	if state := c.breakers.Get("inventory").State(); state != gobreaker.StateOpen {
		t.Errorf("breaker state = %v after persistent failures, want open", state)
	}
}

// TestClientSend_BreakersArePerService verifies one service's failures do
// not trip another service's breaker.
func TestClientSend_BreakersArePerService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/power/v1/state" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	for i := 0; i < 10; i++ {
		c.GetJSON(context.Background(), "/power/v1/state", nil)
		if c.breakers.Get("power").State() == gobreaker.StateOpen {
			break
		}
	}
	if state := c.breakers.Get("power").State(); state != gobreaker.StateOpen {
		t.Fatalf("power breaker state = %v, want open", state)
	}

	if err := c.GetJSON(context.Background(), "/images/v1/images", nil); err != nil {
		t.Errorf("GetJSON() on healthy service error = %v, want nil", err)
	}
	if state := c.breakers.Get("images").State(); state != gobreaker.StateClosed {
		t.Errorf("images breaker state = %v, want closed", state)
	}
}

// TestClientSend_ContextCancelledStopsRetry verifies cancellation interrupts
// the retry loop promptly.
func TestClientSend_ContextCancelledStopsRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Retry: RetryConfig{
		InitialInterval:     20 * time.Millisecond,
		MaxInterval:         100 * time.Millisecond,
		MaxElapsedTime:      10 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.1,
	}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := c.GetJSON(ctx, "/config/v1/sessions", nil); err == nil {
		t.Fatal("GetJSON() error = nil, want error from cancellation")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("GetJSON() took %v after cancellation, expected prompt return", elapsed)
	}
}

// TestServiceName tests breaker key extraction from request paths.
func TestServiceName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/power/v1/transitions", "power"},
		{"images/v1/jobs", "images"},
		{"/scheduler", "scheduler"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := serviceName(tt.path); got != tt.want {
			t.Errorf("serviceName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
