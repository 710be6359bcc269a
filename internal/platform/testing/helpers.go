package testing

import (
	"strings"
	"sync"
	"testing"

	"bizdash-go/internal/platform/config"
	"bizdash-go/internal/platform/logging"
)

// SetupTestConfig returns the defaults with the development and primary
// tenants pointed at baseURL.
func SetupTestConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	ep := config.EndpointConfig{
		APIBase:  baseURL,
		AuthBase: strings.TrimRight(baseURL, "/") + "/api/auth",
	}
	cfg.Log.Level = "debug"
	cfg.Log.Dir = ""
	cfg.Domains.Development = ep
	cfg.Domains.Hosts = map[string]config.EndpointConfig{cfg.Domains.Primary: ep}
	cfg.Session.Driver = "memory"
	cfg.Monitor.Enabled = false
	return cfg
}

// testWriter forwards to t.Log until the test finishes; background
// goroutines may still log after that.
type testWriter struct {
	mu   sync.Mutex
	t    *testing.T
	done bool
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.done {
		w.t.Log(strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

// SetupTestLogger returns a debug logger that writes through t.Log.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	w := &testWriter{t: t}
	t.Cleanup(func() {
		w.mu.Lock()
		w.done = true
		w.mu.Unlock()
	})
	return logging.NewWriter(w, "debug")
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}
