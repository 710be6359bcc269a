package testing

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
)

const (
	PathLogin   = "/api/auth/login"
	PathLogout  = "/api/auth/logout"
	PathUser    = "/api/auth/user"
	PathRefresh = "/api/auth/refresh"
	PathGraphQL = "/graphql"

	FakeEmail    = "a@b.com"
	FakePassword = "secret"
)

// FakeBackend emulates the auth REST service and the GraphQL endpoint of
// one tenant. Tokens rotate on every refresh; only the newest one is
// accepted. Each route can be overridden.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	calls    map[string]int
	tokenSeq int
	current  string
	handlers map[string]http.HandlerFunc
	graphql  []string
}

func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		calls:    make(map[string]int),
		handlers: make(map[string]http.HandlerFunc),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base for both APIBase and AuthBase (+ "/api/auth").
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

// Handle overrides path. The call is still counted.
func (f *FakeBackend) Handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	f.handlers[path] = h
	f.mu.Unlock()
}

func (f *FakeBackend) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// Issue mints a new token and makes it the only valid one.
func (f *FakeBackend) Issue() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueLocked()
}

func (f *FakeBackend) issueLocked() string {
	f.tokenSeq++
	f.current = fmt.Sprintf("token-%d", f.tokenSeq)
	return f.current
}

// Revoke invalidates the current token without issuing a new one.
func (f *FakeBackend) Revoke() {
	f.mu.Lock()
	f.current = ""
	f.mu.Unlock()
}

// CurrentToken is the token the backend accepts right now.
func (f *FakeBackend) CurrentToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Queries lists the GraphQL documents received, in order.
func (f *FakeBackend) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.graphql...)
}

// Authorized reports whether r carries the current token.
func (f *FakeBackend) Authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current != "" && r.Header.Get("Authorization") == "Bearer "+f.current
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	h := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if h != nil {
		h(w, r)
		return
	}

	switch r.URL.Path {
	case PathLogin:
		f.login(w, r)
	case PathLogout:
		WriteJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
	case PathUser:
		if !f.Authorized(r) {
			WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"user": FakeUser()})
	case PathRefresh:
		if !f.Authorized(r) {
			WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"token": f.Issue(), "token_type": "Bearer"})
	case PathGraphQL:
		f.recordQuery(r)
		if !f.Authorized(r) {
			WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"ok": true}})
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	raw, _ := io.ReadAll(r.Body)
	if err := sonic.Unmarshal(raw, &body); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"message": "Malformed body"})
		return
	}
	if body.Email == "" {
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "The given data was invalid.",
			"errors":  map[string][]string{"email": {"The email field is required."}},
		})
		return
	}
	if body.Email != FakeEmail || body.Password != FakePassword {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"user":       FakeUser(),
		"token":      f.Issue(),
		"token_type": "Bearer",
	})
}

// RecordQuery is exported for overriding handlers that still want the
// query log.
func (f *FakeBackend) RecordQuery(r *http.Request) []byte {
	return f.recordQuery(r)
}

func (f *FakeBackend) recordQuery(r *http.Request) []byte {
	raw, _ := io.ReadAll(r.Body)
	var body struct {
		Query string `json:"query"`
	}
	_ = sonic.Unmarshal(raw, &body)
	f.mu.Lock()
	f.graphql = append(f.graphql, strings.TrimSpace(body.Query))
	f.mu.Unlock()
	return raw
}

// FakeUser is the profile the fake returns; the id is numeric on purpose.
func FakeUser() map[string]any {
	return map[string]any{
		"id":                42,
		"name":              "Ann Manager",
		"email":             FakeEmail,
		"role":              "manager",
		"status":            "active",
		"email_verified_at": "2024-01-01T00:00:00Z",
	}
}

// WriteJSON encodes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
