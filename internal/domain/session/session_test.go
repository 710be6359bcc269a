package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdash-go/internal/domain/session/store"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(format string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, format)
	l.mu.Unlock()
}
func (l *recordingLogger) Error(string, ...any) {}

type failingBackend struct{ store.Backend }

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}
func (failingBackend) Set(context.Context, string, string) error { return errors.New("disk gone") }
func (failingBackend) Remove(context.Context, string) error      { return errors.New("disk gone") }

func TestStore_SaveAndReload(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory(store.Config{})

	s := New(backend, "bizdash", nil)
	assert.False(t, s.Init(ctx))

	require.NoError(t, s.Save(ctx,
		Credential{AccessToken: "tok", TokenType: "Bearer"},
		UserProfile{ID: "7", Name: "Ann", Role: "manager"},
	))

	raw, ok, err := backend.Get(ctx, "bizdash:auth_token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"access_token":"tok"`)

	reloaded := New(backend, "bizdash", nil)
	assert.True(t, reloaded.Init(ctx))
	assert.Equal(t, "tok", reloaded.Token(ctx))
	require.NotNil(t, reloaded.Profile(ctx))
	assert.Equal(t, "manager", reloaded.Profile(ctx).Role)
}

func TestStore_CorruptedValuesAreDiscarded(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory(store.Config{})
	require.NoError(t, backend.Set(ctx, KeyToken, "{not json"))
	require.NoError(t, backend.Set(ctx, KeyProfile, "[]"))

	logger := &recordingLogger{}
	s := New(backend, "", logger)

	assert.NotPanics(t, func() {
		assert.False(t, s.Init(ctx))
		assert.Nil(t, s.Get(ctx))
		assert.Nil(t, s.Profile(ctx))
	})
	assert.NotEmpty(t, logger.warns)
}

func TestStore_BackendFailuresDoNotBreakTheSession(t *testing.T) {
	ctx := context.Background()
	s := New(failingBackend{}, "", &recordingLogger{})

	assert.False(t, s.Init(ctx))
	err := s.Set(ctx, Credential{AccessToken: "tok"})
	assert.Error(t, err)
	// mirror still holds the credential for this process
	assert.Equal(t, "tok", s.Token(ctx))

	s.Clear(ctx)
	assert.Nil(t, s.Get(ctx))
}

func TestStore_NilBackendIsSafe(t *testing.T) {
	ctx := context.Background()
	s := New(nil, "", nil)
	assert.False(t, s.Init(ctx))
	require.NoError(t, s.Set(ctx, Credential{AccessToken: "a"}))
	assert.Equal(t, "a", s.Token(ctx))
	s.Clear(ctx)
	assert.Equal(t, "", s.Token(ctx))
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	s := New(nil, "", nil)
	assert.Error(t, s.Set(context.Background(), Credential{}))
}

func TestStore_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New(nil, "", nil)
	require.NoError(t, s.Set(ctx, Credential{AccessToken: "a"}))

	c := s.Get(ctx)
	c.AccessToken = "mutated"
	assert.Equal(t, "a", s.Token(ctx))
}

func TestStore_ConcurrentWritersLastWins(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(store.Config{}), "", nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Set(ctx, Credential{AccessToken: "t"})
			_ = s.Get(ctx)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, "t", s.Token(ctx))
}

func TestStore_ReplaceOnlyCurrentCredential(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory(store.Config{})
	s := New(backend, "ns", nil)
	require.NoError(t, s.Set(ctx, Credential{AccessToken: "old"}))

	ok, err := s.Replace(ctx, "old", Credential{AccessToken: "new"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", s.Token(ctx))

	ok, err = s.Replace(ctx, "old", Credential{AccessToken: "stale"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "new", s.Token(ctx))

	s.Clear(ctx)
	ok, err = s.Replace(ctx, "new", Credential{AccessToken: "revived"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, s.Get(ctx))

	_, found, err := backend.Get(ctx, "ns:auth_token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_SetProfileForIgnoresEndedSession(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(store.Config{}), "", nil)
	require.NoError(t, s.Set(ctx, Credential{AccessToken: "a"}))

	ok, err := s.SetProfileFor(ctx, "a", UserProfile{ID: "1"})
	require.NoError(t, err)
	assert.True(t, ok)

	s.Clear(ctx)
	ok, err = s.SetProfileFor(ctx, "a", UserProfile{ID: "1"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, s.Profile(ctx))
}
