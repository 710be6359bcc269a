// Package session holds the credential store: the single slot of
// credential and profile shared by every component of a session.
package session

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"

	"bizdash-go/internal/domain/session/model"
	"bizdash-go/internal/domain/session/store"
	platformerrors "bizdash-go/internal/platform/errors"
)

type (
	Credential  = model.Credential
	UserProfile = model.UserProfile
	Logger      = model.Logger
)

// Logical keys inside the backend.
const (
	KeyToken   = "auth_token"
	KeyProfile = "auth_user"
)

// Store mirrors the persisted credential in memory. The mirror is
// authoritative inside the process; every write goes through to the
// backend. Reads never fail: unreadable values are logged and treated as
// absent.
type Store struct {
	backend   store.Backend
	namespace string
	logger    Logger

	mu      sync.Mutex
	loaded  bool
	cred    *Credential
	profile *UserProfile
}

// New wraps backend. A nil backend behaves like store.None().
func New(backend store.Backend, namespace string, logger Logger) *Store {
	if backend == nil {
		backend = store.None()
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Store{
		backend:   backend,
		namespace: namespace,
		logger:    logger,
	}
}

func (s *Store) key(name string) string {
	if s.namespace == "" {
		return name
	}
	return s.namespace + ":" + name
}

// Init loads the persisted slot into the mirror and reports whether a
// credential exists.
func (s *Store) Init(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx, true)
	return s.cred.Valid()
}

func (s *Store) loadLocked(ctx context.Context, force bool) {
	if s.loaded && !force {
		return
	}
	s.loaded = true

	s.cred = nil
	var cred Credential
	if s.read(ctx, KeyToken, &cred) && cred.Valid() {
		s.cred = &cred
	}

	s.profile = nil
	var profile UserProfile
	if s.read(ctx, KeyProfile, &profile) {
		s.profile = &profile
	}
}

func (s *Store) read(ctx context.Context, name string, out any) bool {
	raw, ok, err := s.backend.Get(ctx, s.key(name))
	if err != nil {
		s.logger.Warn("[store] read %s failed: %v", name, err)
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := sonic.UnmarshalString(raw, out); err != nil {
		s.logger.Warn("[store] discarding corrupted %s: %v", name, err)
		return false
	}
	return true
}

func (s *Store) write(ctx context.Context, name string, v any) error {
	raw, err := sonic.MarshalString(v)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindSession, "session.encode", "encode "+name, err)
	}
	if err := s.backend.Set(ctx, s.key(name), raw); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "session.write", "persist "+name, err)
	}
	return nil
}

// Get returns a copy of the current credential, or nil.
func (s *Store) Get(ctx context.Context) *Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx, false)
	if s.cred == nil {
		return nil
	}
	cp := *s.cred
	return &cp
}

// Token returns the current access token or "".
func (s *Store) Token(ctx context.Context) string {
	if c := s.Get(ctx); c != nil {
		return c.AccessToken
	}
	return ""
}

// Set replaces the credential. The mirror is updated even when the
// backend write fails, so the running session keeps working.
func (s *Store) Set(ctx context.Context, cred Credential) error {
	if !cred.Valid() {
		return platformerrors.New(platformerrors.KindSession, "session.set", "empty access token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	cp := cred
	s.cred = &cp
	return s.write(ctx, KeyToken, cred)
}

// Replace sets cred only if the stored access token is still current. A
// session that was cleared or replaced meanwhile is left alone and Replace
// reports false.
func (s *Store) Replace(ctx context.Context, current string, cred Credential) (bool, error) {
	if !cred.Valid() {
		return false, platformerrors.New(platformerrors.KindSession, "session.replace", "empty access token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx, false)
	if s.cred == nil || s.cred.AccessToken != current {
		return false, nil
	}
	cp := cred
	s.cred = &cp
	return true, s.write(ctx, KeyToken, cred)
}

// Save writes credential and profile as one step.
func (s *Store) Save(ctx context.Context, cred Credential, profile UserProfile) error {
	if !cred.Valid() {
		return platformerrors.New(platformerrors.KindSession, "session.save", "empty access token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	c, p := cred, profile
	s.cred, s.profile = &c, &p

	if err := s.write(ctx, KeyToken, cred); err != nil {
		return err
	}
	return s.write(ctx, KeyProfile, profile)
}

// Profile returns a copy of the cached profile, or nil.
func (s *Store) Profile(ctx context.Context) *UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx, false)
	if s.profile == nil {
		return nil
	}
	cp := *s.profile
	return &cp
}

// SetProfileFor caches profile only while token is still the stored
// credential.
func (s *Store) SetProfileFor(ctx context.Context, token string, profile UserProfile) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx, false)
	if s.cred == nil || s.cred.AccessToken != token {
		return false, nil
	}
	cp := profile
	s.profile = &cp
	return true, s.write(ctx, KeyProfile, profile)
}

// Clear drops credential and profile. Backend failures are logged; the
// mirror is cleared regardless.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.cred, s.profile = nil, nil
	for _, name := range []string{KeyToken, KeyProfile} {
		if err := s.backend.Remove(ctx, s.key(name)); err != nil {
			s.logger.Warn("[store] remove %s failed: %v", name, err)
		}
	}
}

// Close releases the backend.
func (s *Store) Close(ctx context.Context) error {
	return s.backend.Close(ctx)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
