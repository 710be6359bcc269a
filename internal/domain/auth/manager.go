// Package auth owns the credential lifecycle: login, logout, refresh and
// re-validation of the current session.
package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"bizdash-go/internal/domain/eventbus"
	"bizdash-go/internal/domain/failure"
	"bizdash-go/internal/domain/session"
	"bizdash-go/internal/platform/observability"
)

type (
	// UserProfile re-exports the session entity for callers.
	UserProfile = session.UserProfile
	// Logger re-exports the logging interface used across the domain.
	Logger = session.Logger
)

const (
	defaultRefreshTimeout = 10 * time.Second
	defaultLogoutTimeout  = 5 * time.Second
	refreshKey            = "refresh"
)

// Options encapsulates the dependencies required to construct a Manager.
type Options struct {
	API    API
	Store  *session.Store
	Logger Logger
	Events eventbus.Publisher
	// Latch receives the redirect when a background re-validation finds
	// the session rejected. Optional.
	Latch          *eventbus.RedirectLatch
	RefreshTimeout time.Duration
}

// Manager is the only writer of the credential store.
type Manager struct {
	api            API
	store          *session.Store
	logger         Logger
	events         eventbus.Publisher
	latch          *eventbus.RedirectLatch
	refreshTimeout time.Duration

	state  atomic.Int32
	flight singleflight.Group
	now    func() time.Time
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User  UserProfile
	Token string
}

// NewManager wires a Manager using the supplied options.
func NewManager(opts Options) (*Manager, error) {
	if opts.API == nil {
		return nil, errors.New("auth manager requires an auth api")
	}
	if opts.Store == nil {
		return nil, errors.New("auth manager requires a credential store")
	}
	if opts.Logger == nil {
		return nil, errors.New("auth manager requires a logger")
	}
	if opts.Events == nil {
		opts.Events = eventbus.Discard
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}
	return &Manager{
		api:            opts.API,
		store:          opts.Store,
		logger:         opts.Logger,
		events:         opts.Events,
		latch:          opts.Latch,
		refreshTimeout: opts.RefreshTimeout,
		now:            time.Now,
	}, nil
}

func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) State {
	return State(m.state.Swap(int32(s)))
}

// Authenticated reports whether a credential is live, including while it is
// being refreshed.
func (m *Manager) Authenticated() bool {
	s := m.State()
	return s == StateAuthenticated || s == StateRefreshing
}

// Token returns the current access token or "".
func (m *Manager) Token(ctx context.Context) string {
	return m.store.Token(ctx)
}

// Credential returns a copy of the current credential, or nil.
func (m *Manager) Credential(ctx context.Context) *session.Credential {
	return m.store.Get(ctx)
}

// Profile returns the cached profile without a network call.
func (m *Manager) Profile(ctx context.Context) *UserProfile {
	return m.store.Profile(ctx)
}

// Login exchanges email and password for a credential. On failure nothing
// is written and the previous state is restored.
func (m *Manager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, end := observability.StartSpan(ctx, "auth", "login")
	prev := m.setState(StateAuthenticating)

	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		if prev == StateRefreshing {
			// the refresh in flight settles the state itself
			prev = StateAuthenticated
		}
		m.state.CompareAndSwap(int32(StateAuthenticating), int32(prev))
		fe := failure.Wrap("auth.login", err)
		m.logger.Warn("[auth] login failed for %s: %s", email, fe.Class.Kind)
		end(fe)
		return nil, fe
	}

	cred := credentialFrom(resp.TokenResponse, m.now())
	if err := m.store.Save(ctx, cred, resp.User); err != nil {
		// The in-memory slot holds the credential; only persistence failed.
		m.logger.Warn("[auth] persisting session failed: %v", err)
	}
	m.setState(StateAuthenticated)
	m.latch.Reset()

	m.publish(eventbus.TopicSessionLogin, resp.User, "")
	m.logger.Info("[auth] signed in user=%s role=%s", resp.User.ID, resp.User.Role)
	end(nil)
	return &LoginResult{User: resp.User, Token: cred.AccessToken}, nil
}

// Logout invalidates the session remotely on a best-effort basis and
// always clears local state. It never fails.
func (m *Manager) Logout(ctx context.Context) {
	profile := m.store.Profile(ctx)
	if current := m.store.Get(ctx); current != nil {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultLogoutTimeout)
		if err := m.api.Logout(lctx, *current); err != nil {
			m.logger.Warn("[auth] remote logout failed, clearing locally: %v", err)
		}
		cancel()
	}

	m.store.Clear(ctx)
	m.setState(StateAnonymous)

	var user UserProfile
	if profile != nil {
		user = *profile
	}
	m.publish(eventbus.TopicSessionLogout, user, "")
}

// Refresh obtains a new credential. Concurrent callers share one network
// call. The call runs detached from any single caller so one cancellation
// does not fail the others. On failure the token is "" and clearing the
// session is left to the caller.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	ch := m.flight.DoChan(refreshKey, func() (any, error) {
		return m.doRefresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", failure.Wrap("auth.refresh", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// RefreshStale refreshes unless the stored token already differs from
// stale, in which case a newer credential was issued meanwhile and is
// returned without a network call.
func (m *Manager) RefreshStale(ctx context.Context, stale string) (string, error) {
	if current := m.store.Token(ctx); current != "" && current != stale {
		return current, nil
	}
	return m.Refresh(ctx)
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
	defer cancel()
	ctx, end := observability.StartSpan(ctx, "auth", "refresh")

	current := m.store.Get(ctx)
	if current == nil {
		err := failure.New("auth.refresh", failure.KindUnauthorized, errors.New("no credential to refresh"))
		end(err)
		return "", err
	}
	token := current.AccessToken

	prev := m.setState(StateRefreshing)
	resp, err := m.api.Refresh(ctx, *current)
	observability.RecordRefresh(err == nil)
	if err != nil {
		m.state.CompareAndSwap(int32(StateRefreshing), int32(prev))
		fe := failure.Wrap("auth.refresh", err)
		m.logger.Warn("[auth] refresh failed: %s", fe.Class.Kind)
		end(fe)
		return "", fe
	}

	cred := credentialFrom(*resp, m.now())
	committed, err := m.store.Replace(ctx, token, cred)
	if err != nil {
		m.logger.Warn("[auth] persisting refreshed credential failed: %v", err)
	}
	if !committed {
		// Logout, Expire or Login ran while the call was in flight.
		m.state.CompareAndSwap(int32(StateRefreshing), int32(prev))
		if newer := m.store.Token(ctx); newer != "" {
			m.logger.Debug("[auth] refresh superseded by a newer credential")
			end(nil)
			return newer, nil
		}
		fe := failure.New("auth.refresh", failure.KindUnauthorized, errors.New("session ended during refresh"))
		m.logger.Debug("[auth] dropping refresh result, session ended")
		end(fe)
		return "", fe
	}
	m.state.CompareAndSwap(int32(StateRefreshing), int32(StateAuthenticated))

	var user UserProfile
	if p := m.store.Profile(ctx); p != nil {
		user = *p
	}
	m.publish(eventbus.TopicSessionRefreshed, user, "")
	m.logger.Debug("[auth] credential refreshed")
	end(nil)
	return cred.AccessToken, nil
}

// Expire ends the session after the server rejected it and no refresh
// could recover. Repeated calls publish once.
func (m *Manager) Expire(ctx context.Context, reason string) {
	had := m.store.Get(ctx) != nil
	profile := m.store.Profile(ctx)
	m.store.Clear(ctx)
	prev := m.setState(StateAnonymous)
	if !had && prev == StateAnonymous {
		return
	}

	var user UserProfile
	if profile != nil {
		user = *profile
	}
	m.logger.Warn("[auth] session expired: %s", reason)
	m.publish(eventbus.TopicSessionExpired, user, reason)
}

// CurrentUser fetches the authoritative profile. A rejected credential
// clears the session. When the server is unreachable the cached profile is
// returned with a nil error.
func (m *Manager) CurrentUser(ctx context.Context) (*UserProfile, error) {
	current := m.store.Get(ctx)
	if current == nil {
		return nil, failure.New("auth.current_user", failure.KindUnauthorized, errors.New("no credential"))
	}
	token := current.AccessToken

	profile, err := m.api.User(ctx, *current)
	if err == nil {
		cached, err := m.store.SetProfileFor(ctx, token, *profile)
		if err != nil {
			m.logger.Warn("[auth] caching profile failed: %v", err)
		}
		if cached {
			m.state.CompareAndSwap(int32(StateAnonymous), int32(StateAuthenticated))
		}
		return profile, nil
	}

	fe := failure.Wrap("auth.current_user", err)
	switch fe.Class.Kind {
	case failure.KindUnauthorized, failure.KindForbidden:
		// A refresh issued meanwhile makes this rejection stale.
		if m.store.Token(ctx) == token {
			m.Expire(ctx, "credential rejected")
		}
		return nil, fe
	case failure.KindNetwork, failure.KindTimeout, failure.KindServer, failure.KindRateLimited:
		if cached := m.store.Profile(ctx); cached != nil {
			m.logger.Warn("[auth] profile check unavailable (%s), keeping cached profile", fe.Class.Kind)
			return cached, nil
		}
		return nil, fe
	default:
		return nil, fe
	}
}

// Bootstrap restores a persisted session and validates it. It returns the
// profile of a live session, or nil when the user has to sign in. An error
// means the session could not be validated and nothing was cached.
func (m *Manager) Bootstrap(ctx context.Context) (*UserProfile, error) {
	if !m.store.Init(ctx) {
		m.setState(StateAnonymous)
		return nil, nil
	}
	m.setState(StateAuthenticated)

	if cred := m.store.Get(ctx); cred.ExpiredAt(m.now()) {
		if _, err := m.Refresh(ctx); err != nil {
			m.Expire(ctx, "stored credential expired")
			return nil, nil
		}
	}

	profile, err := m.CurrentUser(ctx)
	if err != nil {
		if failure.Is(err, failure.KindUnauthorized) || failure.Is(err, failure.KindForbidden) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

func (m *Manager) publish(topic string, user UserProfile, reason string) {
	observability.RecordSessionEvent(topic)
	m.events.PublishAsync(topic, eventbus.SessionEvent{
		UserID: user.ID,
		Role:   user.Role,
		Reason: reason,
		At:     m.now(),
	})
}
