package orchestrator

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdash-go/internal/domain/auth"
	"bizdash-go/internal/domain/eventbus"
	"bizdash-go/internal/domain/failure"
	"bizdash-go/internal/domain/resolver"
	"bizdash-go/internal/domain/session"
	"bizdash-go/internal/domain/session/store"
	testhelpers "bizdash-go/internal/platform/testing"
)

type notification struct {
	kind    eventbus.NotifyKind
	message string
	opts    eventbus.NotifyOptions
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(kind eventbus.NotifyKind, message string, opts eventbus.NotifyOptions) {
	n.mu.Lock()
	n.sent = append(n.sent, notification{kind, message, opts})
	n.mu.Unlock()
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

type countingNavigator struct{ calls atomic.Int32 }

func (n *countingNavigator) RedirectToLogin(string) { n.calls.Add(1) }

type harness struct {
	orch     *Orchestrator
	manager  *auth.Manager
	fake     *testhelpers.FakeBackend
	store    *session.Store
	notifier *recordingNotifier
	nav      *countingNavigator

	mu     sync.Mutex
	delays []time.Duration
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	fake := testhelpers.NewFakeBackend(t)
	res := resolver.New(resolver.Config{
		Development: resolver.Endpoints{
			APIBase:  fake.URL(),
			AuthBase: fake.URL() + "/api/auth",
		},
		Hosts: map[string]resolver.Endpoints{
			"other.example.com": {APIBase: fake.URL(), AuthBase: "https://auth.other.example.com"},
		},
	})
	logger := testhelpers.SetupTestLogger(t)
	st := session.New(store.NewMemory(store.Config{}), "", logger)
	nav := &countingNavigator{}
	latch := eventbus.Latched(nav)

	manager, err := auth.NewManager(auth.Options{
		API:    auth.NewClient(fake.Server.Client(), res, auth.ClientConfig{Host: "localhost"}),
		Store:  st,
		Logger: logger,
		Latch:  latch,
	})
	require.NoError(t, err)

	if cfg.Policy.BaseDelay == 0 {
		cfg.Policy = testPolicy
	}
	cfg.DefaultHost = "localhost"
	notifier := &recordingNotifier{}
	orch, err := New(Options{
		HTTP:      fake.Server.Client(),
		Resolver:  res,
		Tokens:    manager,
		Notifier:  notifier,
		Navigator: latch,
		Logger:    logger,
		Config:    cfg,
	})
	require.NoError(t, err)

	h := &harness{orch: orch, manager: manager, fake: fake, store: st, notifier: notifier, nav: nav}
	orch.sleep = func(_ context.Context, d time.Duration) error {
		h.mu.Lock()
		h.delays = append(h.delays, d)
		h.mu.Unlock()
		return nil
	}
	return h
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	_, err := h.manager.Login(context.Background(), testhelpers.FakeEmail, testhelpers.FakePassword)
	require.NoError(t, err)
}

func (h *harness) recordedDelays() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Duration(nil), h.delays...)
}

func respond(status int, body map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testhelpers.WriteJSON(w, status, body)
	}
}

func TestExecute_ReturnsData(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3})
	h.login(t)

	var gotAuth, gotID string
	h.fake.Handle(testhelpers.PathGraphQL, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get("X-Request-ID")
		h.fake.RecordQuery(r)
		testhelpers.WriteJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"orders": []int{1, 2}}})
	})

	var out struct {
		Orders []int `json:"orders"`
	}
	err := h.orch.ExecuteInto(context.Background(), "query { orders }", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, out.Orders)
	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.NotEmpty(t, gotID)
	assert.Equal(t, []string{"query { orders }"}, h.fake.Queries())
}

func TestExecute_UsesStoredTokenType(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 1})
	require.NoError(t, h.store.Set(context.Background(), session.Credential{AccessToken: "abc", TokenType: "Token"}))

	var gotAuth string
	h.fake.Handle(testhelpers.PathGraphQL, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		testhelpers.WriteJSON(w, http.StatusOK, map[string]any{"data": map[string]any{}})
	})

	_, err := h.orch.Execute(context.Background(), "query { me }", nil)
	require.NoError(t, err)
	assert.Equal(t, "Token abc", gotAuth)
}

func TestExecute_RetriesUpToTheCapWithBackoff(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3})
	h.login(t)
	h.fake.Handle(testhelpers.PathGraphQL, respond(http.StatusServiceUnavailable, map[string]any{"message": "down"}))

	_, err := h.orch.Execute(context.Background(), "query { a }", nil)
	require.Error(t, err)

	assert.Equal(t, failure.KindServer, failure.KindOf(err))
	assert.Equal(t, 3, h.fake.Calls(testhelpers.PathGraphQL))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, h.recordedDelays())

	sent := h.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, eventbus.NotifyError, sent[0].kind)
}

func TestExecute_ZeroRetriesIsASingleAttempt(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3})
	h.login(t)
	h.fake.Handle(testhelpers.PathGraphQL, respond(http.StatusBadGateway, nil))

	_, err := h.orch.Execute(context.Background(), "mutation { pay }", nil, WithClass(ClassMutation), WithMaxRetries(0))
	require.Error(t, err)
	assert.Equal(t, 1, h.fake.Calls(testhelpers.PathGraphQL))
	assert.Empty(t, h.recordedDelays())
}

func TestExecute_NoRetryOnForbiddenOrValidation(t *testing.T) {
	cases := map[string]struct {
		handler http.HandlerFunc
		kind    failure.Kind
	}{
		"403": {respond(http.StatusForbidden, map[string]any{"message": "nope"}), failure.KindForbidden},
		"422": {respond(http.StatusUnprocessableEntity, map[string]any{
			"message": "invalid",
			"errors":  map[string]any{"amount": []string{"must be positive"}},
		}), failure.KindValidation},
		"graphql validation": {respond(http.StatusOK, map[string]any{
			"errors": []map[string]any{{
				"message":    "Validation failed",
				"extensions": map[string]any{"category": "validation", "validation": map[string]any{"input.amount": []string{"must be positive"}}},
			}},
		}), failure.KindValidation},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, Config{MaxRetries: 5})
			h.login(t)
			h.fake.Handle(testhelpers.PathGraphQL, tc.handler)

			_, err := h.orch.Execute(context.Background(), "mutation { pay }", nil)
			c := failure.Classify(err)
			assert.Equal(t, tc.kind, c.Kind)
			assert.Equal(t, 1, h.fake.Calls(testhelpers.PathGraphQL))
			assert.Empty(t, h.recordedDelays())
			assert.Equal(t, 0, h.fake.Calls(testhelpers.PathRefresh))
			if tc.kind == failure.KindValidation {
				assert.Equal(t, "must be positive", c.ValidationFields["amount"])
			}
		})
	}
}

func TestExecute_AttemptTimeout(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 2})
	h.login(t)
	h.fake.Handle(testhelpers.PathGraphQL, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := h.orch.Execute(context.Background(), "query { slow }", nil, WithTimeout(30*time.Millisecond))
	assert.Equal(t, failure.KindTimeout, failure.KindOf(err))
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, h.recordedDelays())
}

func TestExecute_RefreshAndReplay(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3})
	h.login(t)

	var calls atomic.Int32
	h.fake.Handle(testhelpers.PathGraphQL, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 || !h.fake.Authorized(r) {
			testhelpers.WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
			return
		}
		testhelpers.WriteJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"me": "ok"}})
	})

	data, err := h.orch.Execute(context.Background(), "query { me }", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"me":"ok"}`, string(data))

	assert.Equal(t, 2, h.fake.Calls(testhelpers.PathGraphQL))
	assert.Equal(t, 1, h.fake.Calls(testhelpers.PathRefresh))
	assert.Empty(t, h.recordedDelays(), "the replay is not a retry")
	assert.Equal(t, "token-2", h.store.Token(context.Background()))
	assert.Empty(t, h.notifier.all())
}

func TestExecute_ReplayHappensAtMostOnce(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3})
	h.login(t)
	h.fake.Handle(testhelpers.PathGraphQL, respond(http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."}))

	_, err := h.orch.Execute(context.Background(), "query { me }", nil)
	assert.Equal(t, failure.KindUnauthorized, failure.KindOf(err))
	assert.Equal(t, 2, h.fake.Calls(testhelpers.PathGraphQL))
	assert.Equal(t, 1, h.fake.Calls(testhelpers.PathRefresh))
}

func TestExecute_RefreshFailureEndsSession(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3})
	h.login(t)
	h.fake.Revoke()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.orch.Execute(context.Background(), "query { me }", nil, Silent())
			assert.Equal(t, failure.KindUnauthorized, failure.KindOf(err))
		}()
	}
	wg.Wait()

	assert.Nil(t, h.store.Get(context.Background()))
	assert.Equal(t, auth.StateAnonymous, h.manager.State())
	assert.Equal(t, int32(1), h.nav.calls.Load())
	assert.Empty(t, h.notifier.all())
}

func TestExecute_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3})
	h.login(t)

	h.fake.Handle(testhelpers.PathGraphQL, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer token-1" || !h.fake.Authorized(r) {
			testhelpers.WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
			return
		}
		testhelpers.WriteJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"ok": true}})
	})

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.orch.Execute(context.Background(), "query { ok }", nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, h.fake.Calls(testhelpers.PathRefresh))
	assert.Equal(t, "token-2", h.store.Token(context.Background()))
}

func TestExecute_RequireAuthWithoutCredential(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3})

	_, err := h.orch.Execute(context.Background(), "query { me }", nil, RequireAuth(), WithReturnPath("/orders"))
	assert.Equal(t, failure.KindUnauthorized, failure.KindOf(err))
	assert.Equal(t, 0, h.fake.Calls(testhelpers.PathGraphQL))
	assert.Equal(t, int32(1), h.nav.calls.Load())
}

func TestExecute_CancelledDuringBackoff(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3})
	h.login(t)
	h.fake.Handle(testhelpers.PathGraphQL, respond(http.StatusInternalServerError, nil))

	ctx, cancel := context.WithCancel(context.Background())
	h.orch.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	_, err := h.orch.Execute(ctx, "query { a }", nil)
	c := failure.Classify(err)
	assert.Equal(t, failure.KindUnknown, c.Kind)
	assert.Equal(t, "request cancelled", c.UserMessage)
	assert.Equal(t, 1, h.fake.Calls(testhelpers.PathGraphQL))
}

func TestExecute_NetworkFailureIsClassified(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 2})
	h.login(t)
	h.fake.Server.Close()

	_, err := h.orch.Execute(context.Background(), "query { a }", nil)
	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, failure.KindNetwork, fe.Kind())
	assert.Len(t, h.recordedDelays(), 1)
}

func TestProbe(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 3})
	h.login(t)

	h.fake.Handle(testhelpers.PathGraphQL, respond(http.StatusOK, map[string]any{
		"data": map[string]any{"notifications": map[string]any{"hasUnread": true}},
	}))
	assert.True(t, h.orch.Probe(context.Background(), "query { notifications { hasUnread } }", nil, "notifications.hasUnread"))
	assert.True(t, h.orch.Probe(context.Background(), "query { x }", nil, ""))
	assert.False(t, h.orch.Probe(context.Background(), "query { x }", nil, "missing.path"))

	h.fake.Handle(testhelpers.PathGraphQL, respond(http.StatusInternalServerError, nil))
	before := h.fake.Calls(testhelpers.PathGraphQL)
	assert.False(t, h.orch.Probe(context.Background(), "query { x }", nil, "notifications.hasUnread"))
	assert.Equal(t, before+1, h.fake.Calls(testhelpers.PathGraphQL), "probes never retry")
	assert.Empty(t, h.notifier.all(), "probes are silent")
}

func TestEndpoint_UsesResolvedHost(t *testing.T) {
	h := newHarness(t, Config{GraphQLPath: "api/graphql"})
	assert.Equal(t, h.fake.URL()+"/api/graphql", h.orch.Endpoint("localhost:5173"))
}

func TestOptions_ClassTimeouts(t *testing.T) {
	h := newHarness(t, Config{Timeouts: Timeouts{Query: time.Second, Mutation: 2 * time.Second, Background: 3 * time.Second}})

	assert.Equal(t, time.Second, h.orch.options(nil).timeout)
	assert.Equal(t, 2*time.Second, h.orch.options([]Option{WithClass(ClassMutation)}).timeout)
	assert.Equal(t, 3*time.Second, h.orch.options([]Option{WithClass(ClassBackground)}).timeout)
	assert.Equal(t, 5*time.Millisecond, h.orch.options([]Option{WithClass(ClassMutation), WithTimeout(5 * time.Millisecond)}).timeout)
}

func TestExecute_WithHostStaysOnTheSessionTenant(t *testing.T) {
	h := newHarness(t, Config{MaxRetries: 1})
	h.login(t)
	ctx := context.Background()

	_, err := h.orch.Execute(ctx, "query { ok }", nil, WithHost("127.0.0.1:5173"))
	require.NoError(t, err)
	assert.Equal(t, 1, h.fake.Calls(testhelpers.PathGraphQL))

	_, err = h.orch.Execute(ctx, "query { ok }", nil, WithHost("other.example.com"), Silent())
	assert.Equal(t, failure.KindForbidden, failure.KindOf(err))
	assert.Equal(t, 1, h.fake.Calls(testhelpers.PathGraphQL), "the credential never leaves its tenant")
}

func TestNew_DefaultsPolicyFieldByField(t *testing.T) {
	o, err := New(Options{
		Resolver: resolver.New(resolver.Config{}),
		Tokens:   &auth.Manager{},
		Logger:   testhelpers.SetupTestLogger(t),
		Config:   Config{Policy: Policy{MaxDelay: time.Second, Factor: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultPolicy().BaseDelay, o.cfg.Policy.BaseDelay)
	assert.Equal(t, time.Second, o.cfg.Policy.MaxDelay)
	assert.Equal(t, 3.0, o.cfg.Policy.Factor)
}
