// Package orchestrator executes GraphQL calls against the tenant's backend
// with per-attempt deadlines, capped exponential backoff and one
// refresh-and-replay on an authentication failure.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"bizdash-go/internal/domain/eventbus"
	"bizdash-go/internal/domain/failure"
	"bizdash-go/internal/domain/resolver"
	"bizdash-go/internal/domain/session"
	"bizdash-go/internal/platform/observability"
)

const (
	opExecute       = "orchestrator.execute"
	maxResponseBody = 10 << 20
)

var errNoCredential = errors.New("no credential")

// Tokens is the part of the token lifecycle manager the orchestrator uses.
type Tokens interface {
	Credential(ctx context.Context) *session.Credential
	RefreshStale(ctx context.Context, stale string) (string, error)
	Expire(ctx context.Context, reason string)
}

// Timeouts holds the per-attempt deadline of each class.
type Timeouts struct {
	Query      time.Duration
	Mutation   time.Duration
	Background time.Duration
}

func (t Timeouts) of(c Class) time.Duration {
	switch c {
	case ClassMutation:
		return t.Mutation
	case ClassBackground:
		return t.Background
	default:
		return t.Query
	}
}

type Config struct {
	GraphQLPath string
	// DefaultHost is resolved when a call has no WithHost option.
	DefaultHost       string
	MaxRetries        int
	Policy            Policy
	Timeouts          Timeouts
	RequestsPerSecond float64
	Burst             int
}

// Options encapsulates the dependencies required to construct an Orchestrator.
type Options struct {
	HTTP      *http.Client
	Resolver  *resolver.Resolver
	Tokens    Tokens
	Notifier  eventbus.Notifier
	Navigator eventbus.Navigator
	Logger    session.Logger
	Config    Config
}

type Orchestrator struct {
	http      *http.Client
	resolver  *resolver.Resolver
	tokens    Tokens
	notifier  eventbus.Notifier
	navigator eventbus.Navigator
	logger    session.Logger
	cfg       Config
	limiter   *rate.Limiter
	sleep     func(ctx context.Context, d time.Duration) error
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Resolver == nil {
		return nil, errors.New("orchestrator requires a resolver")
	}
	if opts.Tokens == nil {
		return nil, errors.New("orchestrator requires a token source")
	}
	if opts.Logger == nil {
		return nil, errors.New("orchestrator requires a logger")
	}
	if opts.HTTP == nil {
		opts.HTTP = http.DefaultClient
	}
	if opts.Notifier == nil {
		opts.Notifier = eventbus.NopNotifier{}
	}
	if opts.Navigator == nil {
		opts.Navigator = eventbus.Latched(nil)
	}

	cfg := opts.Config
	if cfg.GraphQLPath == "" {
		cfg.GraphQLPath = "/graphql"
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	cfg.Policy = cfg.Policy.WithDefaults()
	if cfg.Timeouts.Query <= 0 {
		cfg.Timeouts.Query = 15 * time.Second
	}
	if cfg.Timeouts.Mutation <= 0 {
		cfg.Timeouts.Mutation = 30 * time.Second
	}
	if cfg.Timeouts.Background <= 0 {
		cfg.Timeouts.Background = 10 * time.Second
	}

	o := &Orchestrator{
		http:      opts.HTTP,
		resolver:  opts.Resolver,
		tokens:    opts.Tokens,
		notifier:  opts.Notifier,
		navigator: opts.Navigator,
		logger:    opts.Logger,
		cfg:       cfg,
		sleep:     sleepContext,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return o, nil
}

func (o *Orchestrator) options(opts []Option) callOptions {
	co := callOptions{
		class:      ClassQuery,
		maxRetries: o.cfg.MaxRetries,
		host:       o.cfg.DefaultHost,
	}
	for _, opt := range opts {
		opt(&co)
	}
	if co.timeout <= 0 {
		co.timeout = o.cfg.Timeouts.of(co.class)
	}
	return co
}

// Endpoint returns the GraphQL URL for host.
func (o *Orchestrator) Endpoint(host string) string {
	base := o.resolver.Resolve(host).APIBase
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(o.cfg.GraphQLPath, "/")
}

// sameTenant reports whether host shares the auth service of the default
// host. A session is bound to the tenant that issued its credential.
func (o *Orchestrator) sameTenant(host string) bool {
	if host == o.cfg.DefaultHost {
		return true
	}
	return o.resolver.Resolve(host).AuthBase == o.resolver.Resolve(o.cfg.DefaultHost).AuthBase
}

// Execute runs query and returns the "data" member of the response. Every
// error is a *failure.Error.
func (o *Orchestrator) Execute(ctx context.Context, query string, variables map[string]any, opts ...Option) (json.RawMessage, error) {
	co := o.options(opts)
	started := time.Now()
	ctx, end := observability.StartSpan(ctx, "orchestrator", co.class.String())

	data, fe := o.run(ctx, query, variables, co)

	outcome := "ok"
	if fe != nil {
		outcome = string(fe.Class.Kind)
	}
	observability.RecordCall(co.class.String(), outcome, time.Since(started))

	if fe != nil {
		if !co.silent {
			o.notify(fe)
		}
		end(fe)
		return nil, fe
	}
	end(nil)
	return data, nil
}

// ExecuteInto runs query and decodes "data" into out.
func (o *Orchestrator) ExecuteInto(ctx context.Context, query string, variables map[string]any, out any, opts ...Option) error {
	data, err := o.Execute(ctx, query, variables, opts...)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return failure.New(opExecute, failure.KindUnknown, err)
	}
	return nil
}

// Probe is a best-effort background check: one silent attempt, any
// failure reads as false. With a gjson path the result is the truthiness
// of that member of "data"; without one, success alone is true.
func (o *Orchestrator) Probe(ctx context.Context, query string, variables map[string]any, path string) bool {
	data, err := o.Execute(ctx, query, variables,
		WithClass(ClassBackground), WithMaxRetries(0), Silent())
	if err != nil {
		o.logger.Debug("[orchestrator] probe failed: %v", err)
		return false
	}
	if path == "" {
		return true
	}
	return gjson.GetBytes(data, path).Bool()
}

func (o *Orchestrator) run(ctx context.Context, query string, variables map[string]any, co callOptions) (json.RawMessage, *failure.Error) {
	if !o.sameTenant(co.host) {
		return nil, failure.New(opExecute, failure.KindForbidden,
			fmt.Errorf("host %q is served by another auth service than the session", co.host))
	}
	endpoint := o.Endpoint(co.host)
	attempt := RequestAttempt{
		ID:          uuid.NewString(),
		Query:       query,
		Variables:   variables,
		Attempt:     1,
		MaxAttempts: max(co.maxRetries, 1),
		StartedAt:   time.Now(),
	}

	for {
		cred := o.tokens.Credential(ctx)
		if co.requireAuth && cred == nil {
			o.navigator.RedirectToLogin(co.returnPath)
			return nil, failure.New(opExecute, failure.KindUnauthorized, errNoCredential)
		}
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return nil, failure.Wrap(opExecute, ctxErr(ctx, err))
			}
		}

		data, err := o.attempt(ctx, endpoint, attempt, cred, co.timeout)
		class := failure.Classify(err)
		observability.RecordAttempt(co.class.String(), string(class.Kind))
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, failure.Wrap(opExecute, ctx.Err())
		}

		fe := failure.Wrap(opExecute, err)
		action := o.cfg.Policy.Next(attempt, fe.Class)
		switch action.Kind {
		case ActionRetry:
			o.logger.Debug("[orchestrator] %s attempt %d/%d failed (%s), retrying in %s",
				attempt.ID, attempt.Attempt, attempt.MaxAttempts, fe.Class.Kind, action.Delay)
			if err := o.sleep(ctx, action.Delay); err != nil {
				return nil, failure.Wrap(opExecute, err)
			}
			attempt.Attempt++

		case ActionReplay:
			var stale string
			if cred != nil {
				stale = cred.AccessToken
			}
			if _, rerr := o.tokens.RefreshStale(ctx, stale); rerr != nil {
				if ctx.Err() != nil {
					return nil, failure.Wrap(opExecute, ctx.Err())
				}
				observability.RecordReplay("refresh_failed")
				o.logger.Warn("[orchestrator] %s refresh failed, ending session: %v", attempt.ID, rerr)
				o.tokens.Expire(ctx, "refresh failed")
				o.navigator.RedirectToLogin(co.returnPath)
				return nil, &failure.Error{Op: opExecute, Class: fe.Class, Cause: rerr}
			}
			observability.RecordReplay("replayed")
			o.logger.Debug("[orchestrator] %s replaying with refreshed credential", attempt.ID)
			attempt.Replayed = true

		default:
			return nil, fe
		}
	}
}

func (o *Orchestrator) attempt(ctx context.Context, endpoint string, a RequestAttempt, cred *session.Credential, timeout time.Duration) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := encodeRequest(a.Query, a.Variables)
	if err != nil {
		return nil, failure.New(opExecute, failure.KindUnknown, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, failure.New(opExecute, failure.KindUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", a.ID)
	if cred.Valid() {
		req.Header.Set("Authorization", cred.AuthorizationHeader())
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure.FromResponse(resp, body)
	}
	return decodeResponse(body)
}

func (o *Orchestrator) notify(fe *failure.Error) {
	kind := eventbus.NotifyError
	if fe.Class.Kind == failure.KindValidation || fe.Class.Kind == failure.KindRateLimited {
		kind = eventbus.NotifyWarning
	}
	o.notifier.Notify(kind, fe.Class.UserMessage, eventbus.NotifyOptions{Fields: fe.Class.ValidationFields})
}

// ctxErr prefers the context's own error so a limiter wait that would
// exceed the deadline still classifies as TIMEOUT.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if _, ok := ctx.Deadline(); ok {
		return context.DeadlineExceeded
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
