package orchestrator

import (
	"math"
	"time"

	"bizdash-go/internal/domain/failure"
)

// RequestAttempt is the state of one orchestrated call.
type RequestAttempt struct {
	ID        string
	Query     string
	Variables map[string]any
	// Attempt counts network attempts from 1; the replay does not count.
	Attempt     int
	MaxAttempts int
	Replayed    bool
	StartedAt   time.Time
}

type ActionKind int

const (
	ActionFail ActionKind = iota
	ActionRetry
	ActionReplay
)

func (k ActionKind) String() string {
	switch k {
	case ActionRetry:
		return "retry"
	case ActionReplay:
		return "replay"
	default:
		return "fail"
	}
}

// Action is the decision after a failed attempt.
type Action struct {
	Kind  ActionKind
	Delay time.Duration
}

// Policy holds the backoff parameters.
type Policy struct {
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	Factor          float64
	RateLimitFactor float64
}

// DefaultPolicy is 500ms doubling up to 10s, rate limits backing off 4x longer.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:       500 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		Factor:          2,
		RateLimitFactor: 4,
	}
}

// WithDefaults fills every unset field from DefaultPolicy and keeps the
// ones that are set.
func (p Policy) WithDefaults() Policy {
	def := DefaultPolicy()
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Factor <= 0 {
		p.Factor = def.Factor
	}
	if p.RateLimitFactor <= 0 {
		p.RateLimitFactor = def.RateLimitFactor
	}
	return p
}

// Next decides what follows a failed attempt. It is pure.
func (p Policy) Next(a RequestAttempt, c failure.Classification) Action {
	switch {
	case c.Kind == failure.KindUnauthorized && !a.Replayed:
		return Action{Kind: ActionReplay}
	case c.Retryable && a.Attempt < a.MaxAttempts:
		return Action{Kind: ActionRetry, Delay: p.Backoff(a.Attempt, c)}
	default:
		return Action{Kind: ActionFail}
	}
}

// Backoff returns min(base * factor^(attempt-1), cap). Rate limited
// failures are stretched by RateLimitFactor and never wait less than the
// server's Retry-After, still within the cap. A zero MaxDelay means the
// default cap.
func (p Policy) Backoff(attempt int, c failure.Classification) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultPolicy().MaxDelay
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}

	d := float64(p.BaseDelay) * math.Pow(factor, float64(attempt-1))
	if c.Kind == failure.KindRateLimited && p.RateLimitFactor > 1 {
		d *= p.RateLimitFactor
	}
	if ra := float64(c.RetryAfter); ra > d {
		d = ra
	}
	if d < 0 || math.IsInf(d, 0) || math.IsNaN(d) || d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}
