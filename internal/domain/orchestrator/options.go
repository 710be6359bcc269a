package orchestrator

import "time"

// Class selects the default timeout of a call.
type Class int

const (
	ClassQuery Class = iota
	ClassMutation
	ClassBackground
)

func (c Class) String() string {
	switch c {
	case ClassMutation:
		return "mutation"
	case ClassBackground:
		return "background"
	default:
		return "query"
	}
}

type callOptions struct {
	class       Class
	maxRetries  int
	timeout     time.Duration
	silent      bool
	requireAuth bool
	host        string
	returnPath  string
}

// Option customises a single Execute call.
type Option func(*callOptions)

// WithMaxRetries bounds the total attempts. 0 means a single attempt.
func WithMaxRetries(n int) Option {
	return func(o *callOptions) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithTimeout sets the deadline of each attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *callOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithClass picks the call class; its timeout applies unless WithTimeout
// is also given.
func WithClass(c Class) Option {
	return func(o *callOptions) { o.class = c }
}

// Silent suppresses the failure notification.
func Silent() Option {
	return func(o *callOptions) { o.silent = true }
}

// RequireAuth fails fast with UNAUTHORIZED when no credential exists.
func RequireAuth() Option {
	return func(o *callOptions) { o.requireAuth = true }
}

// WithHost resolves the backend for this tenant hostname. Hosts served by
// another auth service than the session's are rejected with FORBIDDEN.
func WithHost(host string) Option {
	return func(o *callOptions) { o.host = host }
}

// WithReturnPath is handed to the login redirect.
func WithReturnPath(path string) Option {
	return func(o *callOptions) { o.returnPath = path }
}
