// Package failure maps raw outcomes of outbound calls onto the finite
// taxonomy that callers and the UI react to.
package failure

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindNetwork      Kind = "NETWORK"
	KindTimeout      Kind = "TIMEOUT"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindValidation   Kind = "VALIDATION"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindServer       Kind = "SERVER"
	KindUnknown      Kind = "UNKNOWN"
)

// Retryable reports whether the kind is retried with backoff. UNAUTHORIZED
// is handled by refresh-and-replay instead and is not retryable here.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindRateLimited, KindServer:
		return true
	default:
		return false
	}
}

// Classification is the derived view of a failure.
type Classification struct {
	Kind             Kind
	UserMessage      string
	Retryable        bool
	ValidationFields map[string]string
	// Status is the HTTP status when the failure came from a response.
	Status int
	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

// IsZero reports whether c describes "no failure".
func (c Classification) IsZero() bool {
	return c.Kind == ""
}

// Equal compares two classifications field by field.
func (c Classification) Equal(o Classification) bool {
	if c.Kind != o.Kind || c.UserMessage != o.UserMessage || c.Retryable != o.Retryable ||
		c.Status != o.Status || c.RetryAfter != o.RetryAfter || len(c.ValidationFields) != len(o.ValidationFields) {
		return false
	}
	for k, v := range c.ValidationFields {
		if ov, ok := o.ValidationFields[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Error is the only error type returned by the orchestrator and the auth
// client. Classify on an *Error returns its stored classification.
type Error struct {
	Op    string
	Class Classification
	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Class.Kind))
	if e.Class.UserMessage != "" {
		b.WriteString(": ")
		b.WriteString(e.Class.UserMessage)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (%v)", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Kind is a shortcut for e.Class.Kind.
func (e *Error) Kind() Kind {
	return e.Class.Kind
}

// Wrap classifies err and attaches op. Nil stays nil; an existing *Error
// keeps its classification and gains op only when it had none.
func Wrap(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Op == "" {
			cp := *fe
			cp.Op = op
			return &cp
		}
		return fe
	}
	return &Error{Op: op, Class: Classify(err), Cause: err}
}

// New builds an *Error of the given kind with the default message.
func New(op string, kind Kind, cause error) *Error {
	return &Error{
		Op: op,
		Class: Classification{
			Kind:        kind,
			UserMessage: DefaultMessage(kind),
			Retryable:   kind.Retryable(),
		},
		Cause: cause,
	}
}

// KindOf returns the classified kind of err, or "" for nil.
func KindOf(err error) Kind {
	return Classify(err).Kind
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ErrOffline signals that no network is available at all.
var ErrOffline = errors.New("network unavailable")

// HTTPError is a non-2xx response from either backend.
type HTTPError struct {
	Status     int
	Body       []byte
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d", e.Status)
}

// GraphQLErrorItem is one entry of a GraphQL "errors" array.
type GraphQLErrorItem struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLError is a 200 response whose envelope carried errors.
type GraphQLError struct {
	Errors []GraphQLErrorItem
}

func (e *GraphQLError) Error() string {
	if len(e.Errors) == 0 {
		return "graphql error"
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		msgs = append(msgs, item.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

var defaultMessages = map[Kind]string{
	KindNetwork:      "Network unavailable. Check your connection and try again.",
	KindTimeout:      "The server took too long to respond. Please try again.",
	KindUnauthorized: "Your session has expired. Please sign in again.",
	KindForbidden:    "You do not have permission to perform this action.",
	KindValidation:   "Some fields are invalid. Please review the form.",
	KindRateLimited:  "Too many requests. Please wait a moment and try again.",
	KindServer:       "The server encountered an error. Please try again later.",
	KindUnknown:      "Something went wrong.",
}

// DefaultMessage returns the user-facing text used when the failure carries
// no message of its own.
func DefaultMessage(kind Kind) string {
	return defaultMessages[kind]
}
