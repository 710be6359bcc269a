package eventbus

import (
	"sync/atomic"
)

// Notifier surfaces a message to the user. Implementations must not block.
type Notifier interface {
	Notify(kind NotifyKind, message string, opts NotifyOptions)
}

// Navigator moves the user to the login screen.
type Navigator interface {
	RedirectToLogin(returnPath string)
}

// NopNotifier drops notifications, for headless use.
type NopNotifier struct{}

func (NopNotifier) Notify(NotifyKind, string, NotifyOptions) {}

// BusNotifier publishes notifications on TopicNotify.
type BusNotifier struct {
	Bus Publisher
}

func (n BusNotifier) Notify(kind NotifyKind, message string, opts NotifyOptions) {
	n.Bus.PublishAsync(TopicNotify, Notification{Kind: kind, Message: message, Options: opts})
}

// BusNavigator publishes redirects on TopicRedirectLogin.
type BusNavigator struct {
	Bus Publisher
}

func (n BusNavigator) RedirectToLogin(returnPath string) {
	n.Bus.PublishAsync(TopicRedirectLogin, RedirectEvent{ReturnPath: returnPath})
}

// RedirectLatch lets exactly one redirect through per unauthenticated
// episode. Concurrent failures of the same episode are absorbed.
type RedirectLatch struct {
	next  Navigator
	fired atomic.Bool
}

// Latched wraps next with a latch.
func Latched(next Navigator) *RedirectLatch {
	return &RedirectLatch{next: next}
}

// RedirectToLogin forwards the first call and ignores the rest until Reset.
func (l *RedirectLatch) RedirectToLogin(returnPath string) {
	if l == nil || l.next == nil {
		return
	}
	if !l.fired.CompareAndSwap(false, true) {
		return
	}
	l.next.RedirectToLogin(returnPath)
}

// Reset re-arms the latch; called after a successful login.
func (l *RedirectLatch) Reset() {
	if l != nil {
		l.fired.Store(false)
	}
}

// Fired reports whether a redirect is in progress.
func (l *RedirectLatch) Fired() bool {
	return l != nil && l.fired.Load()
}
