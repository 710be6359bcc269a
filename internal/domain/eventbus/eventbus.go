// Package eventbus carries session events and the notification and
// navigation capabilities the core calls into.
package eventbus

import (
	"bizdash-go/internal/domain/session/model"
)

// Logger is the printf-style contract shared with the session domain.
type Logger = model.Logger

// Publisher is the part of the bus the domain packages need.
type Publisher interface {
	PublishAsync(topic string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopPublisher struct{}

func (nopPublisher) PublishAsync(string, ...interface{}) {}

// Discard is a Publisher that drops every event.
var Discard Publisher = nopPublisher{}
