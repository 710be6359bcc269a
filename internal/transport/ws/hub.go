package ws

import (
	"sync"

	"bizdash-go/internal/domain/session"
)

// Hub tracks the active websocket sessions for a transport instance.
type Hub struct {
	logger   session.Logger
	sessions sync.Map // map[string]*Session
}

func NewHub(logger session.Logger) *Hub {
	return &Hub{
		logger: logger,
	}
}

// Register adds a new session to the hub.
func (h *Hub) Register(s *Session) {
	if s == nil {
		return
	}
	h.sessions.Store(s.ID(), s)
}

// Unregister removes the session from the hub.
func (h *Hub) Unregister(id string) {
	if id == "" {
		return
	}
	h.sessions.Delete(id)
}

// Broadcast queues frame on every session and returns how many accepted it.
func (h *Hub) Broadcast(frame []byte) int {
	delivered := 0
	h.sessions.Range(func(key, value any) bool {
		s := value.(*Session)
		if s.Enqueue(frame) {
			delivered++
		} else {
			h.logger.Debug("[ws] dropping session %s", s.ID())
			h.sessions.Delete(key)
		}
		return true
	})
	return delivered
}

// CloseAll terminates all active sessions.
func (h *Hub) CloseAll(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}

	h.sessions.Range(func(key, value any) bool {
		value.(*Session).Close(reason)
		h.sessions.Delete(key)
		return true
	})
}

// Count exposes the number of active websocket connections.
func (h *Hub) Count() int {
	n := 0
	h.sessions.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
