// Package ws streams session and notification events to connected
// dashboards over websocket.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// HandlerConfig controls the upgrade.
type HandlerConfig struct {
	HandshakeTimeout time.Duration
	// AllowOrigins limits browser origins; empty or "*" accepts any.
	AllowOrigins []string
}

// Handler upgrades the request and keeps the session registered on hub
// until the client goes away or ctx ends.
func Handler(ctx context.Context, hub *Hub, cfg HandlerConfig) gin.HandlerFunc {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	upgrader := websocket.Upgrader{
		HandshakeTimeout: cfg.HandshakeTimeout,
		CheckOrigin:      originChecker(cfg.AllowOrigins),
	}

	return func(c *gin.Context) {
		socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error
			hub.logger.Debug("[ws] upgrade failed: %v", err)
			return
		}

		s := NewSession(ctx, NewConnection(uuid.NewString(), socket), hub.logger)
		hub.Register(s)
		defer hub.Unregister(s.ID())

		hub.logger.Debug("[ws] session %s connected from %s", s.ID(), c.ClientIP())
		if err := s.Run(); err != nil {
			hub.logger.Debug("[ws] session %s ended: %v", s.ID(), err)
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
