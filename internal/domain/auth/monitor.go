package auth

import (
	"context"
	"time"

	"bizdash-go/internal/domain/failure"
)

// Monitor re-validates the session every interval until ctx ends.
// Failures are logged and never stop the loop; a rejected session triggers
// the login redirect.
func (m *Manager) Monitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.checkOnce(ctx)
		}
	}
}

func (m *Manager) checkOnce(ctx context.Context) {
	if m.store.Token(ctx) == "" {
		return
	}
	if _, err := m.CurrentUser(ctx); err != nil {
		kind := failure.KindOf(err)
		if kind == failure.KindUnauthorized || kind == failure.KindForbidden {
			m.latch.RedirectToLogin("")
			return
		}
		m.logger.Warn("[auth] session check failed: %v", err)
	}
}
