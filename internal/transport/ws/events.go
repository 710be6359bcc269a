package ws

import (
	"github.com/bytedance/sonic"

	"bizdash-go/internal/domain/eventbus"
)

// Frame is the JSON message pushed to dashboards.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Bridge forwards session and UI events from bus to every connected
// dashboard.
func Bridge(bus eventbus.Subscriber, hub *Hub) error {
	push := func(topic string, payload any) {
		frame, err := sonic.Marshal(Frame{Type: topic, Payload: payload})
		if err != nil {
			hub.logger.Warn("[ws] encode %s failed: %v", topic, err)
			return
		}
		hub.Broadcast(frame)
	}

	for _, topic := range []string{
		eventbus.TopicSessionLogin,
		eventbus.TopicSessionLogout,
		eventbus.TopicSessionRefreshed,
		eventbus.TopicSessionExpired,
	} {
		topic := topic
		if err := bus.Subscribe(topic, func(ev eventbus.SessionEvent) { push(topic, ev) }); err != nil {
			return err
		}
	}
	if err := bus.Subscribe(eventbus.TopicNotify, func(n eventbus.Notification) {
		push(eventbus.TopicNotify, n)
	}); err != nil {
		return err
	}
	return bus.Subscribe(eventbus.TopicRedirectLogin, func(ev eventbus.RedirectEvent) {
		push(eventbus.TopicRedirectLogin, ev)
	})
}
