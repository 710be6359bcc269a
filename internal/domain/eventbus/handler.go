package eventbus

// Subscriber is the subscribing side of AsyncEventBus.
type Subscriber interface {
	Subscribe(topic string, fn interface{}) error
}

// LogEvents subscribes a handler that writes every session and UI event to
// logger. It is the default consumer in headless processes.
func LogEvents(bus Subscriber, logger Logger) error {
	if logger == nil {
		logger = nopLogger{}
	}

	session := func(topic string) func(SessionEvent) {
		return func(ev SessionEvent) {
			if ev.Reason != "" {
				logger.Info("[auth] %s user=%s reason=%s", topic, ev.UserID, ev.Reason)
				return
			}
			logger.Info("[auth] %s user=%s", topic, ev.UserID)
		}
	}
	for _, topic := range []string{TopicSessionLogin, TopicSessionLogout, TopicSessionRefreshed, TopicSessionExpired} {
		if err := bus.Subscribe(topic, session(topic)); err != nil {
			return err
		}
	}

	if err := bus.Subscribe(TopicNotify, func(n Notification) {
		switch n.Kind {
		case NotifyError:
			logger.Error("[notify] %s", n.Message)
		case NotifyWarning:
			logger.Warn("[notify] %s", n.Message)
		default:
			logger.Info("[notify] %s", n.Message)
		}
	}); err != nil {
		return err
	}

	return bus.Subscribe(TopicRedirectLogin, func(ev RedirectEvent) {
		logger.Warn("[auth] redirect to login (return to %q)", ev.ReturnPath)
	})
}
