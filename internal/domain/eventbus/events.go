package eventbus

import "time"

const (
	TopicSessionLogin     = "session.login"
	TopicSessionLogout    = "session.logout"
	TopicSessionRefreshed = "session.refreshed"
	TopicSessionExpired   = "session.expired"

	TopicNotify        = "ui.notify"
	TopicRedirectLogin = "ui.redirect_login"
)

// SessionEvent is published on every session.* topic.
type SessionEvent struct {
	UserID string    `json:"user_id,omitempty"`
	Role   string    `json:"role,omitempty"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// NotifyKind matches the toast variants of the dashboard.
type NotifyKind string

const (
	NotifySuccess NotifyKind = "success"
	NotifyError   NotifyKind = "error"
	NotifyWarning NotifyKind = "warning"
	NotifyInfo    NotifyKind = "info"
)

type NotifyOptions struct {
	Duration time.Duration `json:"duration,omitempty"`
	// Fields carries per-field validation messages for form display.
	Fields map[string]string `json:"fields,omitempty"`
}

// Notification is published on TopicNotify.
type Notification struct {
	Kind    NotifyKind    `json:"kind"`
	Message string        `json:"message"`
	Options NotifyOptions `json:"options"`
}

// RedirectEvent is published on TopicRedirectLogin.
type RedirectEvent struct {
	ReturnPath string `json:"return_path"`
}
