package model

import (
	"strings"
	"time"
)

// Credential is the live access credential of a session.
type Credential struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Valid reports whether the credential carries a token at all.
func (c *Credential) Valid() bool {
	return c != nil && c.AccessToken != ""
}

// ExpiredAt reports whether the credential is past its known expiry.
// Credentials without an expiry never expire locally.
func (c *Credential) ExpiredAt(now time.Time) bool {
	return c == nil || (c.ExpiresAt != nil && !now.Before(*c.ExpiresAt))
}

// AuthorizationHeader renders the Authorization header value.
func (c *Credential) AuthorizationHeader() string {
	scheme := strings.TrimSpace(c.TokenType)
	if scheme == "" || strings.EqualFold(scheme, "bearer") {
		scheme = "Bearer"
	}
	return scheme + " " + c.AccessToken
}

// UserProfile is the cached identity of the signed-in user. It may be stale.
type UserProfile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Status        string `json:"status,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// Logger provides the minimal logging contract required by the session domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
