package model

import (
	"testing"
	"time"
)

func TestCredential_AuthorizationHeader(t *testing.T) {
	cases := map[string]string{
		"":       "Bearer abc",
		"bearer": "Bearer abc",
		"Token":  "Token abc",
	}
	for tokenType, want := range cases {
		c := &Credential{AccessToken: "abc", TokenType: tokenType}
		if got := c.AuthorizationHeader(); got != want {
			t.Fatalf("type %q: expected %q, got %q", tokenType, want, got)
		}
	}
}

func TestCredential_ExpiredAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	var nilCred *Credential
	if !nilCred.ExpiredAt(now) || nilCred.Valid() {
		t.Fatalf("nil credential must be expired and invalid")
	}
	if (&Credential{AccessToken: "a"}).ExpiredAt(now) {
		t.Fatalf("credential without expiry must not expire")
	}
	if !(&Credential{AccessToken: "a", ExpiresAt: &past}).ExpiredAt(now) {
		t.Fatalf("expected expired")
	}
	if (&Credential{AccessToken: "a", ExpiresAt: &future}).ExpiredAt(now) {
		t.Fatalf("expected live")
	}
}
