package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestCredentialFrom_ExpiresIn(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cred := credentialFrom(TokenResponse{Token: "opaque", ExpiresIn: time.Hour}, now)

	assert.Equal(t, "Bearer", cred.TokenType)
	require.NotNil(t, cred.ExpiresAt)
	assert.Equal(t, now.Add(time.Hour), *cred.ExpiresAt)
}

func TestCredentialFrom_JWTExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	cred := credentialFrom(TokenResponse{Token: signedToken(t, exp), TokenType: "Bearer"}, time.Now())

	require.NotNil(t, cred.ExpiresAt)
	assert.True(t, exp.Equal(*cred.ExpiresAt))
}

func TestCredentialFrom_OpaqueTokenHasNoExpiry(t *testing.T) {
	cred := credentialFrom(TokenResponse{Token: "42|plain-sanctum-token"}, time.Now())
	assert.Nil(t, cred.ExpiresAt)
	assert.Nil(t, expiryFromJWT("a.b.c"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ANONYMOUS", StateAnonymous.String())
	assert.Equal(t, "REFRESHING", StateRefreshing.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
