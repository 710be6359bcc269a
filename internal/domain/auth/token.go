package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bizdash-go/internal/domain/session"
)

// TokenResponse is the credential part of a login or refresh response.
type TokenResponse struct {
	Token     string
	TokenType string
	// ExpiresIn is zero when the server did not say.
	ExpiresIn time.Duration
}

// credentialFrom derives the stored credential. The expiry comes from
// expires_in when sent, else from the token's exp claim when it is a JWT.
func credentialFrom(resp TokenResponse, now time.Time) session.Credential {
	cred := session.Credential{
		AccessToken: resp.Token,
		TokenType:   resp.TokenType,
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}
	if resp.ExpiresIn > 0 {
		exp := now.Add(resp.ExpiresIn)
		cred.ExpiresAt = &exp
		return cred
	}
	cred.ExpiresAt = expiryFromJWT(resp.Token)
	return cred
}

// expiryFromJWT reads exp without verifying the signature; the client only
// uses it to schedule refreshes, the server stays authoritative.
func expiryFromJWT(token string) *time.Time {
	if strings.Count(token, ".") != 2 {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
