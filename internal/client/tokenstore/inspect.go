package tokenstore

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the client can read from a JWT credential without the
// signing key. It is informational only: the server remains the sole judge
// of a credential's validity.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the credential carried an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Inspect decodes credential as a JWT without verifying its signature. ok is
// false for opaque (non-JWT) credentials.
func Inspect(credential string) (Claims, bool) {
	if credential == "" {
		return Claims{}, false
	}

	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(credential, &rc); err != nil {
		return Claims{}, false
	}

	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, true
}
