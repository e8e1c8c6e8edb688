// Package auth mints and verifies credentials: signed JWT access tokens
// carrying a unique jti, and opaque refresh secrets of which only a one-way
// hash is ever persisted.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess is the only value of the "type" claim the verifier accepts.
const TokenTypeAccess = "access"

// Claims are the access token claims: sub, jti, iat and exp from the
// registered set plus the token type.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

// Principal is the identity established by a verified access token.
type Principal struct {
	UserID    string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RemainingTTL returns how long the token stays valid after now, or zero.
func (p *Principal) RemainingTTL(now time.Time) time.Duration {
	if d := p.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

func hmacMethod(algorithm string) (jwt.SigningMethod, error) {
	m := jwt.GetSigningMethod(algorithm)
	if _, ok := m.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	return m, nil
}
