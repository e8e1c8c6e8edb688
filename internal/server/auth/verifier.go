package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// RevocationChecker answers whether a jti has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Verifier validates access tokens: signature and expiry, then required
// claims, then revocation status, in that order.
type Verifier struct {
	method   jwt.SigningMethod
	key      []byte
	registry RevocationChecker
	failOpen bool
	logger   logging.Logger
	now      func() time.Time
}

// VerifierOption customises a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierClock replaces time.Now, mostly for tests.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// WithFailOpen makes registry failures accept the token instead of
// rejecting the request. Each such acceptance is logged as a warning.
func WithFailOpen(failOpen bool) VerifierOption {
	return func(v *Verifier) { v.failOpen = failOpen }
}

// WithVerifierLogger sets the logger used for diagnostics.
func WithVerifierLogger(l logging.Logger) VerifierOption {
	return func(v *Verifier) { v.logger = l }
}

func NewVerifier(secretKey []byte, algorithm string, registry RevocationChecker, opts ...VerifierOption) (*Verifier, error) {
	if len(secretKey) == 0 {
		return nil, errEmptySigningKey
	}
	if registry == nil {
		return nil, errors.New("revocation registry is required")
	}
	method, err := hmacMethod(algorithm)
	if err != nil {
		return nil, err
	}

	key := make([]byte, len(secretKey))
	copy(key, secretKey)

	v := &Verifier{
		method:   method,
		key:      key,
		registry: registry,
		logger:   logging.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify returns the principal of a valid, unrevoked access token.
//
// Errors: common.ErrExpiredToken, common.ErrInvalidToken,
// common.ErrMalformedToken, common.ErrRevokedToken, or
// common.ErrServiceUnavailable when the registry cannot answer and the
// verifier is fail-closed.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Principal, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.ID == "" || claims.Type != TokenTypeAccess {
		return nil, common.ErrMalformedToken
	}

	revoked, err := v.registry.IsRevoked(ctx, claims.ID)
	if err != nil {
		if !v.failOpen {
			return nil, fmt.Errorf("%w: revocation lookup: %w", common.ErrServiceUnavailable, err)
		}
		v.logger.Warn(ctx, "revocation registry unavailable, accepting token", "jti", claims.ID, "error", err)
	}
	if revoked {
		return nil, common.ErrRevokedToken
	}

	p := &Principal{UserID: claims.Subject, JTI: claims.ID}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}
