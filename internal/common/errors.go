// Package common defines shared constants and sentinel errors used across
// the transport, service and repository layers. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound         = errors.New("not found")
	ErrNotFoundOrExpired  = errors.New("not found or expired")
	ErrorAlreadyExists    = errors.New("already exists")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Service-level errors.
	ErrInternal                     = errors.New("internal error")
	ErrInvalidCredentials           = errors.New("invalid credentials")
	ErrMissingRequiredField         = errors.New("missing required field")
	ErrInvalidOrExpiredRefreshToken = errors.New("invalid or expired refresh token")

	// Access token verification errors. Transports collapse all of them into
	// one "unauthorized" answer.
	ErrInvalidToken   = errors.New("invalid token")
	ErrMalformedToken = errors.New("malformed token")
	ErrExpiredToken   = errors.New("token expired")
	ErrRevokedToken   = errors.New("token revoked")
)

// IsUnauthorized reports whether err is one of the access token
// verification failures.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrRevokedToken)
}
