// Package models defines server-side data models persisted in the database.
package models

// RefreshTokenStatus is the lifecycle state of a refresh token record.
// active -> consumed happens once on redemption; active -> invalidated
// happens in bulk on logout.
type RefreshTokenStatus string

const (
	RefreshTokenActive      RefreshTokenStatus = "active"
	RefreshTokenConsumed    RefreshTokenStatus = "consumed"
	RefreshTokenInvalidated RefreshTokenStatus = "invalidated"
)
