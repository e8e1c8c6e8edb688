// Package refreshtokens stores hashed refresh tokens and implements their
// single-use redemption.
package refreshtokens

import (
	"context"
	"time"
)

// Repository is the refresh token store. A record moves from active to
// consumed exactly once, or from active to invalidated in bulk. Redemption
// is only possible through Consume; there is no read-then-write path.
type Repository interface {
	// Create stores an active record for userID. Only the hash of the secret
	// handed to the client is passed in.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// Consume atomically marks the active, unexpired record with tokenHash as
	// consumed and returns its owner. It returns common.ErrNotFoundOrExpired
	// when no such record exists, including when another caller won the race.
	Consume(ctx context.Context, tokenHash string) (string, error)

	// InvalidateAll marks every active record of userID invalidated and
	// reports how many were affected.
	InvalidateAll(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes records of any status that expired before the
	// given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
