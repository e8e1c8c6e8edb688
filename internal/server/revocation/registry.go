// Package revocation keeps the blacklist of access token identifiers (jti)
// that must be rejected before their natural expiry. Entries carry a TTL
// equal to the token's remaining lifetime, so the registry never needs to be
// scanned or pruned by hand.
package revocation

import (
	"context"
	"time"
)

// Registry is a TTL-bounded set of revoked jti values.
type Registry interface {
	// Blacklist marks jti as revoked for ttl. A non-positive ttl means the
	// token has already expired and nothing is stored.
	Blacklist(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether jti is currently blacklisted.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// KeyPrefix namespaces blacklist entries in a shared key-value store.
const KeyPrefix = "revoked:"

func key(jti string) string {
	return KeyPrefix + jti
}
