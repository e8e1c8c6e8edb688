package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// jtiBytes gives a 128-bit token identifier.
	jtiBytes = 16
	// refreshSecretBytes gives a 512-bit refresh secret.
	refreshSecretBytes = 64
)

var errEmptySigningKey = errors.New("signing key is empty")

// Issuer mints access tokens and refresh secrets.
type Issuer struct {
	method    jwt.SigningMethod
	key       []byte
	accessTTL time.Duration
	now       func() time.Time
}

// IssuerOption customises an Issuer.
type IssuerOption func(*Issuer)

// WithIssuerClock replaces time.Now, mostly for tests.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer validates the key and algorithm once, at start-up. An empty key
// or a non-HMAC algorithm is a configuration error, not a per-call one.
func NewIssuer(secretKey []byte, algorithm string, accessTTL time.Duration, opts ...IssuerOption) (*Issuer, error) {
	if len(secretKey) == 0 {
		return nil, errEmptySigningKey
	}
	if accessTTL <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive, got %s", accessTTL)
	}
	method, err := hmacMethod(algorithm)
	if err != nil {
		return nil, err
	}

	key := make([]byte, len(secretKey))
	copy(key, secretKey)

	i := &Issuer{method: method, key: key, accessTTL: accessTTL, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// AccessTTL is the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

// IssueAccess signs a new access token for userID with a fresh random jti.
func (i *Issuer) IssueAccess(userID string) (string, *Claims, error) {
	if userID == "" {
		return "", nil, errors.New("empty subject")
	}

	jti, err := common.MakeRandHexString(jtiBytes)
	if err != nil {
		return "", nil, fmt.Errorf("generate jti: %w", err)
	}

	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
		Type: TokenTypeAccess,
	}

	token, err := jwt.NewWithClaims(i.method, claims).SignedString(i.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign access token: %w", err)
	}
	return token, claims, nil
}

// IssueRefresh returns a new refresh secret and its hash. The raw value goes
// to the client once; only the hash may be stored.
func (i *Issuer) IssueRefresh() (raw string, hash string, err error) {
	b, err := common.GenerateRandByteArray(refreshSecretBytes)
	if err != nil {
		return "", "", fmt.Errorf("generate refresh secret: %w", err)
	}
	defer common.WipeByteArray(b)

	raw = base64.RawURLEncoding.EncodeToString(b)
	return raw, HashRefresh(raw), nil
}

// HashRefresh is the one-way function applied to refresh secrets before
// they reach storage: hex-encoded SHA-256.
func HashRefresh(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
