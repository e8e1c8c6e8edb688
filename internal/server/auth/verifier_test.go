package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	mu      sync.Mutex
	revoked map[string]bool
	err     error
}

func (f *fakeRegistry) IsRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[jti], nil
}

func newPair(t *testing.T, reg RevocationChecker, opts ...VerifierOption) (*Issuer, *Verifier) {
	t.Helper()
	iss, err := NewIssuer([]byte("super-secret"), "HS256", time.Hour)
	require.NoError(t, err)
	ver, err := NewVerifier([]byte("super-secret"), "HS256", reg, opts...)
	require.NoError(t, err)
	return iss, ver
}

func signRaw(t *testing.T, key string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func TestVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	iss, ver := newPair(t, &fakeRegistry{})

	tok, claims, err := iss.IssueAccess("user-123")
	require.NoError(t, err)

	p, err := ver.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", p.UserID)
	assert.Equal(t, claims.ID, p.JTI)
	assert.True(t, p.ExpiresAt.Equal(claims.ExpiresAt.Time))
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-2 * time.Hour)
	iss, err := NewIssuer([]byte("super-secret"), "HS256", time.Minute, WithIssuerClock(func() time.Time { return past }))
	require.NoError(t, err)
	_, ver := newPair(t, &fakeRegistry{})

	tok, _, err := iss.IssueAccess("u1")
	require.NoError(t, err)

	_, err = ver.Verify(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrExpiredToken)
}

func TestVerify_ExpiredEvenWhenRevocationUnreachable(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-2 * time.Hour)
	iss, err := NewIssuer([]byte("super-secret"), "HS256", time.Minute, WithIssuerClock(func() time.Time { return past }))
	require.NoError(t, err)
	_, ver := newPair(t, &fakeRegistry{err: errors.New("down")})

	tok, _, err := iss.IssueAccess("u1")
	require.NoError(t, err)

	_, err = ver.Verify(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrExpiredToken)
}

func TestVerify_SignatureAndShape(t *testing.T) {
	t.Parallel()

	_, ver := newPair(t, &fakeRegistry{})
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{
			name:  "garbage",
			token: "not.a.jwt",
			want:  common.ErrInvalidToken,
		},
		{
			name:  "empty",
			token: "",
			want:  common.ErrInvalidToken,
		},
		{
			name: "wrong secret",
			token: signRaw(t, "other-secret", jwt.SigningMethodHS256, &Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ID: "j", ExpiresAt: exp},
				Type:             TokenTypeAccess,
			}),
			want: common.ErrInvalidToken,
		},
		{
			name: "algorithm not pinned",
			token: signRaw(t, "super-secret", jwt.SigningMethodHS512, &Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ID: "j", ExpiresAt: exp},
				Type:             TokenTypeAccess,
			}),
			want: common.ErrInvalidToken,
		},
		{
			name: "no exp",
			token: signRaw(t, "super-secret", jwt.SigningMethodHS256, &Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ID: "j"},
				Type:             TokenTypeAccess,
			}),
			want: common.ErrInvalidToken,
		},
		{
			name: "missing sub",
			token: signRaw(t, "super-secret", jwt.SigningMethodHS256, &Claims{
				RegisteredClaims: jwt.RegisteredClaims{ID: "j", ExpiresAt: exp},
				Type:             TokenTypeAccess,
			}),
			want: common.ErrMalformedToken,
		},
		{
			name: "missing jti",
			token: signRaw(t, "super-secret", jwt.SigningMethodHS256, &Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: exp},
				Type:             TokenTypeAccess,
			}),
			want: common.ErrMalformedToken,
		},
		{
			name: "refresh type",
			token: signRaw(t, "super-secret", jwt.SigningMethodHS256, &Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ID: "j", ExpiresAt: exp},
				Type:             "refresh",
			}),
			want: common.ErrMalformedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ver.Verify(context.Background(), tt.token)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, common.IsUnauthorized(err))
		})
	}
}

func TestVerify_Revoked(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{revoked: map[string]bool{}}
	iss, ver := newPair(t, reg)

	tok, claims, err := iss.IssueAccess("u1")
	require.NoError(t, err)

	_, err = ver.Verify(context.Background(), tok)
	require.NoError(t, err)

	reg.mu.Lock()
	reg.revoked[claims.ID] = true
	reg.mu.Unlock()

	_, err = ver.Verify(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrRevokedToken)
}

func TestVerify_RegistryFailure(t *testing.T) {
	t.Parallel()

	t.Run("fail closed by default", func(t *testing.T) {
		iss, ver := newPair(t, &fakeRegistry{err: errors.New("dial tcp: refused")})
		tok, _, err := iss.IssueAccess("u1")
		require.NoError(t, err)

		_, err = ver.Verify(context.Background(), tok)
		require.ErrorIs(t, err, common.ErrServiceUnavailable)
		assert.False(t, common.IsUnauthorized(err), "outage must not look like a bad token")
	})

	t.Run("fail open accepts", func(t *testing.T) {
		iss, ver := newPair(t, &fakeRegistry{err: errors.New("dial tcp: refused")}, WithFailOpen(true))
		tok, _, err := iss.IssueAccess("u1")
		require.NoError(t, err)

		p, err := ver.Verify(context.Background(), tok)
		require.NoError(t, err)
		assert.Equal(t, "u1", p.UserID)
	})
}

func TestNewVerifier_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewVerifier(nil, "HS256", &fakeRegistry{})
	require.Error(t, err)

	_, err = NewVerifier([]byte("k"), "HS256", nil)
	require.Error(t, err)

	_, err = NewVerifier([]byte("k"), "ES256", &fakeRegistry{})
	require.Error(t, err)
}

func TestPrincipal_RemainingTTL(t *testing.T) {
	t.Parallel()

	now := time.Now()
	p := &Principal{ExpiresAt: now.Add(time.Minute)}
	assert.Equal(t, time.Minute, p.RemainingTTL(now))
	assert.Zero(t, p.RemainingTTL(now.Add(2*time.Minute)))
}
