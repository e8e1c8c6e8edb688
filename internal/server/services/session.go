// Package services contains server-side business logic. SessionService
// orchestrates the token lifecycle: login, refresh rotation, logout and
// verification of access tokens on behalf of the transports.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/revocation"
)

// TokenPair bundles a short-lived access token and a single-use refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// TokenVerifier validates access tokens; *auth.Verifier implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Principal, error)
}

type SessionService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	issuer       *auth.Issuer
	verifier     TokenVerifier
	registry     revocation.Registry
	hasher       password.Hasher
	refreshTTL   time.Duration
	storeTimeout time.Duration
	logger       logging.Logger
	now          func() time.Time

	// dummyHash is verified against on unknown identifiers so that a lookup
	// miss costs the same as a wrong password.
	dummyHash string
}

type SessionOption func(*SessionService)

func WithRefreshTTL(d time.Duration) SessionOption {
	return func(s *SessionService) { s.refreshTTL = d }
}

// WithStoreTimeout bounds every SQL round trip made on behalf of one call.
func WithStoreTimeout(d time.Duration) SessionOption {
	return func(s *SessionService) { s.storeTimeout = d }
}

func WithLogger(l logging.Logger) SessionOption {
	return func(s *SessionService) { s.logger = l }
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// NewSessionService wires the session controller. It hashes a throwaway
// password once up front, which with bcrypt takes a noticeable moment.
func NewSessionService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	issuer *auth.Issuer,
	verifier TokenVerifier,
	registry revocation.Registry,
	hasher password.Hasher,
	opts ...SessionOption,
) (*SessionService, error) {
	if db == nil || m == nil || issuer == nil || verifier == nil || registry == nil || hasher == nil {
		return nil, errors.New("session service: missing dependency")
	}

	s := &SessionService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		verifier:    verifier,
		registry:    registry,
		hasher:      hasher,
		refreshTTL:  30 * 24 * time.Hour,
		logger:      logging.Nop{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.refreshTTL <= 0 {
		return nil, errors.New("session service: refresh TTL must be positive")
	}

	dummy, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("session service: %w", err)
	}
	if s.dummyHash, err = hasher.Hash(dummy); err != nil {
		return nil, fmt.Errorf("session service: %w", err)
	}
	return s, nil
}

// Login checks identifier and password against the user directory and
// issues a new token pair. An unknown identifier and a wrong password both
// yield common.ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, identifier, pass string) (*TokenPair, error) {
	id := NormalizeIdentifier(identifier)
	if id == "" || pass == "" {
		return nil, common.ErrMissingRequiredField
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	creds, err := s.repomanager.Users(s.db).Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify(pass, s.dummyHash)
			s.logger.Info(ctx, "login rejected", "reason", "unknown identifier")
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.failure(ctx, "user lookup", err)
	}

	ok, err := s.hasher.Verify(pass, creds.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored password hash is unusable", "user_id", creds.UserID, "error", err)
		return nil, common.ErrInvalidCredentials
	}
	if !ok {
		s.logger.Info(ctx, "login rejected", "reason", "password mismatch", "user_id", creds.UserID)
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, s.db, creds.UserID)
	if err != nil {
		return nil, s.failure(ctx, "issue token pair", err)
	}
	s.logger.Info(ctx, "login succeeded", "user_id", creds.UserID)
	return pair, nil
}

// Refresh redeems a refresh token and returns a new pair. Redemption and
// storage of the successor happen in one transaction: either the old token
// is consumed and the new one stored, or nothing changes. A token that was
// already consumed, invalidated, or has expired yields
// common.ErrInvalidOrExpiredRefreshToken.
//
// The access token issued alongside the redeemed refresh token is not
// revoked; it stays valid until it expires.
func (s *SessionService) Refresh(ctx context.Context, rawRefresh string) (*TokenPair, error) {
	if strings.TrimSpace(rawRefresh) == "" {
		return nil, common.ErrInvalidOrExpiredRefreshToken
	}
	hash := auth.HashRefresh(rawRefresh)

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	var (
		pair   *TokenPair
		userID string
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		userID, err = s.repomanager.RefreshTokens(tx).Consume(ctx, hash)
		if err != nil {
			return err
		}
		pair, err = s.issuePair(ctx, tx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFoundOrExpired) {
			s.logger.Info(ctx, "refresh rejected", "reason", "not found, used or expired")
			return nil, common.ErrInvalidOrExpiredRefreshToken
		}
		return nil, s.failure(ctx, "rotate refresh token", err)
	}

	s.logger.Info(ctx, "refresh token rotated", "user_id", userID)
	return pair, nil
}

// Logout revokes the presented access token and every refresh token of its
// owner. The blacklist entry lives for the configured access token lifetime,
// an upper bound of the token's remaining validity.
func (s *SessionService) Logout(ctx context.Context, p *auth.Principal) error {
	if p == nil || p.UserID == "" || p.JTI == "" {
		return common.ErrMalformedToken
	}

	if err := s.registry.Blacklist(ctx, p.JTI, s.issuer.AccessTTL()); err != nil {
		return s.failure(ctx, "blacklist access token", err)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	n, err := s.repomanager.RefreshTokens(s.db).InvalidateAll(ctx, p.UserID)
	if err != nil {
		return s.failure(ctx, "invalidate refresh tokens", err)
	}
	s.logger.Info(ctx, "logged out", "user_id", p.UserID,
		"refresh_tokens_invalidated", n, "access_token_remaining", p.RemainingTTL(s.now()).String())
	return nil
}

// Verify authenticates an access token for the transports.
func (s *SessionService) Verify(ctx context.Context, token string) (*auth.Principal, error) {
	p, err := s.verifier.Verify(ctx, token)
	if err != nil {
		if common.IsUnauthorized(err) {
			s.logger.Debug(ctx, "access token rejected", "error", err)
		} else {
			s.logger.Warn(ctx, "access token could not be verified", "error", err)
		}
		return nil, err
	}
	return p, nil
}

func (s *SessionService) issuePair(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	access, _, err := s.issuer.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	raw, hash, err := s.issuer.IssueRefresh()
	if err != nil {
		return nil, err
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, userID, hash, s.now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: raw, TokenType: common.TokenTypeBearer}, nil
}

func (s *SessionService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// failure logs err and reduces it to common.ErrServiceUnavailable when the
// store or registry could not answer, common.ErrInternal otherwise.
func (s *SessionService) failure(ctx context.Context, op string, err error) error {
	if dbx.IsUnavailable(err) {
		s.logger.Warn(ctx, op+" failed: backend unavailable", "error", err)
		return common.ErrServiceUnavailable
	}
	s.logger.Error(ctx, op+" failed", "error", err)
	return common.ErrInternal
}
