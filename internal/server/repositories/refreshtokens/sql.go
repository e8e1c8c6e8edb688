package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/google/uuid"
)

// SQLRepository implements Repository over dbx.DBTX (satisfied by *sql.DB
// or *sql.Tx) for PostgreSQL and SQLite.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
	now     func() time.Time
}

// NewSQLRepository constructs a repository bound to the given DBTX. A nil
// now falls back to time.Now.
func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect, now func() time.Time) *SQLRepository {
	if now == nil {
		now = time.Now
	}
	return &SQLRepository{db: db, dialect: dialect, now: now}
}

func (r *SQLRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		uuid.NewString(), userID, tokenHash, string(models.RefreshTokenActive),
		dbx.Millis(r.now()), dbx.Millis(expiresAt))
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", dbx.Classify(err))
	}
	return nil
}

func (r *SQLRepository) Consume(ctx context.Context, tokenHash string) (string, error) {
	query := `
		UPDATE refresh_tokens
		SET status = 'consumed', consumed_at = $2
		WHERE token_hash = $1 AND status = 'active' AND expires_at > $2
		RETURNING user_id
	`
	var userID string
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), tokenHash, dbx.Millis(r.now())).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFoundOrExpired
		}
		return "", fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return userID, nil
}

func (r *SQLRepository) InvalidateAll(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET status = 'invalidated', invalidated_at = $2
		WHERE user_id = $1 AND status = 'active'
	`
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), userID, dbx.Millis(r.now()))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), dbx.Millis(before))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

var _ Repository = (*SQLRepository)(nil)
