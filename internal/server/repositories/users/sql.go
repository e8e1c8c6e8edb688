package users

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

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
	now     func() time.Time
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect, now func() time.Time) *SQLRepository {
	if now == nil {
		now = time.Now
	}
	return &SQLRepository{db: db, dialect: dialect, now: now}
}

func (r *SQLRepository) Lookup(ctx context.Context, identifier string) (*models.Credentials, error) {
	query := `
		SELECT u.id, u.password_hash
		FROM user_contacts c
		JOIN users u ON u.id = c.user_id
		WHERE c.value = $1 AND c.active AND u.active
	`
	creds := &models.Credentials{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), identifier).Scan(&creds.UserID, &creds.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return creds, nil
}

func (r *SQLRepository) Create(ctx context.Context, contacts []models.Contact, passwordHash string) (*models.User, error) {
	if len(contacts) == 0 || passwordHash == "" {
		return nil, common.ErrMissingRequiredField
	}

	user := &models.User{
		ID:           uuid.NewString(),
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    r.now().UTC().Truncate(time.Millisecond),
	}

	query := `
		INSERT INTO users (id, password_hash, active, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		user.ID, user.PasswordHash, user.Active, dbx.Millis(user.CreatedAt)); err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}

	contactQuery := r.dialect.Rebind(`
		INSERT INTO user_contacts (id, user_id, kind, value, active)
		VALUES ($1, $2, $3, $4, $5)
	`)
	for _, c := range contacts {
		if _, err := r.db.ExecContext(ctx, contactQuery,
			uuid.NewString(), user.ID, string(c.Kind), c.Value, true); err != nil {
			if dbx.IsUniqueViolation(err) {
				return nil, fmt.Errorf("contact %q: %w", c.Value, common.ErrorAlreadyExists)
			}
			return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
		}
	}

	return user, nil
}

var _ Repository = (*SQLRepository)(nil)
