package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// EnsureAccount creates an account reachable by identifier unless one
// already exists. It reports whether an account was created.
func (s *SessionService) EnsureAccount(ctx context.Context, identifier, pass string) (bool, error) {
	id := NormalizeIdentifier(identifier)
	if id == "" || pass == "" {
		return false, common.ErrMissingRequiredField
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	_, err := s.repomanager.Users(s.db).Lookup(ctx, id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, s.failure(ctx, "user lookup", err)
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return false, s.failure(ctx, "hash password", err)
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err = s.repomanager.Users(tx).Create(ctx, []models.Contact{{Kind: ContactKindOf(id), Value: id}}, hash)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return false, nil
		}
		return false, s.failure(ctx, "create account", err)
	}

	s.logger.Info(ctx, "account created", "user_id", user.ID, "kind", string(ContactKindOf(id)))
	return true, nil
}
