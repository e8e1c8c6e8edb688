// Package users is the user directory consulted at login: accounts and the
// normalized identifiers (login name, e-mail, phone) they sign in with.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	// Lookup resolves a normalized identifier to the credentials of an active
	// user with an active contact. It returns common.ErrorNotFound otherwise.
	Lookup(ctx context.Context, identifier string) (*models.Credentials, error)

	// Create inserts a user and its contacts. Callers run it inside a
	// transaction so a duplicate contact leaves nothing behind.
	Create(ctx context.Context, contacts []models.Contact, passwordHash string) (*models.User, error)
}
