// Package password hashes and verifies user passwords. The session layer
// only sees the Hasher interface; the stored hash format selects the
// algorithm at verification time.
package password

import (
	"errors"
	"strings"
)

// ErrInvalidHash is returned for stored hashes no hasher understands.
var ErrInvalidHash = errors.New("invalid password hash")

type Hasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches hash. A mismatch is not an
	// error; a corrupt hash is.
	Verify(password, hash string) (bool, error)
}

// Multi hashes with bcrypt and verifies both bcrypt and argon2id hashes, so
// accounts imported from either scheme keep working.
type Multi struct {
	Bcrypt   *Bcrypt
	Argon2id *Argon2id
}

func NewMulti() *Multi {
	return &Multi{Bcrypt: NewBcrypt(0), Argon2id: NewArgon2id()}
}

func (m *Multi) Hash(password string) (string, error) {
	return m.Bcrypt.Hash(password)
}

func (m *Multi) Verify(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, argon2idPrefix):
		return m.Argon2id.Verify(password, hash)
	case strings.HasPrefix(hash, "$2"):
		return m.Bcrypt.Verify(password, hash)
	}
	return false, ErrInvalidHash
}

var _ Hasher = (*Multi)(nil)
