package models

import "time"

// ContactKind says how a user identifier was written.
type ContactKind string

const (
	ContactLogin ContactKind = "login"
	ContactEmail ContactKind = "email"
	ContactPhone ContactKind = "phone"
)

// User is an account known to the directory.
type User struct {
	ID           string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// Contact is one normalized identifier a user can log in with.
type Contact struct {
	Kind  ContactKind
	Value string
}

// Credentials is what the directory returns for a login attempt.
type Credentials struct {
	UserID       string
	PasswordHash string
}
