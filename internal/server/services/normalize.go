package services

import (
	"strings"
	"unicode"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// NormalizeIdentifier maps the many ways a user may type an identifier to
// the form stored in the directory: e-mails are lower-cased, Russian phone
// numbers become +7XXXXXXXXXX, anything else is a login name and is only
// trimmed.
func NormalizeIdentifier(identifier string) string {
	id := strings.TrimSpace(identifier)
	if strings.Contains(id, "@") {
		return strings.ToLower(id)
	}
	if !looksLikePhone(id) {
		return id
	}

	var digits strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case strings.HasPrefix(d, "7"):
		return "+" + d
	case strings.HasPrefix(d, "8"):
		return "+7" + d[1:]
	}
	return id
}

// looksLikePhone rejects anything with letters so that logins such as
// "user7" are never rewritten into phone numbers.
func looksLikePhone(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '+' || r == '-' || r == '(' || r == ')' || r == ' ' || r == '.':
		default:
			return false
		}
	}
	return hasDigit
}

// ContactKindOf classifies an already normalized identifier.
func ContactKindOf(normalized string) models.ContactKind {
	switch {
	case strings.Contains(normalized, "@"):
		return models.ContactEmail
	case strings.HasPrefix(normalized, "+") && looksLikePhone(normalized):
		return models.ContactPhone
	}
	return models.ContactLogin
}
