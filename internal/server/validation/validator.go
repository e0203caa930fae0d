// Package validation checks the format of user-supplied identity fields.
// The Validator interface keeps the rules swappable; the default rules match
// what the web client enforces.
package validation

import (
	"regexp"
	"strings"
)

// Validator is the pluggable field validator consumed by the credential
// lifecycle. Each predicate reports format validity only; uniqueness and
// credential checks happen elsewhere.
type Validator interface {
	Email(email string) bool
	Nickname(nickname string) bool
	Password(password string) bool
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// FieldValidator implements the default rules:
//   - email: conventional address shape;
//   - nickname: 1–10 characters, no spaces;
//   - password: 8–20 characters with at least one upper, lower, digit, and
//     one of !@#$%^&*.
type FieldValidator struct{}

func NewFieldValidator() *FieldValidator {
	return &FieldValidator{}
}

func (v *FieldValidator) Email(email string) bool {
	return emailRe.MatchString(email)
}

func (v *FieldValidator) Nickname(nickname string) bool {
	return len(nickname) > 0 && len(nickname) <= 10 && !strings.Contains(nickname, " ")
}

func (v *FieldValidator) Password(password string) bool {
	if len(password) < 8 || len(password) > 20 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune("!@#$%^&*", r):
			special = true
		}
	}
	return upper && lower && digit && special
}
