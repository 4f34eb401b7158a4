package models

import (
	"strings"
	"time"
	"unicode"
)

// UserRole enumerates platform roles stored on a profile.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
)

// DefaultRole is assigned to profiles created during reconciliation.
const DefaultRole = RoleStudent

// Profile is the persisted platform record keyed by the auth identity.
type Profile struct {
	ID        string     `db:"id" json:"id"`
	Email     string     `db:"email" json:"email"`
	Role      UserRole   `db:"role" json:"role"`
	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
}

// DisplayName derives a human readable name from the email local part.
func (p Profile) DisplayName() string {
	local := p.Email
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
