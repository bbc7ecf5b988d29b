package types

import (
	"strings"
	"time"
)

// User represents an account in the system.
// It contains identity, credential, and audit metadata plus the
// relational collections the user owns.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"userId" db:"id"`

	// UserName is the unique login name chosen by the user.
	UserName string `json:"userName" db:"user_name"`

	// NormalizedUserName is the uppercase form of UserName, used for
	// case-insensitive uniqueness and lookups. Never exposed.
	NormalizedUserName string `json:"-" db:"normalized_user_name"`

	// Email is the user's email address, unique across accounts.
	Email string `json:"email" db:"email"`

	// NormalizedEmail is the uppercase form of Email, used for
	// case-insensitive uniqueness. Never exposed.
	NormalizedEmail string `json:"-" db:"normalized_email"`

	// EmailConfirmed reports whether the address has been verified.
	EmailConfirmed bool `json:"-" db:"email_confirmed"`

	// PasswordHash stores the hashed representation of the user's password.
	// Empty when the account has no local credential. Never exposed.
	PasswordHash string `json:"-" db:"password_hash"`

	// FirstName is the user's given name.
	FirstName string `json:"firstName" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"lastName" db:"last_name"`

	// BirthDate is the user's date of birth.
	BirthDate time.Time `json:"birthDate" db:"birth_date"`

	// LastSignedIn is the timestamp of the most recent successful login,
	// nil when the user has never signed in.
	LastSignedIn *time.Time `json:"-" db:"last_signed_in"`

	// DateCreated is the timestamp when the account was created.
	DateCreated time.Time `json:"dateCreated" db:"date_created"`

	// Posts holds the user's posts when loaded with relations.
	Posts []Post `json:"posts,omitempty" db:"-"`

	// Comments holds the user's comments when loaded with relations.
	Comments []Comment `json:"comments,omitempty" db:"-"`
}

// FullName joins the user's first and last names for display.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Normalize returns the canonical form used for case-insensitive
// uniqueness comparisons on usernames and emails.
func Normalize(value string) string {
	return strings.ToUpper(value)
}
