package models

import "time"

// User is a row of the users table.
//
// Email holds the lookup-encrypted address, never the clear text, and
// PasswordHash the bcrypt hash of the password.
type User struct {
	ID           int64
	GivenName    string
	FamilyName   string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
