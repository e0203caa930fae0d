// Package models holds the persistent entities of the community backend.
package models

import (
	"database/sql"
	"time"
)

// User roles. Role is fixed at creation time; authorization decisions based
// on it live outside this service.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is the credential record. Email and Nickname are globally unique,
// enforced by database constraints inside the same transaction that writes
// them. PasswordHash is a bcrypt digest and never leaves the server.
//
// RefreshToken holds the single currently valid refresh credential in the
// bearer deployment: it is NULL until the first login, replaced wholesale on
// every login and refresh, and set back to NULL on logout. The session
// deployment leaves it NULL.
type User struct {
	ID           int64
	Email        string
	Nickname     string
	PasswordHash string
	Role         string
	ProfileImage string
	RefreshToken sql.NullString
	LastLoginAt  sql.NullTime
	CreatedAt    time.Time
}
