// Package users provides data access to the credential records. The
// repository performs no business validation; services enforce the rules and
// call it inside one unit of work per operation.
package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/ktb-community/community-be-main/internal/server/models"
)

// Repository is the minimal read/write surface the credential lifecycle
// needs. Lookups return common.ErrNotFound when no record matches.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByNickname(ctx context.Context, nickname string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// Create inserts the record and fills in the store-assigned ID.
	// Unique-constraint violations come back as common.ErrDuplicateEmail or
	// common.ErrDuplicateNickname.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// UpdateLoginMetadata writes last_login_at and refresh_token together in
	// a single statement; a login never updates one without the other.
	UpdateLoginMetadata(ctx context.Context, id int64, lastLoginAt time.Time, refreshToken sql.NullString) error

	// UpdateRefreshToken rewrites the rotating token; a NULL value revokes it.
	UpdateRefreshToken(ctx context.Context, id int64, refreshToken sql.NullString) error

	UpdateNickname(ctx context.Context, id int64, nickname string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
