package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ktb-community/community-be-main/internal/common"
	"github.com/ktb-community/community-be-main/internal/dbx"
	"github.com/ktb-community/community-be-main/internal/server/models"
)

// Constraint names from the users migration; a 23505 on one of these is the
// duplicate-registration race losing to the database, not an infrastructure
// fault.
const (
	emailConstraint    = "users_email_key"
	nicknameConstraint = "users_nickname_key"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, nickname, password_hash, role, profile_image, refresh_token, last_login_at, created_at`

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Nickname, &user.PasswordHash,
		&user.Role, &user.ProfileImage, &user.RefreshToken,
		&user.LastLoginAt, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) FindByNickname(ctx context.Context, nickname string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE nickname = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, nickname))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (email, nickname, password_hash, role, profile_image, refresh_token, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Nickname, user.PasswordHash, user.Role,
		user.ProfileImage, user.RefreshToken, user.LastLoginAt,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) UpdateLoginMetadata(ctx context.Context, id int64, lastLoginAt time.Time, refreshToken sql.NullString) error {
	query := `UPDATE users SET last_login_at = $1, refresh_token = $2 WHERE id = $3`
	return r.exec(ctx, query, lastLoginAt, refreshToken, id)
}

func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, id int64, refreshToken sql.NullString) error {
	query := `UPDATE users SET refresh_token = $1 WHERE id = $2`
	return r.exec(ctx, query, refreshToken, id)
}

func (r *PostgresRepository) UpdateNickname(ctx context.Context, id int64, nickname string) error {
	query := `UPDATE users SET nickname = $1 WHERE id = $2`
	return r.exec(ctx, query, nickname, id)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1 WHERE id = $2`
	return r.exec(ctx, query, passwordHash, id)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// duplicateError maps a unique-violation (23505) onto the matching sentinel,
// or returns nil if err is anything else. The pre-checks in the service layer
// close the common case; this closes the concurrent one.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case emailConstraint:
		return common.ErrDuplicateEmail
	case nicknameConstraint:
		return common.ErrDuplicateNickname
	default:
		return fmt.Errorf("db error: %w", err)
	}
}
