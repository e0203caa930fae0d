package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ktb-community/community-be-main/internal/common"
	"github.com/ktb-community/community-be-main/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRows(u *models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "nickname", "password_hash", "role",
		"profile_image", "refresh_token", "last_login_at", "created_at",
	}).AddRow(u.ID, u.Email, u.Nickname, u.PasswordHash, u.Role,
		u.ProfileImage, u.RefreshToken, u.LastLoginAt, u.CreatedAt)
}

const selectByEmailQ = `(?s)^SELECT\s+.+\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`

func TestFindByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	want := &models.User{
		ID: 7, Email: "a@x.com", Nickname: "alice",
		PasswordHash: "h", Role: models.RoleUser, CreatedAt: time.Now(),
	}
	mock.ExpectQuery(selectByEmailQ).WithArgs("a@x.com").WillReturnRows(userRows(want))

	got, err := repo.FindByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.ID != 7 || got.Nickname != "alice" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByEmailQ).WithArgs("ghost@x.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@x.com")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestFindByEmail_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByEmailQ).WithArgs("a@x.com").WillReturnError(errors.New("db down"))

	_, err := repo.FindByEmail(context.Background(), "a@x.com")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestCreate_AssignsID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(email,\s*nickname,\s*password_hash,\s*role,\s*profile_image,\s*refresh_token,\s*last_login_at\)`
	rows := sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), time.Now())
	mock.ExpectQuery(q).
		WithArgs("a@x.com", "alice", "hash", models.RoleUser, "img", sql.NullString{}, sql.NullTime{}).
		WillReturnRows(rows)

	u := &models.User{Email: "a@x.com", Nickname: "alice", PasswordHash: "hash", Role: models.RoleUser, ProfileImage: "img"}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 42 {
		t.Fatalf("expected assigned id 42, got %d", got.ID)
	}
}

func TestCreate_DuplicateEmailConstraint(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).WillReturnError(pgErr)

	_, err := repo.Create(context.Background(), &models.User{Email: "a@x.com", Nickname: "alice"})
	if !errors.Is(err, common.ErrDuplicateEmail) {
		t.Fatalf("want common.ErrDuplicateEmail, got %v", err)
	}
}

func TestCreate_DuplicateNicknameConstraint(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_nickname_key"}
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).WillReturnError(pgErr)

	_, err := repo.Create(context.Background(), &models.User{Email: "b@x.com", Nickname: "alice"})
	if !errors.Is(err, common.ErrDuplicateNickname) {
		t.Fatalf("want common.ErrDuplicateNickname, got %v", err)
	}
}

func TestUpdateLoginMetadata_SingleStatement(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	token := sql.NullString{String: "refresh-abc", Valid: true}
	q := `(?s)^UPDATE\s+users\s+SET\s+last_login_at\s*=\s*\$1,\s*refresh_token\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3\s*$`
	mock.ExpectExec(q).WithArgs(now, token, int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateLoginMetadata(context.Background(), 7, now, token); err != nil {
		t.Fatalf("UpdateLoginMetadata error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestUpdateRefreshToken_NullRevokes(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+refresh_token\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2\s*$`
	mock.ExpectExec(q).WithArgs(sql.NullString{}, int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateRefreshToken(context.Background(), 7, sql.NullString{}); err != nil {
		t.Fatalf("UpdateRefreshToken error: %v", err)
	}
}

func TestUpdateNickname_NoRowsIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+nickname\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2\s*$`
	mock.ExpectExec(q).WithArgs("bob", int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateNickname(context.Background(), 99, "bob")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestUpdateNickname_DuplicateConstraint(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_nickname_key"}
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+nickname`).WillReturnError(pgErr)

	err := repo.UpdateNickname(context.Background(), 7, "taken")
	if !errors.Is(err, common.ErrDuplicateNickname) {
		t.Fatalf("want common.ErrDuplicateNickname, got %v", err)
	}
}
