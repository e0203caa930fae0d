package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ktb-community/community-be-main/internal/common"
	"github.com/ktb-community/community-be-main/internal/dbx"
	"github.com/ktb-community/community-be-main/internal/logging"
	"github.com/ktb-community/community-be-main/internal/server/models"
	usersrepo "github.com/ktb-community/community-be-main/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeUsersRepo is an in-memory stand-in for the postgres repository. It
// keeps real state so tests can assert what a failed operation did NOT
// change. The sqlmock database underneath still checks begin/commit/rollback.
type fakeUsersRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User

	failWith error // every call returns this when set
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{nextID: 1, byID: make(map[int64]*models.User)}
}

func (f *fakeUsersRepo) seed(u *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *u
	c.ID = f.nextID
	f.nextID++
	f.byID[c.ID] = &c
	return &c
}

func (f *fakeUsersRepo) get(id int64) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

func (f *fakeUsersRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) FindByNickname(ctx context.Context, nickname string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.byID {
		if u.Nickname == nickname {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.byID {
		if u.Email == user.Email {
			return nil, common.ErrDuplicateEmail
		}
		if u.Nickname == user.Nickname {
			return nil, common.ErrDuplicateNickname
		}
	}
	c := *user
	c.ID = f.nextID
	f.nextID++
	c.CreatedAt = time.Now()
	f.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeUsersRepo) UpdateLoginMetadata(ctx context.Context, id int64, lastLoginAt time.Time, refreshToken sql.NullString) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.LastLoginAt = sql.NullTime{Time: lastLoginAt, Valid: true}
	u.RefreshToken = refreshToken
	return nil
}

func (f *fakeUsersRepo) UpdateRefreshToken(ctx context.Context, id int64, refreshToken sql.NullString) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.RefreshToken = refreshToken
	return nil
}

func (f *fakeUsersRepo) UpdateNickname(ctx context.Context, id int64, nickname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.Nickname = nickname
	return nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }
