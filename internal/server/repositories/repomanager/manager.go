package repomanager

import (
	"context"
	"database/sql"

	"github.com/ktb-community/community-be-main/internal/dbx"
	"github.com/ktb-community/community-be-main/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a transactional handle.
// Services pass the unit-of-work's DBTX so every statement of one operation
// runs on the same transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
