package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ktb-community/community-be-main/internal/common"
	"github.com/ktb-community/community-be-main/internal/dbx"
	"github.com/ktb-community/community-be-main/internal/logging"
	"github.com/ktb-community/community-be-main/internal/server/auth"
	"github.com/ktb-community/community-be-main/internal/server/models"
	"github.com/ktb-community/community-be-main/internal/server/repositories/repomanager"
	"github.com/ktb-community/community-be-main/internal/server/validation"
)

// UserService covers profile reads and the two credential mutations, nickname
// and password change. Mutations require the caller to restate current state
// (current nickname, current password) so a stale client cannot clobber a
// concurrent change.
type UserService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	hasher    auth.PasswordHasher
	validator validation.Validator
	logger    logging.Logger
}

func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, hasher auth.PasswordHasher,
	validator validation.Validator, logger logging.Logger) *UserService {
	return &UserService{
		db:        db,
		repos:     repos,
		hasher:    hasher,
		validator: validator,
		logger:    logger.With("module", "user_service"),
	}
}

// Get returns the profile of the given user.
func (s *UserService) Get(ctx context.Context, userID int64) (*models.User, error) {
	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repos.Users(tx).FindByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangeNickname replaces the user's nickname. The caller must present the
// nickname it believes is current; a mismatch means the client is stale and
// the request is rejected before any lookup of the new value.
func (s *UserService) ChangeNickname(ctx context.Context, userID int64, current, next string) error {
	if current == "" || next == "" {
		return fmt.Errorf("%w: current and new nickname are required", common.ErrValidation)
	}
	if !s.validator.Nickname(next) {
		return fmt.Errorf("%w: malformed nickname", common.ErrValidation)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)

		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.Nickname != current {
			return fmt.Errorf("%w: current nickname does not match", common.ErrValidation)
		}
		if next == user.Nickname {
			return common.ErrDuplicateNickname
		}

		if _, err := repo.FindByNickname(ctx, next); err == nil {
			return common.ErrDuplicateNickname
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		return repo.UpdateNickname(ctx, userID, next)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "nickname changed", "user_id", userID)
	return nil
}

// ChangePassword replaces the user's password hash. The current password is
// verified first, the new one must differ from it and satisfy the format
// rules; only then is the new hash written.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if current == "" || next == "" {
		return fmt.Errorf("%w: current and new password are required", common.ErrValidation)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)

		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if !s.hasher.Compare(current, user.PasswordHash) {
			s.logger.Warn(ctx, "password change failed: current password mismatch", "user_id", userID)
			return common.ErrInvalidCredentials
		}
		if next == current {
			return common.ErrSamePassword
		}
		if !s.validator.Password(next) {
			return fmt.Errorf("%w: password does not meet the rules", common.ErrValidation)
		}

		hash, err := s.hasher.Hash(next)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		return repo.UpdatePassword(ctx, userID, hash)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}
