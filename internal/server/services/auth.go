// Package services contains the business logic of the credential lifecycle.
// Every externally invoked operation runs as exactly one unit of work; a
// failure anywhere inside rolls the whole operation back, so no partial
// effect is ever visible.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ktb-community/community-be-main/internal/common"
	"github.com/ktb-community/community-be-main/internal/dbx"
	"github.com/ktb-community/community-be-main/internal/logging"
	"github.com/ktb-community/community-be-main/internal/server/auth"
	"github.com/ktb-community/community-be-main/internal/server/models"
	"github.com/ktb-community/community-be-main/internal/server/repositories/repomanager"
	"github.com/ktb-community/community-be-main/internal/server/validation"
)

// AuthService orchestrates signup, login, logout, and refresh. The auth
// strategy (bearer tokens or server-side sessions) is fixed at construction;
// both modes share the validation, lookup, and password-check steps.
type AuthService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	hasher    auth.PasswordHasher
	validator validation.Validator
	strategy  Strategy
	logger    logging.Logger
}

func NewAuthService(db *sql.DB, repos repomanager.RepositoryManager, hasher auth.PasswordHasher,
	validator validation.Validator, strategy Strategy, logger logging.Logger) *AuthService {
	return &AuthService{
		db:        db,
		repos:     repos,
		hasher:    hasher,
		validator: validator,
		strategy:  strategy,
		logger:    logger.With("module", "auth_service"),
	}
}

// SignupParams carries the fields of a registration request. ProfileImage is
// the storage key of an already-uploaded image; the upload itself happens
// against the storage collaborator before signup is called.
type SignupParams struct {
	Email        string
	Password     string
	Nickname     string
	ProfileImage string
}

// Signup registers a new USER-role credential record and returns its
// store-assigned identifier. It issues no credentials: registration and
// login are decoupled, the caller logs in separately.
func (s *AuthService) Signup(ctx context.Context, p SignupParams) (int64, error) {
	return s.signup(ctx, p, models.RoleUser)
}

// SignupAdmin registers an ADMIN-role record. Role is fixed at creation;
// there is no promotion path, which is why the bootstrap tool goes through
// the same lifecycle instead of poking the store directly.
func (s *AuthService) SignupAdmin(ctx context.Context, p SignupParams) (int64, error) {
	return s.signup(ctx, p, models.RoleAdmin)
}

func (s *AuthService) signup(ctx context.Context, p SignupParams, role string) (int64, error) {
	if p.Email == "" || p.Password == "" || p.Nickname == "" || p.ProfileImage == "" {
		return 0, fmt.Errorf("%w: all fields are required", common.ErrValidation)
	}
	if !s.validator.Email(p.Email) {
		return 0, fmt.Errorf("%w: malformed email", common.ErrValidation)
	}
	if !s.validator.Password(p.Password) {
		return 0, fmt.Errorf("%w: password does not meet the rules", common.ErrValidation)
	}
	if !s.validator.Nickname(p.Nickname) {
		return 0, fmt.Errorf("%w: malformed nickname", common.ErrValidation)
	}

	var id int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)

		// Pre-check both uniqueness rules before any write. The concurrent
		// race is closed by the unique constraints, which surface as the
		// same sentinels from Create.
		if _, err := repo.FindByEmail(ctx, p.Email); err == nil {
			return common.ErrDuplicateEmail
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if _, err := repo.FindByNickname(ctx, p.Nickname); err == nil {
			return common.ErrDuplicateNickname
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		hash, err := s.hasher.Hash(p.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		created, err := repo.Create(ctx, &models.User{
			Email:        p.Email,
			Nickname:     p.Nickname,
			PasswordHash: hash,
			Role:         role,
			ProfileImage: p.ProfileImage,
		})
		if err != nil {
			return err
		}
		id = created.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "user registered", "user_id", id, "role", role)
	return id, nil
}

// Login verifies the email/password pair and, on success, hands credential
// issuance to the configured strategy. An unknown email and a wrong password
// are indistinguishable to the caller; only the log line differs.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Credentials, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	var creds *Credentials
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)

		user, err := repo.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				s.logger.Warn(ctx, "login failed: email not registered", "email", email)
				return common.ErrInvalidCredentials
			}
			return err
		}

		if !s.hasher.Compare(password, user.PasswordHash) {
			s.logger.Warn(ctx, "login failed: password mismatch", "user_id", user.ID)
			return common.ErrInvalidCredentials
		}

		creds, err = s.strategy.Issue(ctx, repo, user, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", creds.Identity.UserID)
	return creds, nil
}

// Refresh exchanges a presented refresh credential for a new pair, rotating
// the persisted token. Replaying a superseded token fails with
// common.ErrInvalidCredentials.
func (s *AuthService) Refresh(ctx context.Context, userID int64, presented string) (*Credentials, error) {
	if userID == 0 || presented == "" {
		return nil, fmt.Errorf("%w: user id and refresh token are required", common.ErrValidation)
	}

	var creds *Credentials
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		creds, err = s.strategy.Refresh(ctx, s.repos.Users(tx), userID, presented)
		return err
	})
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// Logout revokes the presented credential: the bearer mode nulls the
// rotating token (which also kills every earlier refresh token), the session
// mode destroys the server-side session.
func (s *AuthService) Logout(ctx context.Context, userID int64, presented string) error {
	if userID == 0 || presented == "" {
		return fmt.Errorf("%w: user id and credential are required", common.ErrValidation)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.strategy.Revoke(ctx, s.repos.Users(tx), userID, presented)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "user logged out", "user_id", userID)
	return nil
}
