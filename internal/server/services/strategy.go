package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ktb-community/community-be-main/internal/common"
	"github.com/ktb-community/community-be-main/internal/server/auth"
	"github.com/ktb-community/community-be-main/internal/server/models"
	"github.com/ktb-community/community-be-main/internal/server/repositories/users"
	"github.com/ktb-community/community-be-main/internal/server/sessions"
)

// Identity is the caller-visible projection of a credential record. It never
// carries the password hash.
type Identity struct {
	UserID       int64
	Email        string
	Nickname     string
	Role         string
	ProfileImage string
	LastLoginAt  time.Time
}

func identityOf(user *models.User, lastLoginAt time.Time) Identity {
	return Identity{
		UserID:       user.ID,
		Email:        user.Email,
		Nickname:     user.Nickname,
		Role:         user.Role,
		ProfileImage: user.ProfileImage,
		LastLoginAt:  lastLoginAt,
	}
}

// Credentials is what a successful login or refresh hands back: the identity
// plus the artifacts of whichever strategy the process runs. The bearer
// strategy fills AccessToken/RefreshToken; the session strategy fills
// SessionID/SessionMaxAge.
type Credentials struct {
	Identity      Identity
	AccessToken   string
	RefreshToken  string
	SessionID     string
	SessionMaxAge time.Duration
}

// Strategy is the part of the credential lifecycle that differs between the
// two deployment modes. One implementation is chosen at process start; the
// repo argument is bound to the surrounding unit of work, so strategy writes
// commit or roll back together with the rest of the operation.
type Strategy interface {
	// Issue creates the credential artifacts after a successful password
	// check and records the login on the credential record.
	Issue(ctx context.Context, repo users.Repository, user *models.User, now time.Time) (*Credentials, error)

	// Refresh exchanges a presented refresh credential for a fresh set.
	Refresh(ctx context.Context, repo users.Repository, userID int64, presented string) (*Credentials, error)

	// Revoke invalidates the credential presented at logout. Revoking an
	// already-revoked credential of the session kind is a no-op.
	Revoke(ctx context.Context, repo users.Repository, userID int64, presented string) error
}

// TokenStrategy implements the bearer mode: a short-lived stateless access
// token plus a long-lived refresh token whose current value is persisted on
// the credential record. Only the most recently issued refresh token ever
// matches the record, which is what makes logout and rotation effective for
// otherwise unrevocable signed tokens.
type TokenStrategy struct {
	access     *auth.Codec
	refresh    *auth.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenStrategy(access, refresh *auth.Codec, accessTTL, refreshTTL time.Duration) *TokenStrategy {
	return &TokenStrategy{access: access, refresh: refresh, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (s *TokenStrategy) mintPair(user *models.User) (string, string, error) {
	accessToken, err := s.access.Sign(user.ID, user.Email, user.Nickname, user.Role, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.refresh.Sign(user.ID, user.Email, user.Nickname, user.Role, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (s *TokenStrategy) Issue(ctx context.Context, repo users.Repository, user *models.User, now time.Time) (*Credentials, error) {
	accessToken, refreshToken, err := s.mintPair(user)
	if err != nil {
		return nil, err
	}

	// last_login_at and the rotating token land in one statement: a login
	// never records one without the other.
	rotating := sql.NullString{String: refreshToken, Valid: true}
	if err := repo.UpdateLoginMetadata(ctx, user.ID, now, rotating); err != nil {
		return nil, err
	}

	return &Credentials{
		Identity:     identityOf(user, now),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *TokenStrategy) Refresh(ctx context.Context, repo users.Repository, userID int64, presented string) (*Credentials, error) {
	claims, err := s.refresh.Verify(presented)
	if err != nil {
		return nil, err // common.ErrInvalidToken
	}
	if claims.UserID != userID {
		return nil, common.ErrInvalidCredentials
	}

	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	// The presented token must equal the persisted rotating token. A token
	// that verified but was superseded by a later login or refresh fails
	// here; that is the replay rejection.
	if !user.RefreshToken.Valid || user.RefreshToken.String != presented {
		return nil, common.ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.mintPair(user)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateRefreshToken(ctx, user.ID, sql.NullString{String: refreshToken, Valid: true}); err != nil {
		return nil, err
	}

	lastLogin := user.LastLoginAt.Time
	return &Credentials{
		Identity:     identityOf(user, lastLogin),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *TokenStrategy) Revoke(ctx context.Context, repo users.Repository, userID int64, presented string) error {
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidCredentials
		}
		return err
	}
	if !user.RefreshToken.Valid || user.RefreshToken.String != presented {
		return common.ErrInvalidCredentials
	}
	return repo.UpdateRefreshToken(ctx, user.ID, sql.NullString{})
}

// SessionStrategy implements the session mode: a server-held session record
// keyed by an opaque identifier, destroyed on logout or lazily on expiry.
// The rotating-token column stays NULL in this mode.
type SessionStrategy struct {
	store  sessions.Store
	maxAge time.Duration
}

func NewSessionStrategy(store sessions.Store, maxAge time.Duration) *SessionStrategy {
	return &SessionStrategy{store: store, maxAge: maxAge}
}

func (s *SessionStrategy) Issue(ctx context.Context, repo users.Repository, user *models.User, now time.Time) (*Credentials, error) {
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Nickname:  user.Nickname,
		Role:      user.Role,
		CreatedAt: now,
		MaxAge:    s.maxAge,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}
	if err := repo.UpdateLoginMetadata(ctx, user.ID, now, sql.NullString{}); err != nil {
		return nil, err
	}

	return &Credentials{
		Identity:      identityOf(user, now),
		SessionID:     session.ID,
		SessionMaxAge: s.maxAge,
	}, nil
}

// Refresh has no meaning without a refresh credential; a session deployment
// rejects the call outright.
func (s *SessionStrategy) Refresh(ctx context.Context, repo users.Repository, userID int64, presented string) (*Credentials, error) {
	return nil, common.ErrInvalidToken
}

func (s *SessionStrategy) Revoke(ctx context.Context, repo users.Repository, userID int64, presented string) error {
	return s.store.Destroy(ctx, presented)
}
