// Package auth holds the credential primitives of the lifecycle: the signed
// bearer-token codec and the password hasher. Both are small so the service
// layer can swap them in tests.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ktb-community/community-be-main/internal/common"
)

// Claims are the identity attributes embedded in every access and refresh
// token. Downstream authorization trusts them once the signature verifies.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

// Codec signs and verifies HS256 bearer tokens with one secret. The bearer
// deployment runs two: one for access tokens, one for refresh tokens.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty token secret")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Sign mints a token carrying the identity claims with an expiry of now+ttl.
func (c *Codec) Sign(userID int64, email, nickname, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// jti makes every token distinct even when two are minted within
			// the same second, so rotation always produces a new value.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   userID,
		Email:    email,
		Nickname: nickname,
		Role:     role,
	})
	return token.SignedString(c.secret)
}

// Verify checks signature and expiry and returns the embedded claims.
// Any failure maps to common.ErrInvalidToken; the caller does not learn
// whether the token was malformed, forged, or merely stale.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
