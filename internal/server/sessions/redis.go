package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ktb-community/community-be-main/internal/common"
	"github.com/ktb-community/community-be-main/internal/server/models"
)

const redisKeyPrefix = "session:"

// redisSession is the wire form stored in redis.
type redisSession struct {
	UserID    int64         `json:"userId"`
	Email     string        `json:"email"`
	Nickname  string        `json:"nickname"`
	Role      string        `json:"role"`
	CreatedAt time.Time     `json:"createdAt"`
	MaxAge    time.Duration `json:"maxAge"`
}

// RedisStore keeps sessions in redis. Keys carry a TTL of MaxAge as a
// backstop, but the middleware still performs the lazy expiry check itself
// so behavior does not depend on redis clock eviction.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(redisSession{
		UserID:    session.UserID,
		Email:     session.Email,
		Nickname:  session.Nickname,
		Role:      session.Role,
		CreatedAt: session.CreatedAt,
		MaxAge:    session.MaxAge,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+session.ID, payload, session.MaxAge).Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var stored redisSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &models.Session{
		ID:        id,
		UserID:    stored.UserID,
		Email:     stored.Email,
		Nickname:  stored.Nickname,
		Role:      stored.Role,
		CreatedAt: stored.CreatedAt,
		MaxAge:    stored.MaxAge,
	}, nil
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	// DEL of a missing key is a no-op in redis, which gives us idempotence
	// for free.
	if err := s.rdb.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}
