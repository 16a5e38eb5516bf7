// Package cache decorates repositories with a Redis read-through cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const userKeyPrefix = "leave:user:"

func userKey(id string) string {
	return userKeyPrefix + id
}

type userRepository struct {
	next user.UserRepository
	rdb  redis.Cmdable
	ttl  time.Duration
	sf   singleflight.Group
}

// NewUserRepository caches GetByID lookups from next. Redis errors fall
// back to next; ListActive is never cached.
func NewUserRepository(next user.UserRepository, rdb redis.Cmdable, ttl time.Duration) user.UserRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &userRepository{next: next, rdb: rdb, ttl: ttl}
}

// GetByID implements user.UserRepository.
func (r *userRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	key := userKey(id)

	cached, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var u user.User
		if err := json.Unmarshal(cached, &u); err == nil {
			return u, nil
		}
		slog.Warn("Discarding unreadable cached user", "user_id", id)
	case !errors.Is(err, redis.Nil):
		slog.Warn("User cache read failed", "user_id", id, "error", err)
	}

	v, err, _ := r.sf.Do(key, func() (any, error) {
		u, err := r.next.GetByID(ctx, id)
		if err != nil {
			return user.User{}, err
		}

		if data, err := json.Marshal(u); err == nil {
			if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
				slog.Warn("User cache write failed", "user_id", id, "error", err)
			}
		}
		return u, nil
	})
	if err != nil {
		return user.User{}, err
	}
	return v.(user.User), nil
}

// ListActive implements user.UserRepository.
func (r *userRepository) ListActive(ctx context.Context) ([]user.User, error) {
	return r.next.ListActive(ctx)
}
