package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings, retrying a few times while the server
// comes up.
func NewRedisClient(ctx context.Context, opts RedisOptions, maxRetries int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for i := 1; i <= maxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = rdb.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			slog.Info("Connected to Redis", "addr", opts.Addr)
			return rdb, nil
		}

		slog.Warn("Redis ping failed", "attempt", i, "max_retries", maxRetries, "error", lastErr)
		if i < maxRetries {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * time.Second):
			}
		}
	}

	_ = rdb.Close()
	return nil, fmt.Errorf("connect redis at %s: %w", opts.Addr, lastErr)
}
