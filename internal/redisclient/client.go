package redisclient

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicwave/clinic-scheduling/internal/config"
)

// Connect opens the Redis client backing the schedule lock and verifies
// connectivity before returning it. Timeouts stay short: lock traffic is
// tiny and a slow Redis must not stall bookings, which can fall back on
// the store's advisory lock.
func Connect(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.RedisAddr,
		Username:        cfg.RedisUsername,
		Password:        cfg.RedisPassword,
		ClientName:      "clinic-scheduling",
		DialTimeout:     2 * time.Second,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    2 * time.Second,
		PoolSize:        4 * runtime.GOMAXPROCS(0),
		MinIdleConns:    2,
		ConnMaxIdleTime: 15 * time.Minute,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
