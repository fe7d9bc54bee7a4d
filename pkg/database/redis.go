package database

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/config"
	"github.com/ekaya-inc/ekaya-notebook/pkg/retry"
)

// redisClientName shows up in CLIENT LIST on the Redis side.
const redisClientName = "ekaya-notebook"

// NewRedisClient connects to the Redis instance holding revoked token ids.
// It returns nil, nil when no host is configured; callers then keep
// revocations in process memory.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   redisClientName,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	// Redis may come up after the server in compose setups.
	attempt := 0
	err := retry.Do(ctx, &retry.Config{
		MaxRetries:   3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}, func() error {
		attempt++
		err := client.Ping(ctx).Err()
		if err != nil {
			logger.Warn("Redis not ready", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", client.Options().Addr, err)
	}
	return client, nil
}
