package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/pkg/logger"
)

// Redis backs the run-scoped cache for deployments where several workers
// share one run. Keys are prefixed with the run ID and expire with the run
// deadline so the one-run cache lifetime still holds.
type Redis struct {
	client *redis.Client
	runID  string
	ttl    time.Duration
}

func NewRedis(host string, port int, password string, db int, runID string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis cache initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.String("run_id", runID),
	)

	return &Redis{client: client, runID: runID, ttl: ttl}, nil
}

func (r *Redis) key(fingerprint string) string {
	return fmt.Sprintf("run:%s:q:%s", r.runID, fingerprint)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached response: %w", err)
	}

	logger.Debug("Response cache hit", zap.String("fingerprint", key))
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	ok, err := r.client.SetNX(ctx, r.key(key), value, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to set cached response: %w", err)
	}
	if ok {
		logger.Debug("Response cached", zap.String("fingerprint", key), zap.Duration("ttl", r.ttl))
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
