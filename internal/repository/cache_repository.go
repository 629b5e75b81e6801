package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/survey-api/pkg/errors"
)

// CacheRepository keeps JSON payloads in Redis. Each entry can be filed under
// tags (Redis sets of keys) so a whole group is dropped without a SCAN.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository. A nil client turns every
// call into a miss or a no-op.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get decodes the entry at key into dest, returning ErrCacheMiss when absent.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		// A payload from an older schema is treated as a miss and replaced.
		r.logger.Debug("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores value at key and files the key under tags. Tag sets live at
// least as long as their newest member.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, payload, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, tag, key)
			if ttl > 0 {
				pipe.Expire(ctx, tag, ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// InvalidateTags deletes every key filed under tags, then the tags.
func (r *CacheRepository) InvalidateTags(ctx context.Context, tags ...string) error {
	if r.client == nil || len(tags) == 0 {
		return nil
	}

	keys := append([]string(nil), tags...)
	for _, tag := range tags {
		members, err := r.client.SMembers(ctx, tag).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis smembers %s: %w", tag, err)
		}
		keys = append(keys, members...)
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete %d keys: %w", len(keys), err)
	}
	return nil
}
