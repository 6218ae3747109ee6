package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"TrendPipeline/internal/config"
	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/ports"
)

// DefaultTTL bounds how long a fetched hot list is served from cache.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "trendpipeline:trends:"

// ErrEmptyAddress is returned when Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

// NewClient creates a Redis client and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisTrendCache keeps per-platform hot lists as JSON strings with a TTL.
type RedisTrendCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.TrendCache = (*RedisTrendCache)(nil)

// NewRedisTrendCache uses DefaultTTL when ttl is not positive.
func NewRedisTrendCache(client *redis.Client, ttl time.Duration) *RedisTrendCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTrendCache{client: client, ttl: ttl}
}

func (c *RedisTrendCache) Get(ctx context.Context, platform string) ([]domain.TrendItem, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+platform).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", platform, err)
	}

	var items []domain.TrendItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("decode cached trends %s: %w", platform, err)
	}
	return items, true, nil
}

func (c *RedisTrendCache) Set(ctx context.Context, platform string, items []domain.TrendItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode trends %s: %w", platform, err)
	}
	if err := c.client.Set(ctx, keyPrefix+platform, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", platform, err)
	}
	return nil
}
