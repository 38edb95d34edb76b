package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/config"
)

const resolutionKeyPrefix = "pe32:resolve:"

// ResolutionCache keeps device identifier to label id resolutions in
// redis so the relay does not hit the registry for every message. Cache
// failures are treated as misses; the registry stays authoritative.
type ResolutionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResolutionCache connects to redis and verifies the connection
func NewResolutionCache(ctx context.Context, cfg config.RedisConfig) (*ResolutionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	nuts.L.Infof("[ResolutionCache] Connected to redis at %s:%d", cfg.Host, cfg.Port)
	return &ResolutionCache{client: client, ttl: cfg.TTL}, nil
}

func (c *ResolutionCache) GetResolution(ctx context.Context, identifier string) (int64, bool) {
	labelID, err := c.client.Get(ctx, resolutionKeyPrefix+identifier).Int64()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		nuts.L.Warnf("[ResolutionCache] Get failed for %s: %v", identifier, err)
		return 0, false
	}
	return labelID, true
}

func (c *ResolutionCache) PutResolution(ctx context.Context, identifier string, labelID int64) {
	err := c.client.Set(ctx, resolutionKeyPrefix+identifier, labelID, c.ttl).Err()
	if err != nil {
		nuts.L.Warnf("[ResolutionCache] Set failed for %s: %v", identifier, err)
	}
}

func (c *ResolutionCache) DropResolution(ctx context.Context, identifier string) {
	err := c.client.Del(ctx, resolutionKeyPrefix+identifier).Err()
	if err != nil {
		nuts.L.Warnf("[ResolutionCache] Del failed for %s: %v", identifier, err)
	}
}

// Close releases the redis connection
func (c *ResolutionCache) Close() error {
	return c.client.Close()
}
