package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appstocksync "github.com/sellsync/backend/internal/application/stocksync"
	"github.com/sellsync/backend/internal/domain/stocksync"
)

const defaultRuleCacheTTL = 5 * time.Minute

// RedisSyncRuleCache caches a user's active sync rules in Redis in front of
// a slower rule source. Rule lookups run on every inventory mutation, so a
// short TTL keeps the engine off the database on the hot path while bounding
// staleness after rule edits.
type RedisSyncRuleCache struct {
	client     *redis.Client
	ownsClient bool
	source     appstocksync.RuleProvider
	ttl        time.Duration
	logger     *zap.Logger
}

// SyncRuleCacheOption is a functional option for configuring the cache
type SyncRuleCacheOption func(*RedisSyncRuleCache)

// WithSyncRuleTTL sets the cache TTL
func WithSyncRuleTTL(ttl time.Duration) SyncRuleCacheOption {
	return func(c *RedisSyncRuleCache) {
		c.ttl = ttl
	}
}

// WithSyncRuleLogger sets the logger for the cache
func WithSyncRuleLogger(logger *zap.Logger) SyncRuleCacheOption {
	return func(c *RedisSyncRuleCache) {
		c.logger = logger
	}
}

// NewRedisSyncRuleCache creates a cache with its own Redis connection
func NewRedisSyncRuleCache(cfg RedisConfig, source appstocksync.RuleProvider, opts ...SyncRuleCacheOption) (*RedisSyncRuleCache, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	cache := newSyncRuleCache(client, source, opts...)
	cache.ownsClient = true
	return cache, nil
}

// NewRedisSyncRuleCacheWithClient creates a cache over an existing client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisSyncRuleCacheWithClient(client *redis.Client, source appstocksync.RuleProvider, opts ...SyncRuleCacheOption) *RedisSyncRuleCache {
	return newSyncRuleCache(client, source, opts...)
}

func newSyncRuleCache(client *redis.Client, source appstocksync.RuleProvider, opts ...SyncRuleCacheOption) *RedisSyncRuleCache {
	cache := &RedisSyncRuleCache{
		client: client,
		source: source,
		ttl:    defaultRuleCacheTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func (c *RedisSyncRuleCache) cacheKey(userID uuid.UUID) string {
	return "stocksync:rules:" + userID.String()
}

// ActiveRules returns the user's active sync rules, reading through the cache
func (c *RedisSyncRuleCache) ActiveRules(ctx context.Context, userID uuid.UUID) ([]stocksync.Rule, error) {
	key := c.cacheKey(userID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rules []stocksync.Rule
		if err := json.Unmarshal(data, &rules); err == nil {
			c.logger.Debug("Cache hit for sync rules", zap.String("user_id", userID.String()))
			return rules, nil
		}
		// Corrupted entry, drop it and fall through to the source
		c.logger.Warn("Dropping corrupted sync rule cache entry", zap.String("user_id", userID.String()))
		_ = c.client.Del(ctx, key)
	} else if err != redis.Nil {
		// Redis being down must not stop stock propagation
		c.logger.Warn("Sync rule cache read failed, falling back to source",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	rules, err := c.source.ActiveRules(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rules); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache sync rules",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	return rules, nil
}

// Invalidate drops the cached rules for one user. Call after rule edits.
func (c *RedisSyncRuleCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, c.cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate sync rule cache: %w", err)
	}
	c.logger.Debug("Invalidated sync rule cache", zap.String("user_id", userID.String()))
	return nil
}

// InvalidateAll drops every cached rule list
func (c *RedisSyncRuleCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	var deleted int64

	for {
		keys, next, err := c.client.Scan(ctx, cursor, "stocksync:rules:*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan sync rule cache keys: %w", err)
		}

		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("failed to delete sync rule cache keys: %w", err)
			}
			deleted += n
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Info("Invalidated all sync rule cache entries", zap.Int64("deleted_count", deleted))
	return nil
}

// Close releases the Redis client if this cache owns it
func (c *RedisSyncRuleCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ appstocksync.RuleProvider = (*RedisSyncRuleCache)(nil)
