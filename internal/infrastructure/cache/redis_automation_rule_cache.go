package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appautomation "github.com/sellsync/backend/internal/application/automation"
	"github.com/sellsync/backend/internal/domain/automation"
)

// RedisAutomationRuleCache caches a user's active automation rules in Redis.
// The evaluator loads rules for every order touched during reconciliation;
// the cached list preserves the priority ordering of the source.
type RedisAutomationRuleCache struct {
	client     *redis.Client
	ownsClient bool
	source     appautomation.RuleProvider
	ttl        time.Duration
	logger     *zap.Logger
}

// AutomationRuleCacheOption is a functional option for configuring the cache
type AutomationRuleCacheOption func(*RedisAutomationRuleCache)

// WithAutomationRuleTTL sets the cache TTL
func WithAutomationRuleTTL(ttl time.Duration) AutomationRuleCacheOption {
	return func(c *RedisAutomationRuleCache) {
		c.ttl = ttl
	}
}

// WithAutomationRuleLogger sets the logger for the cache
func WithAutomationRuleLogger(logger *zap.Logger) AutomationRuleCacheOption {
	return func(c *RedisAutomationRuleCache) {
		c.logger = logger
	}
}

// NewRedisAutomationRuleCache creates a cache with its own Redis connection
func NewRedisAutomationRuleCache(cfg RedisConfig, source appautomation.RuleProvider, opts ...AutomationRuleCacheOption) (*RedisAutomationRuleCache, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	cache := newAutomationRuleCache(client, source, opts...)
	cache.ownsClient = true
	return cache, nil
}

// NewRedisAutomationRuleCacheWithClient creates a cache over an existing client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisAutomationRuleCacheWithClient(client *redis.Client, source appautomation.RuleProvider, opts ...AutomationRuleCacheOption) *RedisAutomationRuleCache {
	return newAutomationRuleCache(client, source, opts...)
}

func newAutomationRuleCache(client *redis.Client, source appautomation.RuleProvider, opts ...AutomationRuleCacheOption) *RedisAutomationRuleCache {
	cache := &RedisAutomationRuleCache{
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

func (c *RedisAutomationRuleCache) cacheKey(userID uuid.UUID) string {
	return "automation:rules:" + userID.String()
}

// ActiveRules returns the user's active automation rules, reading through
// the cache
func (c *RedisAutomationRuleCache) ActiveRules(ctx context.Context, userID uuid.UUID) ([]automation.Rule, error) {
	key := c.cacheKey(userID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rules []automation.Rule
		if err := json.Unmarshal(data, &rules); err == nil {
			c.logger.Debug("Cache hit for automation rules", zap.String("user_id", userID.String()))
			return rules, nil
		}
		c.logger.Warn("Dropping corrupted automation rule cache entry", zap.String("user_id", userID.String()))
		_ = c.client.Del(ctx, key)
	} else if err != redis.Nil {
		// Redis being down must not stop order evaluation
		c.logger.Warn("Automation rule cache read failed, falling back to source",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	rules, err := c.source.ActiveRules(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rules); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache automation rules",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	return rules, nil
}

// Invalidate drops the cached rules for one user. Call after rule edits.
func (c *RedisAutomationRuleCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, c.cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate automation rule cache: %w", err)
	}
	c.logger.Debug("Invalidated automation rule cache", zap.String("user_id", userID.String()))
	return nil
}

// Close releases the Redis client if this cache owns it
func (c *RedisAutomationRuleCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ appautomation.RuleProvider = (*RedisAutomationRuleCache)(nil)
