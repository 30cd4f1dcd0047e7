package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	appstocksync "github.com/sellsync/backend/internal/application/stocksync"
	"github.com/sellsync/backend/internal/domain/stocksync"
)

const cleanupInterval = 30 * time.Second

// InMemorySyncRuleCache caches active sync rules per user in process memory.
// Used in single-instance deployments and tests where Redis is not available.
type InMemorySyncRuleCache struct {
	source  appstocksync.RuleProvider
	ttl     time.Duration
	entries sync.Map // map[uuid.UUID]*ruleCacheEntry
	stopCh  chan struct{}
	stopped int32

	// Stats for monitoring
	hits   int64
	misses int64
}

type ruleCacheEntry struct {
	rules     []stocksync.Rule
	expiresAt time.Time
}

func (e *ruleCacheEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// NewInMemorySyncRuleCache creates an in-memory sync rule cache
func NewInMemorySyncRuleCache(source appstocksync.RuleProvider, ttl time.Duration) *InMemorySyncRuleCache {
	if ttl <= 0 {
		ttl = defaultRuleCacheTTL
	}
	cache := &InMemorySyncRuleCache{
		source: source,
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}

	go cache.cleanupExpired()

	return cache
}

// ActiveRules returns the user's active sync rules, reading through the cache
func (c *InMemorySyncRuleCache) ActiveRules(ctx context.Context, userID uuid.UUID) ([]stocksync.Rule, error) {
	if value, ok := c.entries.Load(userID); ok {
		entry := value.(*ruleCacheEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.rules, nil
		}
		c.entries.Delete(userID)
	}
	atomic.AddInt64(&c.misses, 1)

	rules, err := c.source.ActiveRules(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.entries.Store(userID, &ruleCacheEntry{
		rules:     rules,
		expiresAt: time.Now().Add(c.ttl),
	})
	return rules, nil
}

// Invalidate drops the cached rules for one user
func (c *InMemorySyncRuleCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	c.entries.Delete(userID)
	return nil
}

// Stats returns hit and miss counts
func (c *InMemorySyncRuleCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Close stops the background cleanup goroutine
func (c *InMemorySyncRuleCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// cleanupExpired periodically evicts expired entries
func (c *InMemorySyncRuleCache) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.entries.Range(func(key, value any) bool {
				if value.(*ruleCacheEntry).isExpired() {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}

var _ appstocksync.RuleProvider = (*InMemorySyncRuleCache)(nil)
