package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellsync/backend/internal/domain/stocksync"
)

// stubRuleProvider counts calls and returns a fixed rule list
type stubRuleProvider struct {
	rules []stocksync.Rule
	err   error
	calls int
}

func (p *stubRuleProvider) ActiveRules(ctx context.Context, userID uuid.UUID) ([]stocksync.Rule, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.rules, nil
}

func TestInMemorySyncRuleCache_ReadsThrough(t *testing.T) {
	userID := uuid.New()
	source := &stubRuleProvider{rules: []stocksync.Rule{{Name: "mirror stock"}}}
	cache := NewInMemorySyncRuleCache(source, time.Minute)
	defer cache.Close()

	rules, err := cache.ActiveRules(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 1, source.calls)

	// Second read is served from cache
	rules, err = cache.ActiveRules(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 1, source.calls)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestInMemorySyncRuleCache_ExpiredEntryRefetches(t *testing.T) {
	userID := uuid.New()
	source := &stubRuleProvider{rules: []stocksync.Rule{{Name: "mirror stock"}}}
	cache := NewInMemorySyncRuleCache(source, 10*time.Millisecond)
	defer cache.Close()

	_, err := cache.ActiveRules(context.Background(), userID)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = cache.ActiveRules(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestInMemorySyncRuleCache_Invalidate(t *testing.T) {
	userID := uuid.New()
	source := &stubRuleProvider{rules: []stocksync.Rule{{Name: "mirror stock"}}}
	cache := NewInMemorySyncRuleCache(source, time.Minute)
	defer cache.Close()

	_, err := cache.ActiveRules(context.Background(), userID)
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(context.Background(), userID))

	_, err = cache.ActiveRules(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestInMemorySyncRuleCache_SourceErrorNotCached(t *testing.T) {
	userID := uuid.New()
	source := &stubRuleProvider{err: errors.New("database down")}
	cache := NewInMemorySyncRuleCache(source, time.Minute)
	defer cache.Close()

	_, err := cache.ActiveRules(context.Background(), userID)
	assert.Error(t, err)

	source.err = nil
	source.rules = []stocksync.Rule{{Name: "recovered"}}

	rules, err := cache.ActiveRules(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestInMemorySyncRuleCache_IsolatesUsers(t *testing.T) {
	source := &stubRuleProvider{rules: []stocksync.Rule{{Name: "mirror stock"}}}
	cache := NewInMemorySyncRuleCache(source, time.Minute)
	defer cache.Close()

	_, err := cache.ActiveRules(context.Background(), uuid.New())
	require.NoError(t, err)
	_, err = cache.ActiveRules(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 2, source.calls)
}
