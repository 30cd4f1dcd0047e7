package shared

import "sync"

// KeyedGuard provides at-most-one-concurrent execution per string key.
// It is the process-local in-flight guard used by the reconciliation engine
// (one run per marketplace account) and the stock sync engine (one sync per
// rule-product-variant). Overlapping acquisitions for the same key are
// rejected, not queued. For multi-instance deployments this type would need
// to be replaced by a distributed lock.
type KeyedGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewKeyedGuard creates an empty keyed guard
func NewKeyedGuard() *KeyedGuard {
	return &KeyedGuard{
		inFlight: make(map[string]struct{}),
	}
}

// TryAcquire attempts to mark the key as in flight.
// Returns false if the key is already held.
func (g *KeyedGuard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.inFlight[key]; held {
		return false
	}
	g.inFlight[key] = struct{}{}
	return true
}

// Release releases the key. Releasing a key that is not held is a no-op.
func (g *KeyedGuard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, key)
}

// InFlight returns the number of keys currently held
func (g *KeyedGuard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight)
}
