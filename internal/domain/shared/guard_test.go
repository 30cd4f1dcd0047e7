package shared

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedGuard_TryAcquire(t *testing.T) {
	t.Run("acquires free key", func(t *testing.T) {
		g := NewKeyedGuard()
		assert.True(t, g.TryAcquire("a"))
		assert.Equal(t, 1, g.InFlight())
	})

	t.Run("rejects held key", func(t *testing.T) {
		g := NewKeyedGuard()
		assert.True(t, g.TryAcquire("a"))
		assert.False(t, g.TryAcquire("a"))
	})

	t.Run("independent keys do not block each other", func(t *testing.T) {
		g := NewKeyedGuard()
		assert.True(t, g.TryAcquire("a"))
		assert.True(t, g.TryAcquire("b"))
	})

	t.Run("release allows reacquisition", func(t *testing.T) {
		g := NewKeyedGuard()
		assert.True(t, g.TryAcquire("a"))
		g.Release("a")
		assert.True(t, g.TryAcquire("a"))
	})

	t.Run("release of unheld key is a no-op", func(t *testing.T) {
		g := NewKeyedGuard()
		g.Release("missing")
		assert.Equal(t, 0, g.InFlight())
	})
}

func TestKeyedGuard_Concurrent(t *testing.T) {
	g := NewKeyedGuard()

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire("same-key") {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())
}
