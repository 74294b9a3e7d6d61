package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTenantCache(t *testing.T) {
	ctx := context.Background()

	t.Run("starts empty", func(t *testing.T) {
		cache := NewInMemoryTenantCache()

		val, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, val)
	})

	t.Run("round trips a tenant id", func(t *testing.T) {
		cache := NewInMemoryTenantCache()

		require.NoError(t, cache.Set(ctx, "tenant-123"))

		val, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tenant-123", val)
	})

	t.Run("remove clears the stored value", func(t *testing.T) {
		cache := NewInMemoryTenantCache()

		require.NoError(t, cache.Set(ctx, "tenant-123"))
		require.NoError(t, cache.Remove(ctx))

		val, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, val)
	})

	t.Run("is safe under concurrent access", func(t *testing.T) {
		cache := NewInMemoryTenantCache()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = cache.Set(ctx, "tenant-123")
			}()
			go func() {
				defer wg.Done()
				_, _ = cache.Get(ctx)
			}()
		}
		wg.Wait()

		val, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tenant-123", val)
	})
}
