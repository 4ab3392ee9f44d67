package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	marked, err := store.MarkProcessed(ctx, "evt-1:item-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = store.MarkProcessed(ctx, "evt-1:item-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, marked, "second mark of same key must report already processed")

	marked, err = store.MarkProcessed(ctx, "evt-1:item-2", time.Hour)
	require.NoError(t, err)
	assert.True(t, marked, "different key is independent")
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "evt-2:item-1", time.Hour)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "evt-2:item-1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_Expiration(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "short-lived", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	processed, err := store.IsProcessed(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, processed, "expired key must be treated as unprocessed")

	marked, err := store.MarkProcessed(ctx, "short-lived", time.Hour)
	require.NoError(t, err)
	assert.True(t, marked, "expired key can be marked again")
}

func TestInMemoryIdempotencyStore_Concurrent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			marked, err := store.MarkProcessed(ctx, "contended", time.Hour)
			require.NoError(t, err)
			if marked {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one goroutine wins the mark")
}

func TestInMemoryIdempotencyStore_Remove(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	marked, err := store.MarkProcessed(ctx, "key-1", time.Hour)
	require.NoError(t, err)
	require.True(t, marked)

	require.NoError(t, store.Remove(ctx, "key-1"))

	marked, err = store.MarkProcessed(ctx, "key-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, marked, "removed key can be claimed again")

	assert.NoError(t, store.Remove(ctx, "missing"), "removing an absent key is a no-op")
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
