package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, hit, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, m.Set(ctx, "key", []byte("value")))

	got, hit, err := m.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("value"), got)
}

func TestMemory_FirstWriteWins(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "key", []byte("first")))
	require.NoError(t, m.Set(ctx, "key", []byte("second")))

	got, hit, _ := m.Get(ctx, "key")
	assert.True(t, hit)
	assert.Equal(t, []byte("first"), got)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%8))
			_ = m.Set(ctx, key, []byte{byte(n)})
			_, _, _ = m.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	require.NoError(t, m.Close())
}
