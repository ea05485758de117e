package keyed

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only when HUSHPAY_TEST_REDIS points at a disposable Redis server.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("HUSHPAY_TEST_REDIS")
	if addr == "" {
		t.Skip("HUSHPAY_TEST_REDIS not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, RedisConfig{Address: addr})
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore[record](client, "hushpay-test:", uuid.NewString())
	require.NoError(t, store.Put(ctx, "k", record{Amount: 1}, time.Minute))
	require.NoError(t, store.Put(ctx, "k", record{Amount: 2}, time.Minute))

	got, ok, err := store.Take(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Amount)

	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "short", record{}, 50*time.Millisecond))
	time.Sleep(120 * time.Millisecond)
	_, ok, _ = store.Get(ctx, "short")
	assert.False(t, ok)
}
