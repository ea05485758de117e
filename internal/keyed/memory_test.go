package keyed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Amount int64    `json:"amount"`
	Tags   []string `json:"tags"`
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestPutReplacesPreviousRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[record]()

	require.NoError(t, store.Put(ctx, "+15551234567", record{Amount: 1}, time.Minute))
	require.NoError(t, store.Put(ctx, "+15551234567", record{Amount: 2}, time.Minute))

	got, ok, err := store.Get(ctx, "+15551234567")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Amount)
}

func TestExpiredRecordIsAbsent(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStore[record](WithClock(clock.Now))

	require.NoError(t, store.Put(ctx, "k", record{Amount: 5}, 5*time.Minute))
	clock.Advance(5*time.Minute - time.Second)
	_, ok, _ := store.Get(ctx, "k")
	assert.True(t, ok, "record should still be live just before expiry")

	clock.Advance(time.Second)
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok, "record must behave as absent at expiry")
	_, ok, _ = store.Take(ctx, "k")
	assert.False(t, ok)
}

func TestTakeIsReadOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[record]()
	require.NoError(t, store.Put(ctx, "k", record{Amount: 9}, 0))

	var wg sync.WaitGroup
	var mu sync.Mutex
	hits := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := store.Take(ctx, "k"); ok {
				mu.Lock()
				hits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, hits)
}

func TestRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[record]()
	original := record{Tags: []string{"a"}}
	require.NoError(t, store.Put(ctx, "k", original, 0))
	original.Tags[0] = "mutated"

	got, _, _ := store.Get(ctx, "k")
	assert.Equal(t, []string{"a"}, got.Tags)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(0, 0)}
	store := NewMemoryStore[record](WithClock(clock.Now))
	require.NoError(t, store.Put(ctx, "short", record{}, time.Second))
	require.NoError(t, store.Put(ctx, "forever", record{}, 0))
	clock.Advance(time.Minute)
	assert.Equal(t, 1, store.Sweep())
	_, ok, _ := store.Get(ctx, "forever")
	assert.True(t, ok)
}
