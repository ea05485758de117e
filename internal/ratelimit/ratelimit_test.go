package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hushpay/internal/keyed"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newLimiter(c *clock) *Limiter {
	store := keyed.NewMemoryStore[Window](keyed.WithClock(c.Now))
	return New(store, WithClock(c.Now))
}

func TestEleventhRequestRejected(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	limiter := newLimiter(c)

	for i := 0; i < DefaultLimit; i++ {
		ok, err := limiter.Allow(ctx, "+15551234567")
		require.NoError(t, err)
		require.Truef(t, ok, "request %d should pass", i+1)
		c.now = c.now.Add(time.Second)
	}
	ok, err := limiter.Allow(ctx, "+15551234567")
	require.NoError(t, err)
	assert.False(t, ok)

	other, _ := limiter.Allow(ctx, "+15557654321")
	assert.True(t, other, "other identities keep their own quota")
}

func TestWindowSlides(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	limiter := newLimiter(c)

	for i := 0; i < DefaultLimit; i++ {
		_, _ = limiter.Allow(ctx, "k")
	}
	ok, _ := limiter.Allow(ctx, "k")
	require.False(t, ok)

	c.now = c.now.Add(DefaultWindow)
	for i := 0; i < DefaultLimit; i++ {
		ok, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok, "quota should be fully restored after a silent window")
	}
}

func TestPartialSlide(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Unix(0, 0)}
	limiter := newLimiter(c)

	for i := 0; i < 5; i++ {
		_, _ = limiter.Allow(ctx, "k")
	}
	c.now = c.now.Add(30 * time.Second)
	for i := 0; i < 5; i++ {
		_, _ = limiter.Allow(ctx, "k")
	}
	ok, _ := limiter.Allow(ctx, "k")
	require.False(t, ok)

	c.now = c.now.Add(31 * time.Second)
	ok, _ = limiter.Allow(ctx, "k")
	assert.True(t, ok, "the first five hits have left the window")
}
