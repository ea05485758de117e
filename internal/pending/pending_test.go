package pending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hushpay/internal/intent"
	"hushpay/internal/keyed"
	"hushpay/internal/money"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newStore(c *clock) *Store {
	return NewStore(
		keyed.NewMemoryStore[Action](keyed.WithClock(c.Now)),
		keyed.NewMemoryStore[Failure](keyed.WithClock(c.Now)),
		WithClock(c.Now),
	)
}

func send(amount, to string) intent.SendPayment {
	return intent.SendPayment{Amount: money.MustParse(amount), Token: "ETH", Recipient: to}
}

func TestSecondStageSupersedesFirst(t *testing.T) {
	ctx := context.Background()
	store := newStore(&clock{now: time.Unix(1_700_000_000, 0)})

	_, err := store.Stage(ctx, "+15551234567", send("1", "+15550000001"))
	require.NoError(t, err)
	_, err = store.Stage(ctx, "+15551234567", send("2", "+15550000002"))
	require.NoError(t, err)

	action, ok, err := store.Take(ctx, "+15551234567")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, send("2", "+15550000002"), action.Intent.Intent)

	_, ok, err = store.Take(ctx, "+15551234567")
	require.NoError(t, err)
	assert.False(t, ok, "a staged action is consumed exactly once")
}

func TestExpiredActionIsAbsent(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	store := newStore(c)
	_, err := store.Stage(ctx, "id", send("1", "b"))
	require.NoError(t, err)

	c.now = c.now.Add(DefaultTTL)
	_, ok, err := store.Peek(ctx, "id")
	require.NoError(t, err)
	assert.False(t, ok)
	cancelled, err := store.Cancel(ctx, "id")
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	store := newStore(&clock{now: time.Unix(0, 0)})
	_, _ = store.Stage(ctx, "id", intent.Deposit{Amount: money.MustParse("1"), Token: "ETH"})

	cancelled, err := store.Cancel(ctx, "id")
	require.NoError(t, err)
	assert.True(t, cancelled)
	cancelled, _ = store.Cancel(ctx, "id")
	assert.False(t, cancelled)
}

func TestFailureRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(&clock{now: time.Unix(0, 0)})
	require.NoError(t, store.RecordFailure(ctx, "id", send("1", "b"), "provider timeout"))

	has, _ := store.HasFailure(ctx, "id")
	assert.True(t, has)
	failure, ok, err := store.TakeFailure(ctx, "id")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "provider timeout", failure.Reason)
	assert.Equal(t, send("1", "b"), failure.Staged())

	_, ok, _ = store.TakeFailure(ctx, "id")
	assert.False(t, ok)
}
