package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hushpay/internal/intent"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubFeed struct {
	prices map[string]string
	calls  int
}

func (f *stubFeed) Price(_ context.Context, symbol string) (decimal.Decimal, bool, error) {
	f.calls++
	raw, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, false, errors.New("unknown symbol")
	}
	return decimal.RequireFromString(raw), true, nil
}

type stubNotifier struct{ hits []Hit }

func (n *stubNotifier) PriceAlertHit(_ context.Context, hit Hit) error {
	n.hits = append(n.hits, hit)
	return nil
}

func alert(id, identity, token string, cond intent.Condition, target string, at int64) Alert {
	return Alert{ID: id, Identity: identity, Token: token, Condition: cond,
		TargetPrice: decimal.RequireFromString(target), Active: true, CreatedAt: time.Unix(at, 0)}
}

func TestReplaceKeepsOneActiveAlertPerToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Replace(ctx, alert("a1", "u", "ETH", intent.Above, "3000", 1)))
	require.NoError(t, store.Replace(ctx, alert("a2", "u", "eth", intent.Below, "2000", 2)))
	require.NoError(t, store.Replace(ctx, alert("a3", "u", "BTC", intent.Above, "90000", 3)))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a2", active[0].ID)
	assert.Equal(t, "a3", active[1].ID)
}

func TestCheckFiresOnceAndDeactivates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Replace(ctx, alert("a1", "u1", "ETH", intent.Above, "3000", 1))
	_ = store.Replace(ctx, alert("a2", "u2", "ETH", intent.Below, "2500", 2))
	_ = store.Replace(ctx, alert("a3", "u3", "DOGE", intent.Above, "1", 3))
	feed := &stubFeed{prices: map[string]string{"ETH": "3100.5"}}
	notifier := &stubNotifier{}
	w := NewWatcher(store, feed, notifier, time.Minute)

	fired, err := w.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	require.Len(t, notifier.hits, 1)
	assert.Equal(t, "u1", notifier.hits[0].Alert.Identity)
	assert.Equal(t, 2, feed.calls, "each token is priced once per check")

	fired, _ = w.Check(ctx)
	assert.Equal(t, 0, fired, "a fired alert must not fire again")
}

func TestWatcherRunStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(NewMemoryStore(), &stubFeed{}, &stubNotifier{}, time.Millisecond)
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
}
