package alerts

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hushpay/pkg/logger"
)

// PriceFeed returns the USD price of a token symbol.
type PriceFeed interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
}

// Hit is delivered to the Notifier when an alert fires.
type Hit struct {
	Alert   Alert
	Current decimal.Decimal
}

// Notifier tells the alert owner about a hit.
type Notifier interface {
	PriceAlertHit(ctx context.Context, hit Hit) error
}

// DefaultInterval between price polls.
const DefaultInterval = 5 * time.Minute

// Watcher polls the price feed for every token with an active alert.
type Watcher struct {
	store    Store
	prices   PriceFeed
	notifier Notifier
	interval time.Duration
	log      *slog.Logger
}

// NewWatcher creates a Watcher. A non-positive interval uses DefaultInterval.
func NewWatcher(store Store, prices PriceFeed, notifier Notifier, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{store: store, prices: prices, notifier: notifier, interval: interval, log: logger.Named("alerts")}
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil {
				w.log.Error("price alert check failed", slog.Any("error", err))
			}
		}
	}
}

// Check evaluates every active alert once and returns how many fired. Each
// token is priced once per check. Fired alerts are deactivated.
func (w *Watcher) Check(ctx context.Context) (int, error) {
	active, err := w.store.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	prices := make(map[string]decimal.Decimal)
	missing := make(map[string]bool)
	fired := 0
	for _, a := range active {
		symbol := strings.ToUpper(a.Token)
		if missing[symbol] {
			continue
		}
		price, ok := prices[symbol]
		if !ok {
			p, found, err := w.prices.Price(ctx, symbol)
			if err != nil || !found {
				if err != nil {
					w.log.Warn("price lookup failed", slog.String("token", symbol), slog.Any("error", err))
				}
				missing[symbol] = true
				continue
			}
			prices[symbol] = p
			price = p
		}
		if !a.Triggered(price) {
			continue
		}
		if err := w.store.Deactivate(ctx, a.ID); err != nil {
			return fired, err
		}
		fired++
		if err := w.notifier.PriceAlertHit(ctx, Hit{Alert: a, Current: price}); err != nil {
			w.log.Warn("price alert notification failed", logger.Phone(a.Identity), slog.Any("error", err))
		}
	}
	return fired, nil
}
