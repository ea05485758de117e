// Package ratelimit bounds inbound requests per identity with a sliding
// window kept in the keyed record store.
package ratelimit

import (
	"context"
	"time"

	"hushpay/internal/keyed"
)

const (
	DefaultLimit  = 10
	DefaultWindow = 60 * time.Second
)

// Window is the persisted record: request timestamps inside the window.
type Window struct {
	Hits []time.Time `json:"hits"`
}

// Limiter admits at most Limit requests per key in any rolling Window.
type Limiter struct {
	store  keyed.Store[Window]
	limit  int
	window time.Duration
	now    func() time.Time
}

// Option customises a Limiter.
type Option func(*Limiter)

func WithLimit(limit int) Option {
	return func(l *Limiter) {
		if limit > 0 {
			l.limit = limit
		}
	}
}

func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a Limiter over store.
func New(store keyed.Store[Window], opts ...Option) *Limiter {
	l := &Limiter{store: store, limit: DefaultLimit, window: DefaultWindow, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for key and reports whether it is within quota.
// Rejected requests are not recorded, so a caller that keeps retrying
// regains quota once its earlier hits leave the window. Callers serialise
// per key.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()
	w, _, err := l.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	cutoff := now.Add(-l.window)
	kept := w.Hits[:0]
	for _, hit := range w.Hits {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}
	if len(kept) >= l.limit {
		return false, nil
	}
	kept = append(kept, now)
	if err := l.store.Put(ctx, key, Window{Hits: kept}, l.window); err != nil {
		return false, err
	}
	return true, nil
}
