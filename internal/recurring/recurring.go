// Package recurring stores standing payment instructions and runs the ones
// that fall due.
package recurring

import (
	"context"
	"time"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/intent"
	"hushpay/internal/money"
)

// Action is one standing instruction. Cancelled actions keep their row with
// Active=false.
type Action struct {
	ID        string
	Sender    string
	Recipient string
	Amount    money.Amount
	Token     string
	Frequency intent.Frequency
	NextRunAt time.Time
	Active    bool
	CreatedAt time.Time
}

// Advance returns t moved forward by one period of f.
func Advance(t time.Time, f intent.Frequency) time.Time {
	switch f {
	case intent.Daily:
		return t.AddDate(0, 0, 1)
	case intent.Weekly:
		return t.AddDate(0, 0, 7)
	case intent.Monthly:
		return t.AddDate(0, 1, 0)
	}
	return t
}

// NextAfter advances from by whole periods until the result is after now.
// Runs missed while the process was down are not backfilled.
func NextAfter(from time.Time, f intent.Frequency, now time.Time) time.Time {
	if !f.Valid() {
		return from
	}
	next := Advance(from, f)
	for !next.After(now) {
		next = Advance(next, f)
	}
	return next
}

var (
	ErrNotFound = xerrors.New(xerrors.CodeNotFound, "recurring action not found")
	ErrStale    = xerrors.New(xerrors.CodeConflict, "recurring action changed concurrently")
)

// Store persists recurring actions.
type Store interface {
	Create(ctx context.Context, a Action) error
	Get(ctx context.Context, id string) (Action, error)
	// Due returns active actions with NextRunAt <= now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]Action, error)
	// Reschedule moves NextRunAt from prev to next. It fails with ErrStale
	// when prev no longer matches and rejects next <= prev.
	Reschedule(ctx context.Context, id string, prev, next time.Time) error
	// Deactivate cancels every active action from sender to recipient and
	// returns how many changed.
	Deactivate(ctx context.Context, sender, recipient string) (int, error)
	ListActive(ctx context.Context, sender string) ([]Action, error)
}
