// Package alerts stores price alerts and notifies users when a target is
// crossed.
package alerts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"hushpay/internal/intent"
)

// Alert fires once when Token's price crosses TargetPrice in Condition's
// direction.
type Alert struct {
	ID          string
	Identity    string
	Token       string
	Condition   intent.Condition
	TargetPrice decimal.Decimal
	Active      bool
	CreatedAt   time.Time
}

// Triggered reports whether price satisfies the alert.
func (a Alert) Triggered(price decimal.Decimal) bool {
	switch a.Condition {
	case intent.Above:
		return price.GreaterThanOrEqual(a.TargetPrice)
	case intent.Below:
		return price.LessThanOrEqual(a.TargetPrice)
	}
	return false
}

// Store persists alerts.
type Store interface {
	// Replace deactivates any active alert for the same identity and token,
	// then stores a.
	Replace(ctx context.Context, a Alert) error
	ListActive(ctx context.Context) ([]Alert, error)
	Deactivate(ctx context.Context, id string) error
}
