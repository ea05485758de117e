// Package keyed is an expiring key/record store with at most one record per
// key. Pending actions, failed actions, step-up tokens and rate-limit windows
// all live in it under separate namespaces.
package keyed

import (
	"context"
	"time"

	xerrors "hushpay/internal/errors"
)

// Store holds at most one record per key. A record whose TTL has elapsed is
// indistinguishable from a missing one.
type Store[T any] interface {
	// Get returns the live record for key.
	Get(ctx context.Context, key string) (T, bool, error)
	// Put stores value under key, replacing any previous record. A ttl of
	// zero or less never expires.
	Put(ctx context.Context, key string, value T, ttl time.Duration) error
	// Take atomically reads and deletes the live record for key.
	Take(ctx context.Context, key string) (T, bool, error)
	// Delete removes the record for key, if any.
	Delete(ctx context.Context, key string) error
}

const CodeKeyedStore xerrors.Code = "KEYED_STORE_FAILURE"

func init() {
	xerrors.Register(CodeKeyedStore, xerrors.Attributes{
		Message:   "keyed store failure",
		Severity:  xerrors.SeverityCritical,
		Retryable: true,
		Alert:     true,
	})
}
