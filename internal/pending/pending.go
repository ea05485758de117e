// Package pending keeps the single outstanding unconfirmed action per
// identity and the last failed action that can be retried.
package pending

import (
	"context"
	"time"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/intent"
	"hushpay/internal/keyed"
)

const (
	// DefaultTTL bounds how long a staged action may be confirmed.
	DefaultTTL = 5 * time.Minute
	// DefaultFailureTTL bounds how long a failed action may be retried.
	DefaultFailureTTL = 24 * time.Hour
)

const CodeExpiredOrMissing xerrors.Code = "EXPIRED_OR_MISSING_ACTION"

func init() {
	xerrors.Register(CodeExpiredOrMissing, xerrors.Attributes{
		Message:  "no pending action",
		Severity: xerrors.SeverityInfo,
	})
}

// ErrNoAction is returned when an identity has nothing staged.
var ErrNoAction = xerrors.New(CodeExpiredOrMissing, "")

// Action is a staged intent awaiting confirmation.
type Action struct {
	Identity  string          `json:"identity"`
	Intent    intent.Envelope `json:"intent"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Staged returns the carried intent.
func (a Action) Staged() intent.Staged {
	s, _ := a.Intent.Intent.(intent.Staged)
	return s
}

// Failure is a confirmed action whose provider call failed.
type Failure struct {
	Identity string          `json:"identity"`
	Intent   intent.Envelope `json:"intent"`
	Reason   string          `json:"reason"`
	FailedAt time.Time       `json:"failed_at"`
}

// Staged returns the carried intent.
func (f Failure) Staged() intent.Staged {
	s, _ := f.Intent.Intent.(intent.Staged)
	return s
}

// Store wraps two keyed namespaces. All methods assume the caller holds the
// identity's lock for read-then-delete sequences.
type Store struct {
	actions    keyed.Store[Action]
	failures   keyed.Store[Failure]
	ttl        time.Duration
	failureTTL time.Duration
	now        func() time.Time
}

// Option customises a Store.
type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithFailureTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.failureTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore builds a Store over the two namespaces.
func NewStore(actions keyed.Store[Action], failures keyed.Store[Failure], opts ...Option) *Store {
	s := &Store{
		actions:    actions,
		failures:   failures,
		ttl:        DefaultTTL,
		failureTTL: DefaultFailureTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stage replaces whatever was pending for identity with in.
func (s *Store) Stage(ctx context.Context, identity string, in intent.Staged) (Action, error) {
	if in == nil {
		return Action{}, xerrors.New(xerrors.CodeInvalidArgument, "nothing to stage")
	}
	now := s.now()
	action := Action{
		Identity:  identity,
		Intent:    intent.Envelope{Intent: in},
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.actions.Put(ctx, identity, action, s.ttl); err != nil {
		return Action{}, err
	}
	return action, nil
}

// Peek returns the live pending action without consuming it.
func (s *Store) Peek(ctx context.Context, identity string) (Action, bool, error) {
	action, ok, err := s.actions.Get(ctx, identity)
	if err != nil || !ok {
		return Action{}, false, err
	}
	if !s.live(action) {
		return Action{}, false, nil
	}
	return action, true, nil
}

// Take consumes the live pending action. A second Take for the same staging
// finds nothing.
func (s *Store) Take(ctx context.Context, identity string) (Action, bool, error) {
	action, ok, err := s.actions.Take(ctx, identity)
	if err != nil || !ok {
		return Action{}, false, err
	}
	if !s.live(action) {
		return Action{}, false, nil
	}
	return action, true, nil
}

// Cancel deletes the pending action and reports whether a live one existed.
func (s *Store) Cancel(ctx context.Context, identity string) (bool, error) {
	_, ok, err := s.Take(ctx, identity)
	return ok, err
}

// RecordFailure remembers in so the user can retry it.
func (s *Store) RecordFailure(ctx context.Context, identity string, in intent.Staged, reason string) error {
	failure := Failure{
		Identity: identity,
		Intent:   intent.Envelope{Intent: in},
		Reason:   reason,
		FailedAt: s.now(),
	}
	return s.failures.Put(ctx, identity, failure, s.failureTTL)
}

// TakeFailure consumes the failed action for identity.
func (s *Store) TakeFailure(ctx context.Context, identity string) (Failure, bool, error) {
	return s.failures.Take(ctx, identity)
}

// HasFailure reports whether a retryable action exists.
func (s *Store) HasFailure(ctx context.Context, identity string) (bool, error) {
	_, ok, err := s.failures.Get(ctx, identity)
	return ok, err
}

func (s *Store) live(a Action) bool {
	return a.ExpiresAt.IsZero() || s.now().Before(a.ExpiresAt)
}
