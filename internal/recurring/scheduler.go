package recurring

import (
	"context"
	"log/slog"
	"time"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/keylock"
	"hushpay/internal/observability/alerting"
	"hushpay/pkg/logger"
)

// DefaultInterval is how often due actions are collected.
const DefaultInterval = 5 * time.Minute

const dueBatch = 100

// Runner performs one occurrence without confirmation. The scheduler holds
// the sender's lock while Run executes.
type Runner interface {
	RunRecurring(ctx context.Context, a Action) error
}

// Scheduler periodically runs due actions.
type Scheduler struct {
	store    Store
	runner   Runner
	locks    *keylock.Map
	interval time.Duration
	now      func() time.Time
	alerter  alerting.Dispatcher
	log      *slog.Logger
}

// Option customises a Scheduler.
type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithAlertDispatcher(d alerting.Dispatcher) Option {
	return func(s *Scheduler) { s.alerter = d }
}

// NewScheduler builds a Scheduler sharing locks with the conversation engine.
func NewScheduler(store Store, runner Runner, locks *keylock.Map, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		runner:   runner,
		locks:    locks,
		interval: DefaultInterval,
		now:      time.Now,
		log:      logger.Named("recurring"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled. The first tick happens after one
// interval.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info("recurring scheduler started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.log.Error("recurring tick failed", slog.Any("error", err))
			}
		}
	}
}

// Tick runs every action due now and returns how many succeeded. A failed
// occurrence keeps its NextRunAt so the next tick retries it.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.store.Due(ctx, now, dueBatch)
	if err != nil {
		return 0, err
	}
	ran := 0
	for _, a := range due {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		if s.runOne(ctx, a, now) {
			ran++
		}
	}
	return ran, nil
}

func (s *Scheduler) runOne(ctx context.Context, a Action, now time.Time) bool {
	unlock, err := s.locks.Lock(ctx, a.Sender)
	if err != nil {
		return false
	}
	defer unlock()

	// Re-read under the lock: a cancel may have landed since Due.
	current, err := s.store.Get(ctx, a.ID)
	if err != nil || !current.Active || current.NextRunAt.After(now) {
		return false
	}
	if err := s.runner.RunRecurring(ctx, current); err != nil {
		s.log.Warn("recurring occurrence failed",
			slog.String("id", current.ID),
			logger.Phone(current.Sender),
			slog.Any("error", err))
		s.alert(ctx, current, err)
		return false
	}
	next := NextAfter(current.NextRunAt, current.Frequency, now)
	if err := s.store.Reschedule(ctx, current.ID, current.NextRunAt, next); err != nil {
		s.log.Error("reschedule recurring action", slog.String("id", current.ID), slog.Any("error", err))
		s.alert(ctx, current, err)
		return true
	}
	logger.Audit().Info("recurring occurrence sent",
		slog.String("id", current.ID),
		logger.Phone(current.Sender),
		slog.Time("next_run_at", next))
	return true
}

func (s *Scheduler) alert(ctx context.Context, a Action, err error) {
	if s.alerter == nil {
		return
	}
	if _, classified := xerrors.From(err); classified && !xerrors.ShouldAlert(err) {
		return
	}
	event := alerting.FromError("recurring", "occurrence", a.Sender, err)
	if event.Metadata == nil {
		event.Metadata = map[string]string{}
	}
	event.Metadata["recurring_id"] = a.ID
	if notifyErr := s.alerter.Notify(ctx, event); notifyErr != nil {
		s.log.Warn("dispatch alert", slog.Any("error", notifyErr))
	}
}
