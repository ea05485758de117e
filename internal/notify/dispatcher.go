package notify

import (
	"context"
	"errors"
	"log/slog"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/observability/alerting"
	"hushpay/internal/provider"
	"hushpay/pkg/logger"
)

const CodeDeliveryFailed xerrors.Code = "DELIVERY_FAILED"

func init() {
	xerrors.Register(CodeDeliveryFailed, xerrors.Attributes{
		Message:  "outbound message could not be delivered",
		Severity: xerrors.SeverityWarning,
		Alert:    true,
	})
}

// DefaultMaxAttempts bounds delivery retries per message.
const DefaultMaxAttempts = 3

// Dispatcher consumes the queue and sends each message.
type Dispatcher struct {
	queue       Queue
	sender      provider.Notifier
	workers     int
	maxAttempts int
	alerter     alerting.Dispatcher
	log         *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithWorkerCount(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithMaxAttempts(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

func WithAlertDispatcher(a alerting.Dispatcher) DispatcherOption {
	return func(d *Dispatcher) { d.alerter = a }
}

func NewDispatcher(queue Queue, sender provider.Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		queue:       queue,
		sender:      sender,
		workers:     1,
		maxAttempts: DefaultMaxAttempts,
		log:         logger.Named("notify"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Start blocks until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.queue == nil || d.sender == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "dispatcher has no queue or sender")
	}
	return d.queue.Consume(ctx, d.workers, d.handle)
}

func (d *Dispatcher) handle(ctx context.Context, msg Message) error {
	err := d.sender.Notify(context.WithoutCancel(ctx), msg.To, msg.Channel, msg.Text)
	if err == nil {
		d.log.Debug("message delivered", slog.String("message_id", msg.ID), logger.Phone(msg.To))
		return nil
	}
	if errors.Is(err, provider.ErrNotConfigured) {
		d.log.Warn("sender not configured, dropping message", slog.String("message_id", msg.ID), logger.Phone(msg.To))
		return nil
	}

	msg.Attempts++
	if msg.Attempts < d.maxAttempts && retryable(err) {
		d.log.Warn("delivery failed, requeueing",
			slog.String("message_id", msg.ID),
			slog.Int("attempts", msg.Attempts),
			slog.Any("error", err))
		return d.queue.Publish(ctx, msg)
	}

	d.log.Error("delivery failed, giving up",
		slog.String("message_id", msg.ID),
		logger.Phone(msg.To),
		slog.Int("attempts", msg.Attempts),
		slog.Any("error", err))
	if d.alerter != nil {
		event := alerting.FromError("notify", "deliver", msg.To, xerrors.Wrap(CodeDeliveryFailed, err, "deliver message",
			xerrors.WithMetadata("message_id", msg.ID)))
		if alertErr := d.alerter.Notify(ctx, event); alertErr != nil {
			d.log.Error("alert dispatch failed", slog.Any("error", alertErr))
		}
	}
	return nil
}

// retryable treats unclassified errors as transient.
func retryable(err error) bool {
	if _, ok := xerrors.From(err); !ok {
		return true
	}
	return xerrors.RetryableError(err)
}

// Outbox is a provider.Notifier that enqueues instead of sending, so callers
// never wait on the SMS provider.
type Outbox struct {
	producer Producer
}

func NewOutbox(p Producer) *Outbox {
	return &Outbox{producer: p}
}

func (o *Outbox) Notify(ctx context.Context, to string, channel provider.Channel, text string) error {
	if err := o.producer.Publish(ctx, NewMessage(to, channel, text)); err != nil {
		return xerrors.Wrap(xerrors.CodeQueueFailure, err, "enqueue message")
	}
	return nil
}

var _ provider.Notifier = (*Outbox)(nil)
