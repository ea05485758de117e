// Package alerting fans operational events out to log and webhook channels.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	xerrors "hushpay/internal/errors"
	"hushpay/pkg/logger"
)

// Channel names a notification channel.
type Channel string

const (
	ChannelLog     Channel = "log"
	ChannelWebhook Channel = "webhook"
)

// Event describes one alert-worthy failure.
type Event struct {
	Code       xerrors.Code
	Message    string
	Severity   xerrors.Severity
	Component  string
	Stage      string
	Identity   string
	Metadata   map[string]string
	OccurredAt time.Time
}

// FromError builds an Event from err using the registered attributes of its
// code. identity is masked before it is stored.
func FromError(component, stage, identity string, err error) Event {
	code := xerrors.CodeOf(err)
	event := Event{
		Code:       code,
		Message:    xerrors.AttributesOf(code).Message,
		Severity:   xerrors.SeverityOf(err),
		Component:  component,
		Stage:      stage,
		Identity:   logger.MaskPhone(identity),
		OccurredAt: time.Now().UTC(),
	}
	if err != nil {
		event.Message = err.Error()
	}
	if e, ok := xerrors.From(err); ok {
		event.Metadata = e.Metadata()
	}
	return event
}

// Notifier sends events to one channel.
type Notifier interface {
	Channel() Channel
	Notify(ctx context.Context, event Event) error
}

// Dispatcher accepts events.
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

// FanoutDispatcher broadcasts to every registered notifier.
type FanoutDispatcher struct {
	notifiers map[Channel]Notifier
}

// NewFanout creates a FanoutDispatcher. Nil notifiers are skipped and a
// later notifier replaces an earlier one on the same channel.
func NewFanout(notifiers ...Notifier) *FanoutDispatcher {
	set := make(map[Channel]Notifier, len(notifiers))
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		set[n.Channel()] = n
	}
	return &FanoutDispatcher{notifiers: set}
}

func (d *FanoutDispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", notifier.Channel(), err))
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes events to the audit log.
type LogNotifier struct{}

func (LogNotifier) Channel() Channel { return ChannelLog }

func (LogNotifier) Notify(_ context.Context, event Event) error {
	logger.Audit().Error("alert",
		slog.String("code", string(event.Code)),
		slog.String("severity", string(event.Severity)),
		slog.String("component", event.Component),
		slog.String("stage", event.Stage),
		slog.String("identity", event.Identity),
		slog.String("message", event.Message),
	)
	return nil
}

// WebhookNotifier posts a Slack-compatible {"text": ...} payload.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func (n *WebhookNotifier) Channel() Channel { return ChannelWebhook }

func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.URL == "" {
		logger.L().Warn("webhook notifier not configured, skipping", slog.String("code", string(event.Code)))
		return nil
	}
	body, err := json.Marshal(map[string]string{"text": Format(event)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned %d", resp.StatusCode)
	}
	return nil
}

// Format renders an event as one human-readable block.
func Format(event Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s/%s: %s", event.Severity, event.Code, event.Component, event.Stage, event.Message)
	if event.Identity != "" {
		fmt.Fprintf(&b, "\nidentity: %s", event.Identity)
	}
	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s: %s", k, event.Metadata[k])
	}
	return b.String()
}
