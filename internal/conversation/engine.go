// Package conversation is the per-identity state machine that turns inbound
// chat messages into replies, staged actions and confirmed executions.
//
// State is never stored directly. An identity is AWAITING_CONFIRMATION while
// it has a live pending action, AWAITING_STEP_UP while it has a live PIN
// link, and IDLE otherwise.
package conversation

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"hushpay/internal/alerts"
	"hushpay/internal/chain"
	"hushpay/internal/chatlog"
	xerrors "hushpay/internal/errors"
	"hushpay/internal/i18n"
	"hushpay/internal/identity"
	"hushpay/internal/intent"
	"hushpay/internal/keylock"
	"hushpay/internal/ledger"
	"hushpay/internal/llm"
	"hushpay/internal/money"
	"hushpay/internal/observability/metrics"
	"hushpay/internal/pending"
	"hushpay/internal/phone"
	"hushpay/internal/provider"
	"hushpay/internal/ratelimit"
	"hushpay/internal/recurring"
	"hushpay/internal/stepup"
	"hushpay/pkg/logger"
)

const CodeRateLimited xerrors.Code = "RATE_LIMITED"

func init() {
	xerrors.Register(CodeRateLimited, xerrors.Attributes{
		Message:  "too many requests",
		Severity: xerrors.SeverityInfo,
	})
}

// State of an identity's conversation.
type State string

const (
	StateIdle                 State = "IDLE"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateAwaitingStepUp       State = "AWAITING_STEP_UP"
)

var (
	cancelPattern  = regexp.MustCompile(`(?i)^(undo|cancel|no|n)$`)
	retryPattern   = regexp.MustCompile(`(?i)^retry$`)
	confirmPattern = regexp.MustCompile(`(?i)^(yes|confirm|y|si|sí|oui|sim)$`)
)

// Executor performs a confirmed staged intent.
type Executor interface {
	Execute(ctx context.Context, sender identity.Identity, in intent.Staged, channel provider.Channel) (string, error)
}

// Dependencies wires an Engine. Interpreter, Executor, Identities, Chat,
// Pending, Gate, Limiter and Locks are required; the rest enable the
// informational commands that use them.
type Dependencies struct {
	Identities   *identity.Service
	Chat         chatlog.Store
	Pending      *pending.Store
	Gate         *stepup.Gate
	Executor     Executor
	Interpreter  llm.Interpreter
	Limiter      *ratelimit.Limiter
	Locks        *keylock.Map
	Ledger       ledger.Store
	Recurring    recurring.Store
	Alerts       alerts.Store
	Balances     provider.BalanceReader
	Pool         provider.PrivacyPool
	Notifier     provider.Notifier
	Destinations *chain.Registry
}

// Engine routes messages. It is safe for concurrent use; work for one
// identity is serialised through Locks.
type Engine struct {
	deps           Dependencies
	nativeToken    string
	historyDepth   int
	receiptsLimit  int
	defaultChannel provider.Channel
	now            func() time.Time
	log            *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

func WithNativeToken(symbol string) Option {
	return func(e *Engine) {
		if symbol != "" {
			e.nativeToken = strings.ToUpper(symbol)
		}
	}
}

// WithHistoryDepth sets how many prior messages the interpreter sees.
func WithHistoryDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyDepth = n
		}
	}
}

func WithDefaultChannel(ch provider.Channel) Option {
	return func(e *Engine) {
		if ch != "" {
			e.defaultChannel = ch
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func New(deps Dependencies, opts ...Option) *Engine {
	e := &Engine{
		deps:           deps,
		nativeToken:    "ETH",
		historyDepth:   chatlog.DefaultDepth,
		receiptsLimit:  5,
		defaultChannel: provider.ChannelSMS,
		now:            time.Now,
		log:            logger.Named("conversation"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.deps.Destinations == nil {
		e.deps.Destinations = chain.DefaultDestinations()
	}
	return e
}

// HandleInboundMessage processes one message from identifier and returns the
// reply to send back. The returned error is only set for unexpected
// failures; the caller answers those with a generic apology.
func (e *Engine) HandleInboundMessage(ctx context.Context, identifier, text string, channel provider.Channel) (string, error) {
	normalized, ok := phone.Normalize(identifier)
	if !ok {
		metrics.ObserveInbound(string(channel), "invalid_identifier")
		return "", identity.ErrInvalidIdentifier
	}
	unlock, err := e.deps.Locks.Lock(ctx, normalized)
	if err != nil {
		return "", err
	}
	defer unlock()

	allowed, err := e.deps.Limiter.Allow(ctx, normalized)
	if err != nil {
		return "", err
	}
	if !allowed {
		metrics.ObserveInbound(string(channel), "rate_limited")
		e.log.Warn("rate limited", logger.Phone(normalized), slog.String("code", string(CodeRateLimited)))
		return i18n.T(phone.Language(normalized), i18n.RateLimited), nil
	}

	id, isNew, err := e.deps.Identities.GetOrCreate(ctx, normalized)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)

	var reply string
	if isNew {
		reply = i18n.T(id.Language, i18n.Welcome, "token", e.nativeToken)
	} else {
		reply, err = e.route(ctx, id, text, channel)
		if err != nil {
			e.record(ctx, id.Phone, chatlog.RoleUser, text)
			metrics.ObserveInbound(string(channel), "error")
			return "", err
		}
	}
	e.record(ctx, id.Phone, chatlog.RoleUser, text)
	e.record(ctx, id.Phone, chatlog.RoleAssistant, reply)
	metrics.ObserveInbound(string(channel), "reply")
	return reply, nil
}

// State derives the conversation state of identity.
func (e *Engine) State(ctx context.Context, identityPhone string) (State, error) {
	if _, ok, err := e.deps.Pending.Peek(ctx, identityPhone); err != nil {
		return "", err
	} else if ok {
		return StateAwaitingConfirmation, nil
	}
	active, err := e.deps.Gate.Active(ctx, identityPhone)
	if err != nil {
		return "", err
	}
	if active {
		return StateAwaitingStepUp, nil
	}
	return StateIdle, nil
}

func (e *Engine) route(ctx context.Context, id identity.Identity, text string, channel provider.Channel) (string, error) {
	switch {
	case cancelPattern.MatchString(text):
		return e.cancel(ctx, id)
	case retryPattern.MatchString(text):
		return e.retry(ctx, id)
	case confirmPattern.MatchString(text):
		reply, handled, err := e.confirm(ctx, id, channel)
		if err != nil || handled {
			return reply, err
		}
	}
	return e.interpret(ctx, id, text, channel)
}

func (e *Engine) cancel(ctx context.Context, id identity.Identity) (string, error) {
	cancelled, err := e.deps.Pending.Cancel(ctx, id.Phone)
	if err != nil {
		return "", err
	}
	revoked, err := e.revokeLink(ctx, id.Phone)
	if err != nil {
		return "", err
	}
	if !cancelled && !revoked {
		return i18n.T(id.Language, i18n.NothingToCancel), nil
	}
	logger.Audit().Info("pending action cancelled", logger.Phone(id.Phone), slog.Bool("link_revoked", revoked))
	return i18n.T(id.Language, i18n.Cancelled), nil
}

func (e *Engine) retry(ctx context.Context, id identity.Identity) (string, error) {
	failure, ok, err := e.deps.Pending.TakeFailure(ctx, id.Phone)
	if err != nil {
		return "", err
	}
	staged := failure.Staged()
	if !ok || staged == nil {
		return i18n.T(id.Language, i18n.NothingToRetry), nil
	}
	if _, err := e.revokeLink(ctx, id.Phone); err != nil {
		return "", err
	}
	if _, err := e.deps.Pending.Stage(ctx, id.Phone, staged); err != nil {
		return "", err
	}
	return i18n.T(id.Language, i18n.RetryPrompt, "summary", intent.Describe(staged)), nil
}

// confirm consumes the pending action. handled is false when nothing was
// staged so the message falls through to the interpreter.
func (e *Engine) confirm(ctx context.Context, id identity.Identity, channel provider.Channel) (string, bool, error) {
	action, ok, err := e.deps.Pending.Take(ctx, id.Phone)
	if err != nil {
		return "", false, err
	}
	staged := action.Staged()
	if !ok || staged == nil {
		return "", false, nil
	}
	if id.HasPIN() && staged.Principal() >= money.StepUpThreshold {
		url, err := e.deps.Gate.CreateLink(ctx, id.Phone, staged)
		if err != nil {
			return "", true, err
		}
		logger.Audit().Info("step-up required", logger.Phone(id.Phone), slog.String("intent", string(staged.Kind())))
		return i18n.T(id.Language, i18n.StepUpLink, "url", url), true, nil
	}
	logger.Audit().Info("pending action confirmed", logger.Phone(id.Phone), slog.String("intent", string(staged.Kind())))
	reply, err := e.deps.Executor.Execute(ctx, id, staged, channel)
	return reply, true, err
}

// revokeLink drops the identity's outstanding step-up link so only the latest
// staged action can ever execute.
func (e *Engine) revokeLink(ctx context.Context, identityPhone string) (bool, error) {
	revoked, err := e.deps.Gate.Revoke(ctx, identityPhone)
	if err != nil {
		return false, err
	}
	if revoked {
		logger.Audit().Info("step-up link revoked", logger.Phone(identityPhone))
	}
	return revoked, nil
}

// record appends to the conversation log. A failed write only loses
// interpreter context, so it is logged and ignored.
func (e *Engine) record(ctx context.Context, identityPhone string, role chatlog.Role, text string) {
	if e.deps.Chat == nil || text == "" {
		return
	}
	err := e.deps.Chat.Append(ctx, chatlog.Message{
		Identity:  identityPhone,
		Role:      role,
		Text:      text,
		CreatedAt: e.now().UTC(),
	})
	if err != nil {
		e.log.Warn("append conversation log", logger.Phone(identityPhone), slog.Any("error", err))
	}
}
