// Package stepup issues single-use PIN confirmation links and validates the
// PIN submitted through them.
package stepup

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/intent"
	"hushpay/internal/keyed"
	"hushpay/internal/observability/metrics"
	"hushpay/internal/pending"
	"hushpay/pkg/logger"
)

const CodeStepUpInvalid xerrors.Code = "STEP_UP_INVALID"

func init() {
	xerrors.Register(CodeStepUpInvalid, xerrors.Attributes{
		Message:  "step-up confirmation rejected",
		Severity: xerrors.SeverityWarning,
	})
}

const (
	// DefaultTTL is how long a link stays usable.
	DefaultTTL = 5 * time.Minute
	// MaxAttempts wrong PINs invalidate the link and lock the identity.
	MaxAttempts = 3
)

// ErrExpired is returned for unknown, expired, consumed or wrong-purpose
// tokens.
var ErrExpired = xerrors.New(pending.CodeExpiredOrMissing, "confirmation link expired or invalid")

// Purpose of a token.
type Purpose string

const (
	PurposeExecute Purpose = "execute"
	PurposeSetPIN  Purpose = "set_pin"
)

// Token is the stored state behind a link.
type Token struct {
	Identity  string          `json:"identity"`
	Purpose   Purpose         `json:"purpose"`
	Intent    intent.Envelope `json:"intent"`
	Attempts  int             `json:"attempts"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Confirmation is a validated execute token.
type Confirmation struct {
	Identity string
	Intent   intent.Staged
}

// Rejection details a StepUpInvalid error.
type Rejection struct {
	// AttemptsLeft is set after a wrong PIN that did not exhaust the limit.
	AttemptsLeft int
	// LockedFor is set when the identity is locked out.
	LockedFor time.Duration
	// Exhausted reports that this attempt used up the limit and the token is
	// gone.
	Exhausted bool
}

func (r *Rejection) Error() string {
	switch {
	case r.Exhausted:
		return "too many failed attempts"
	case r.LockedFor > 0:
		return fmt.Sprintf("locked for %s", r.LockedFor)
	default:
		return fmt.Sprintf("wrong pin, %d attempts left", r.AttemptsLeft)
	}
}

// Minutes rounds LockedFor up to whole minutes.
func (r *Rejection) Minutes() int {
	return int((r.LockedFor + time.Minute - 1) / time.Minute)
}

// PINs is the identity surface the gate needs.
type PINs interface {
	VerifyPIN(ctx context.Context, phone, pin string) (bool, error)
	Lock(ctx context.Context, phone string) error
	LockoutRemaining(ctx context.Context, phone string) (time.Duration, error)
}

// Gate mints and validates tokens. Callers hold the identity's lock around
// Validate and ConsumePINToken; Owner tells them which lock to take.
type Gate struct {
	tokens  keyed.Store[Token]
	index   keyed.Store[string]
	pins    PINs
	baseURL string
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// Option customises a Gate.
type Option func(*Gate)

func WithTTL(ttl time.Duration) Option {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithIndex sets the identity -> latest execute token store. Without it the
// index lives in process memory.
func WithIndex(index keyed.Store[string]) Option {
	return func(g *Gate) { g.index = index }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

func New(tokens keyed.Store[Token], pins PINs, baseURL string, opts ...Option) *Gate {
	g := &Gate{
		tokens:  tokens,
		pins:    pins,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     logger.Named("stepup"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.index == nil {
		g.index = keyed.NewMemoryStore[string](keyed.WithClock(g.now))
	}
	return g
}

// CreateLink mints an execute token for in and returns its URL.
func (g *Gate) CreateLink(ctx context.Context, identity string, in intent.Staged) (string, error) {
	if in == nil {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "nothing to confirm")
	}
	return g.mint(ctx, Token{Identity: identity, Purpose: PurposeExecute, Intent: intent.Envelope{Intent: in}})
}

// CreatePINLink mints a set_pin token.
func (g *Gate) CreatePINLink(ctx context.Context, identity string) (string, error) {
	return g.mint(ctx, Token{Identity: identity, Purpose: PurposeSetPIN})
}

func (g *Gate) mint(ctx context.Context, t Token) (string, error) {
	id, err := newToken()
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeUnknown, err, "generate step-up token")
	}
	t.ExpiresAt = g.now().Add(g.ttl)
	if t.Purpose == PurposeExecute {
		// At most one execute link per identity.
		if _, err := g.Revoke(ctx, t.Identity); err != nil {
			return "", err
		}
	}
	if err := g.tokens.Put(ctx, id, t, g.ttl); err != nil {
		return "", err
	}
	if t.Purpose == PurposeExecute {
		if err := g.index.Put(ctx, t.Identity, id, g.ttl); err != nil {
			return "", err
		}
	}
	g.log.Debug("step-up link issued", logger.Phone(t.Identity), slog.String("purpose", string(t.Purpose)))
	return g.URL(id), nil
}

// URL is the confirmation page for token.
func (g *Gate) URL(token string) string {
	return g.baseURL + "/confirm/" + token
}

// Lookup returns the live token without changing it.
func (g *Gate) Lookup(ctx context.Context, token string) (Token, bool, error) {
	if !wellFormed(token) {
		return Token{}, false, nil
	}
	t, ok, err := g.tokens.Get(ctx, token)
	if err != nil || !ok {
		return Token{}, false, err
	}
	if !t.ExpiresAt.IsZero() && !g.now().Before(t.ExpiresAt) {
		return Token{}, false, nil
	}
	return t, true, nil
}

// Active reports whether identity has a live execute token.
func (g *Gate) Active(ctx context.Context, identity string) (bool, error) {
	token, ok, err := g.index.Get(ctx, identity)
	if err != nil || !ok {
		return false, err
	}
	t, ok, err := g.Lookup(ctx, token)
	if err != nil || !ok {
		return false, err
	}
	return t.Purpose == PurposeExecute && t.Identity == identity, nil
}

// Revoke deletes identity's execute token, if any, and reports whether a
// live one was removed.
func (g *Gate) Revoke(ctx context.Context, identity string) (bool, error) {
	token, ok, err := g.index.Take(ctx, identity)
	if err != nil || !ok {
		return false, err
	}
	t, ok, err := g.tokens.Take(ctx, token)
	if err != nil || !ok {
		return false, err
	}
	if t.Purpose != PurposeExecute || t.Identity != identity {
		return false, nil
	}
	live := t.ExpiresAt.IsZero() || g.now().Before(t.ExpiresAt)
	if live {
		g.log.Debug("step-up link revoked", logger.Phone(identity))
	}
	return live, nil
}

// Owner returns the identity a live token belongs to.
func (g *Gate) Owner(ctx context.Context, token string) (string, error) {
	t, ok, err := g.Lookup(ctx, token)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrExpired
	}
	return t.Identity, nil
}

// Validate checks pin against an execute token. On success the token is
// deleted before returning.
func (g *Gate) Validate(ctx context.Context, token, pin string) (Confirmation, error) {
	t, ok, err := g.Lookup(ctx, token)
	if err != nil {
		return Confirmation{}, err
	}
	if !ok || t.Purpose != PurposeExecute {
		metrics.ObserveStepUp("expired")
		return Confirmation{}, ErrExpired
	}

	remaining, err := g.pins.LockoutRemaining(ctx, t.Identity)
	if err != nil {
		return Confirmation{}, err
	}
	if remaining > 0 {
		metrics.ObserveStepUp("locked")
		return Confirmation{}, reject(&Rejection{LockedFor: remaining})
	}

	good, err := g.pins.VerifyPIN(ctx, t.Identity, pin)
	if err != nil {
		return Confirmation{}, err
	}
	if !good {
		return Confirmation{}, g.wrongPIN(ctx, token, t)
	}

	if _, ok, err := g.tokens.Take(ctx, token); err != nil {
		return Confirmation{}, err
	} else if !ok {
		return Confirmation{}, ErrExpired
	}
	if current, ok, err := g.index.Get(ctx, t.Identity); err == nil && ok && current == token {
		_ = g.index.Delete(ctx, t.Identity)
	}
	staged, _ := t.Intent.Intent.(intent.Staged)
	if staged == nil {
		return Confirmation{}, ErrExpired
	}
	metrics.ObserveStepUp("ok")
	logger.Audit().Info("step-up confirmed", logger.Phone(t.Identity), slog.String("intent", string(staged.Kind())))
	return Confirmation{Identity: t.Identity, Intent: staged}, nil
}

func (g *Gate) wrongPIN(ctx context.Context, token string, t Token) error {
	t.Attempts++
	metrics.ObserveStepUp("wrong_pin")
	if t.Attempts >= MaxAttempts {
		if err := g.tokens.Delete(ctx, token); err != nil {
			return err
		}
		if err := g.pins.Lock(ctx, t.Identity); err != nil {
			return err
		}
		locked, err := g.pins.LockoutRemaining(ctx, t.Identity)
		if err != nil {
			return err
		}
		return reject(&Rejection{Exhausted: true, LockedFor: locked})
	}
	ttl := t.ExpiresAt.Sub(g.now())
	if ttl <= 0 {
		_ = g.tokens.Delete(ctx, token)
		return ErrExpired
	}
	if err := g.tokens.Put(ctx, token, t, ttl); err != nil {
		return err
	}
	g.log.Info("wrong pin", logger.Phone(t.Identity), slog.Int("attempts", t.Attempts))
	return reject(&Rejection{AttemptsLeft: MaxAttempts - t.Attempts})
}

// ConsumePINToken takes a set_pin token and returns its identity.
func (g *Gate) ConsumePINToken(ctx context.Context, token string) (string, error) {
	t, ok, err := g.Lookup(ctx, token)
	if err != nil {
		return "", err
	}
	if !ok || t.Purpose != PurposeSetPIN {
		return "", ErrExpired
	}
	if _, ok, err := g.tokens.Take(ctx, token); err != nil {
		return "", err
	} else if !ok {
		return "", ErrExpired
	}
	return t.Identity, nil
}

func reject(r *Rejection) error {
	return xerrors.Wrap(CodeStepUpInvalid, r, r.Error())
}

func newToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

// wellFormed rejects anything that could not have come from newToken before
// touching the store.
func wellFormed(token string) bool {
	if len(token) != 43 {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil
}
