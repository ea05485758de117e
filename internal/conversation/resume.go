package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"hushpay/internal/chatlog"
	xerrors "hushpay/internal/errors"
	"hushpay/internal/i18n"
	"hushpay/internal/identity"
	"hushpay/internal/money"
	"hushpay/internal/stepup"
	"hushpay/pkg/logger"
)

// StepUpResult is what the confirmation page shows.
type StepUpResult struct {
	OK      bool
	Message string
	// Retry is true when the same link may be submitted again.
	Retry bool
}

// ResumeWithPIN confirms the action behind token with pin and executes it.
func (e *Engine) ResumeWithPIN(ctx context.Context, token, pin string) (StepUpResult, error) {
	owner, err := e.deps.Gate.Owner(ctx, token)
	if xerrors.Is(err, stepup.ErrExpired) {
		return StepUpResult{Message: i18n.T(i18n.Default, i18n.LinkExpired)}, nil
	}
	if err != nil {
		return StepUpResult{}, err
	}
	unlock, err := e.deps.Locks.Lock(ctx, owner)
	if err != nil {
		return StepUpResult{}, err
	}
	defer unlock()

	id, err := e.deps.Identities.Get(ctx, owner)
	if err != nil {
		return StepUpResult{}, err
	}
	conf, err := e.deps.Gate.Validate(ctx, token, pin)
	if err != nil {
		return e.rejected(id, err)
	}

	reply, err := e.deps.Executor.Execute(ctx, id, conf.Intent, e.defaultChannel)
	if err != nil {
		return StepUpResult{}, err
	}
	e.record(ctx, id.Phone, chatlog.RoleAssistant, reply)
	return StepUpResult{OK: true, Message: reply}, nil
}

func (e *Engine) rejected(id identity.Identity, err error) (StepUpResult, error) {
	if xerrors.Is(err, stepup.ErrExpired) {
		return StepUpResult{Message: i18n.T(id.Language, i18n.LinkExpired)}, nil
	}
	var rej *stepup.Rejection
	if !errors.As(err, &rej) {
		return StepUpResult{}, err
	}
	minutes := strconv.Itoa(rej.Minutes())
	switch {
	case rej.Exhausted:
		return StepUpResult{Message: i18n.T(id.Language, i18n.PINTooMany, "minutes", minutes)}, nil
	case rej.LockedFor > 0:
		return StepUpResult{Message: i18n.T(id.Language, i18n.PINLocked, "minutes", minutes)}, nil
	default:
		return StepUpResult{Retry: true, Message: i18n.T(id.Language, i18n.PINWrong, "attempts", strconv.Itoa(rej.AttemptsLeft))}, nil
	}
}

// SetPINWithToken stores pin for the identity behind a set_pin token.
func (e *Engine) SetPINWithToken(ctx context.Context, token, pin string) (StepUpResult, error) {
	owner, err := e.deps.Gate.Owner(ctx, token)
	if xerrors.Is(err, stepup.ErrExpired) {
		return StepUpResult{Message: i18n.T(i18n.Default, i18n.LinkExpired)}, nil
	}
	if err != nil {
		return StepUpResult{}, err
	}
	unlock, err := e.deps.Locks.Lock(ctx, owner)
	if err != nil {
		return StepUpResult{}, err
	}
	defer unlock()

	id, err := e.deps.Identities.Get(ctx, owner)
	if err != nil {
		return StepUpResult{}, err
	}
	// A malformed PIN leaves the link usable.
	if !identity.ValidPIN(pin) {
		return StepUpResult{Retry: true, Message: i18n.T(id.Language, i18n.PINFormat)}, nil
	}
	if _, err := e.deps.Gate.ConsumePINToken(ctx, token); err != nil {
		if xerrors.Is(err, stepup.ErrExpired) {
			return StepUpResult{Message: i18n.T(id.Language, i18n.LinkExpired)}, nil
		}
		return StepUpResult{}, err
	}
	if err := e.deps.Identities.SetPIN(ctx, id.Phone, pin); err != nil {
		return StepUpResult{}, err
	}
	msg := i18n.T(id.Language, i18n.PINSet, "threshold", money.StepUpThreshold.String(), "token", e.nativeToken)
	e.record(ctx, id.Phone, chatlog.RoleAssistant, msg)
	return StepUpResult{OK: true, Message: msg}, nil
}

// HandleIncomingTransfer tells the owner of address that funds arrived.
// Unknown addresses are ignored.
func (e *Engine) HandleIncomingTransfer(ctx context.Context, address string, amount money.Amount, token, from string) error {
	id, err := e.deps.Identities.FindByWallet(ctx, address)
	if xerrors.Is(err, identity.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if token == "" {
		token = e.nativeToken
	}
	if e.deps.Notifier == nil {
		return nil
	}
	if from == "" {
		from = "?"
	} else if len(from) > 12 {
		from = from[:6] + "..." + from[len(from)-4:]
	}
	text := i18n.T(id.Language, i18n.Received, "amount", amount.String(), "token", token, "from", from)
	if err := e.deps.Notifier.Notify(ctx, id.Phone, e.defaultChannel, text); err != nil {
		e.log.Warn("notify incoming transfer", logger.Phone(id.Phone), slog.Any("error", err))
		return err
	}
	return nil
}
