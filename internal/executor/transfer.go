package executor

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/i18n"
	"hushpay/internal/identity"
	"hushpay/internal/intent"
	"hushpay/internal/ledger"
	"hushpay/internal/money"
	"hushpay/internal/observability/metrics"
	"hushpay/internal/phone"
	"hushpay/internal/provider"
	"hushpay/internal/recurring"
	"hushpay/internal/wallet"
	"hushpay/pkg/logger"
)

// movement is one value transfer from sender's wallet.
type movement struct {
	sender identity.Identity
	// to is stored as the ledger recipient.
	to string
	// screen is an extra address to screen besides the sender's.
	screen string
	amount money.Amount
	token  string
	kind   ledger.Kind
	// publicW checks the public wallet balance plus network fee.
	publicW bool
	// available overrides the balance source, for example the private pool.
	available func(ctx context.Context, key wallet.Keypair) (money.Amount, error)
	call      func(ctx context.Context, key wallet.Keypair) (provider.TransferResult, error)
}

// pay moves amount from sender to recipient's custodial wallet.
func (e *Executor) pay(ctx context.Context, sender, recipient identity.Identity, amount money.Amount, token string, kind ledger.Kind) (ledger.Transfer, error) {
	return e.move(ctx, movement{
		sender:  sender,
		to:      recipient.Phone,
		screen:  recipient.WalletAddress,
		amount:  amount,
		token:   token,
		kind:    kind,
		publicW: true,
		call: func(ctx context.Context, key wallet.Keypair) (provider.TransferResult, error) {
			res, err := e.deps.Transfers.Transfer(ctx, provider.TransferRequest{
				From:   key,
				To:     recipient.WalletAddress,
				Amount: amount,
				Token:  token,
			})
			return res, provider.Failed("transfer", err)
		},
	})
}

// move screens, checks funds, records a pending transfer, calls the provider
// and settles the record exactly once.
func (e *Executor) move(ctx context.Context, m movement) (ledger.Transfer, error) {
	if err := e.screen(ctx, m.sender.WalletAddress, m.screen); err != nil {
		return ledger.Transfer{}, err
	}
	key, err := e.deps.Identities.Keypair(m.sender)
	if err != nil {
		return ledger.Transfer{}, err
	}
	if err := e.checkFunds(ctx, m, key); err != nil {
		return ledger.Transfer{}, err
	}

	now := e.now().UTC()
	t := ledger.Transfer{
		ID:        uuid.NewString(),
		Sender:    m.sender.Phone,
		Recipient: m.to,
		Amount:    m.amount,
		Token:     m.token,
		Kind:      m.kind,
		Status:    ledger.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.deps.Ledger.Create(ctx, t); err != nil {
		return ledger.Transfer{}, err
	}

	// The provider call must finish even if the inbound request goes away.
	res, callErr := m.call(context.WithoutCancel(ctx), key)
	if callErr != nil {
		t.Status, t.Error = ledger.StatusFailed, reasonOf(callErr)
	} else {
		t.Status, t.TxRef = ledger.StatusConfirmed, res.TxRef
	}
	if err := e.deps.Ledger.Settle(context.WithoutCancel(ctx), t.ID, t.Status, t.TxRef, t.Error); err != nil {
		e.log.Error("settle transfer", slog.String("transfer_id", t.ID), slog.Any("error", err))
		return t, err
	}
	metrics.ObserveTransfer(string(m.kind), string(t.Status))
	logger.Audit().Info("transfer settled",
		slog.String("transfer_id", t.ID),
		slog.String("kind", string(m.kind)),
		logger.Phone(m.sender.Phone),
		slog.String("status", string(t.Status)),
		slog.String("tx_ref", t.TxRef))
	if callErr != nil {
		return t, callErr
	}
	return t, nil
}

func (e *Executor) screen(ctx context.Context, addresses ...string) error {
	if e.deps.Screener == nil {
		return nil
	}
	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		verdict, err := e.deps.Screener.Screen(ctx, addr)
		if err != nil {
			return provider.Failed("screening", err)
		}
		if !verdict.Allowed {
			reason := verdict.Reason
			if reason == "" {
				reason = "address flagged (" + verdict.Risk + " risk)"
			}
			logger.Audit().Warn("transfer blocked by screening", slog.String("address", addr), slog.String("risk", verdict.Risk))
			return xerrors.New(CodeComplianceBlocked, reason, xerrors.WithUserMessage(reason))
		}
	}
	return nil
}

func (e *Executor) checkFunds(ctx context.Context, m movement, key wallet.Keypair) error {
	var (
		balance money.Amount
		fee     money.Amount
		err     error
	)
	switch {
	case m.available != nil:
		balance, err = m.available(ctx, key)
		if err != nil {
			return provider.Failed("balance", err)
		}
	case m.publicW && e.deps.Balances != nil:
		balance, err = e.deps.Balances.Balance(ctx, m.sender.WalletAddress)
		if err != nil {
			return provider.Failed("balance", err)
		}
		fee, err = e.deps.Balances.EstimateFee(ctx)
		if err != nil {
			e.log.Warn("estimate fee", slog.Any("error", err))
			fee = 0
		}
	default:
		return nil
	}
	needed := m.amount + fee
	if balance >= needed {
		return nil
	}
	return xerrors.Wrap(CodeInsufficientBalance, &Shortfall{Balance: balance, Needed: needed, Missing: needed - balance}, "")
}

// split sends total/N to each recipient in order. A failed share is reported
// and the rest continue; nothing is kept for retry.
func (e *Executor) split(ctx context.Context, sender identity.Identity, v intent.SplitPayment, channel provider.Channel) (string, error) {
	lang := sender.Language
	token := e.token(v.Token)
	if len(v.Recipients) == 0 {
		return i18n.T(lang, i18n.UnknownRecipient, "recipient", ""), nil
	}
	share, remainder := v.Total.Split(len(v.Recipients))
	if share < money.MinTransfer {
		return i18n.T(lang, i18n.AmountTooSmall, "min", money.MinTransfer.String(), "token", token), nil
	}

	lines := []string{i18n.T(lang, i18n.SplitHeader, "total", v.Total.String(), "token", token, "share", share.String())}
	ok := 0
	for _, ref := range v.Recipients {
		recipient, err := e.deps.Identities.ResolveRecipient(ctx, sender.Phone, ref)
		if err != nil {
			if !xerrors.Is(err, identity.ErrUnknownRecipient) {
				e.log.Warn("resolve split recipient", logger.Phone(sender.Phone), slog.Any("error", err))
			}
			lines = append(lines, i18n.T(lang, i18n.SplitLineFailed, "recipient", ref, "reason", reasonOf(err)))
			continue
		}
		label := display(ref, recipient.Phone)
		if _, err := e.pay(ctx, sender, recipient, share, token, ledger.KindSplit); err != nil {
			lines = append(lines, i18n.T(lang, i18n.SplitLineFailed, "recipient", label, "reason", reasonOf(err)))
			continue
		}
		ok++
		lines = append(lines, i18n.T(lang, i18n.SplitLineOK, "recipient", label))
		e.notify(ctx, recipient.Phone, channel, i18n.T(recipient.Language, i18n.Received,
			"amount", share.String(), "token", token, "from", "..."+phone.Last4(sender.Phone)))
	}
	e.log.Info("split payment finished",
		logger.Phone(sender.Phone),
		slog.String("succeeded", strconv.Itoa(ok)+"/"+strconv.Itoa(len(v.Recipients))),
		slog.String("remainder", remainder.String()))
	return strings.Join(lines, "\n"), nil
}

// RunRecurring performs one occurrence of a. It implements recurring.Runner;
// the scheduler holds the sender's lock.
func (e *Executor) RunRecurring(ctx context.Context, a recurring.Action) error {
	sender, err := e.deps.Identities.Get(ctx, a.Sender)
	if err != nil {
		return err
	}
	recipient, err := e.deps.Identities.ResolveRecipient(ctx, a.Sender, a.Recipient)
	if err != nil {
		return err
	}
	token := e.token(a.Token)
	_, err = e.pay(ctx, sender, recipient, a.Amount, token, ledger.KindRecurring)
	metrics.ObserveRecurring(err == nil)
	if err != nil {
		return err
	}
	e.notify(ctx, sender.Phone, e.defaultChannel, i18n.T(sender.Language, i18n.RecurringSent,
		"amount", a.Amount.String(), "token", token, "recipient", recipient.Phone))
	e.notify(ctx, recipient.Phone, e.defaultChannel, i18n.T(recipient.Language, i18n.RecurringReceived,
		"amount", a.Amount.String(), "token", token))
	return nil
}

var _ recurring.Runner = (*Executor)(nil)
