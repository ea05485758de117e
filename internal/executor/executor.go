// Package executor performs confirmed actions. Nothing reaches it without a
// consumed pending action, a consumed step-up token or a due recurring
// occurrence.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hushpay/internal/chain"
	xerrors "hushpay/internal/errors"
	"hushpay/internal/i18n"
	"hushpay/internal/identity"
	"hushpay/internal/intent"
	"hushpay/internal/ledger"
	"hushpay/internal/money"
	"hushpay/internal/pending"
	"hushpay/internal/phone"
	"hushpay/internal/provider"
	"hushpay/internal/recurring"
	"hushpay/internal/wallet"
	"hushpay/pkg/logger"
)

const (
	CodeComplianceBlocked       xerrors.Code = "COMPLIANCE_BLOCKED"
	CodeInsufficientBalance     xerrors.Code = "INSUFFICIENT_BALANCE"
	CodeRecipientAddressMissing xerrors.Code = "RECIPIENT_ADDRESS_MISSING"
)

func init() {
	xerrors.Register(CodeComplianceBlocked, xerrors.Attributes{
		Message:  "address failed compliance screening",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeInsufficientBalance, xerrors.Attributes{
		Message:  "insufficient balance",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeRecipientAddressMissing, xerrors.Attributes{
		Message:  "destination address is required",
		Severity: xerrors.SeverityInfo,
	})
}

// topUpStep rounds suggested top-ups to 0.01.
const topUpStep money.Amount = 10_000_000

// Shortfall describes an InsufficientBalance failure.
type Shortfall struct {
	Balance money.Amount
	Needed  money.Amount
	Missing money.Amount
}

func (s *Shortfall) Error() string {
	return "balance " + s.Balance.String() + " below " + s.Needed.String()
}

// Identities is the subset of identity.Service the executor needs.
type Identities interface {
	Get(ctx context.Context, phone string) (identity.Identity, error)
	ResolveRecipient(ctx context.Context, owner, ref string) (identity.Identity, error)
	Keypair(id identity.Identity) (wallet.Keypair, error)
}

// Dependencies are the collaborators an Executor is built from. Transfers
// is required; a nil Pool, Bridge, Screener or Balances disables the paths
// that need it.
type Dependencies struct {
	Identities   Identities
	Ledger       ledger.Store
	Pending      *pending.Store
	Recurring    recurring.Store
	Transfers    provider.Transferer
	Pool         provider.PrivacyPool
	Bridge       provider.Bridge
	Screener     provider.Screener
	Balances     provider.BalanceReader
	Notifier     provider.Notifier
	Destinations *chain.Registry
}

// Executor runs staged intents.
type Executor struct {
	deps           Dependencies
	nativeToken    string
	defaultChannel provider.Channel
	now            func() time.Time
	log            *slog.Logger
}

// Option customises an Executor.
type Option func(*Executor)

func WithNativeToken(symbol string) Option {
	return func(e *Executor) {
		if symbol != "" {
			e.nativeToken = strings.ToUpper(symbol)
		}
	}
}

// WithDefaultChannel sets the channel used for notifications that have no
// inbound message to reply on, such as recurring occurrences.
func WithDefaultChannel(ch provider.Channel) Option {
	return func(e *Executor) {
		if ch != "" {
			e.defaultChannel = ch
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

func New(deps Dependencies, opts ...Option) *Executor {
	e := &Executor{
		deps:           deps,
		nativeToken:    "ETH",
		defaultChannel: provider.ChannelSMS,
		now:            time.Now,
		log:            logger.Named("executor"),
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

// Execute performs in for sender and returns the reply text. Domain failures
// (blocked, insufficient funds, provider errors) are reported in the reply;
// only unexpected failures are returned as errors.
func (e *Executor) Execute(ctx context.Context, sender identity.Identity, in intent.Staged, channel provider.Channel) (string, error) {
	if e.deps.Transfers == nil || e.deps.Ledger == nil || e.deps.Identities == nil {
		return "", xerrors.New(xerrors.CodeInitializationFailure, "executor is missing required dependencies")
	}
	if channel == "" {
		channel = e.defaultChannel
	}
	switch v := in.(type) {
	case intent.SendPayment:
		return e.sendPayment(ctx, sender, v, channel)
	case intent.AnonSend:
		return e.anonSend(ctx, sender, v)
	case intent.Deposit:
		return e.deposit(ctx, sender, v)
	case intent.Withdraw:
		return e.withdraw(ctx, sender, v)
	case intent.SplitPayment:
		return e.split(ctx, sender, v, channel)
	case intent.CrossChainSend:
		return e.crossChain(ctx, sender, v)
	case intent.RecurringPayment:
		return e.scheduleRecurring(ctx, sender, v)
	case nil:
		return "", xerrors.New(xerrors.CodeInvalidArgument, "nothing to execute")
	default:
		return "", xerrors.New(xerrors.CodeInvalidArgument, "unsupported staged intent "+string(in.Kind()))
	}
}

func (e *Executor) token(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return e.nativeToken
	}
	return symbol
}

func (e *Executor) sendPayment(ctx context.Context, sender identity.Identity, v intent.SendPayment, channel provider.Channel) (string, error) {
	lang := sender.Language
	token := e.token(v.Token)
	recipient, err := e.deps.Identities.ResolveRecipient(ctx, sender.Phone, v.Recipient)
	if xerrors.Is(err, identity.ErrUnknownRecipient) {
		return i18n.T(lang, i18n.UnknownRecipient, "recipient", v.Recipient), nil
	}
	if err != nil {
		return "", err
	}

	t, err := e.pay(ctx, sender, recipient, v.Amount, token, ledger.KindSend)
	if err != nil {
		return e.failure(ctx, sender, v, err)
	}
	e.notify(ctx, recipient.Phone, channel, i18n.T(recipient.Language, i18n.Received,
		"amount", v.Amount.String(), "token", token, "from", "..."+phone.Last4(sender.Phone)))
	return i18n.T(lang, i18n.Sent,
		"amount", v.Amount.String(), "token", token,
		"recipient", display(v.Recipient, recipient.Phone), "tx", shortTx(t.TxRef)), nil
}

func (e *Executor) anonSend(ctx context.Context, sender identity.Identity, v intent.AnonSend) (string, error) {
	lang := sender.Language
	if !wallet.ValidAddress(v.Wallet) {
		return i18n.T(lang, i18n.InvalidAddress), nil
	}
	if e.deps.Pool == nil {
		return i18n.T(lang, i18n.Unsupported), nil
	}
	token := e.token(v.Token)
	dest := wallet.Canonical(v.Wallet)
	t, err := e.move(ctx, movement{
		sender:  sender,
		to:      dest,
		amount:  v.Amount,
		token:   token,
		kind:    ledger.KindAnonymous,
		publicW: true,
		call: func(ctx context.Context, key wallet.Keypair) (provider.TransferResult, error) {
			res, err := e.deps.Pool.AnonymousSend(ctx, provider.PoolRequest{Owner: key, Recipient: dest, Amount: v.Amount, Token: token})
			return res, provider.Failed("privacy pool", err)
		},
	})
	if err != nil {
		return e.failure(ctx, sender, v, err)
	}
	return i18n.T(lang, i18n.AnonSent, "amount", v.Amount.String(), "token", token, "tx", shortTx(t.TxRef)), nil
}

func (e *Executor) deposit(ctx context.Context, sender identity.Identity, v intent.Deposit) (string, error) {
	lang := sender.Language
	if e.deps.Pool == nil {
		return i18n.T(lang, i18n.Unsupported), nil
	}
	token := e.token(v.Token)
	_, err := e.move(ctx, movement{
		sender:  sender,
		to:      sender.Phone,
		amount:  v.Amount,
		token:   token,
		kind:    ledger.KindDeposit,
		publicW: true,
		call: func(ctx context.Context, key wallet.Keypair) (provider.TransferResult, error) {
			res, err := e.deps.Pool.Deposit(ctx, provider.PoolRequest{Owner: key, Amount: v.Amount, Token: token})
			return res, provider.Failed("privacy pool", err)
		},
	})
	if err != nil {
		return e.failure(ctx, sender, v, err)
	}
	return i18n.T(lang, i18n.Deposited, "amount", v.Amount.String(), "token", token,
		"balance", e.privateBalance(ctx, sender, token)), nil
}

func (e *Executor) withdraw(ctx context.Context, sender identity.Identity, v intent.Withdraw) (string, error) {
	lang := sender.Language
	if e.deps.Pool == nil {
		return i18n.T(lang, i18n.Unsupported), nil
	}
	token := e.token(v.Token)
	_, err := e.move(ctx, movement{
		sender: sender,
		to:     sender.Phone,
		amount: v.Amount,
		token:  token,
		kind:   ledger.KindWithdraw,
		available: func(ctx context.Context, key wallet.Keypair) (money.Amount, error) {
			return e.deps.Pool.PrivateBalance(ctx, key, token)
		},
		call: func(ctx context.Context, key wallet.Keypair) (provider.TransferResult, error) {
			res, err := e.deps.Pool.Withdraw(ctx, provider.PoolRequest{Owner: key, Recipient: key.Address, Amount: v.Amount, Token: token})
			return res, provider.Failed("privacy pool", err)
		},
	})
	if err != nil {
		return e.failure(ctx, sender, v, err)
	}
	return i18n.T(lang, i18n.Withdrew, "amount", v.Amount.String(), "token", token,
		"balance", e.privateBalance(ctx, sender, token)), nil
}

func (e *Executor) crossChain(ctx context.Context, sender identity.Identity, v intent.CrossChainSend) (string, error) {
	lang := sender.Language
	dest, ok := e.deps.Destinations.Lookup(v.DestinationChain)
	if !ok {
		return i18n.T(lang, i18n.UnknownChain, "chain", v.DestinationChain,
			"chains", strings.Join(e.deps.Destinations.Names(), ", ")), nil
	}
	if strings.TrimSpace(v.DestinationAddress) == "" {
		err := xerrors.New(CodeRecipientAddressMissing, "cross-chain send without destination address")
		e.log.Info("cross-chain send rejected", logger.Phone(sender.Phone), slog.Any("error", err))
		return i18n.T(lang, i18n.NeedDestination, "chain", dest.Name), nil
	}
	if !wallet.ValidAddress(v.DestinationAddress) {
		return i18n.T(lang, i18n.InvalidAddress), nil
	}
	if e.deps.Bridge == nil {
		return i18n.T(lang, i18n.Unsupported), nil
	}
	token := e.token(v.Token)
	address := wallet.Canonical(v.DestinationAddress)
	t, err := e.move(ctx, movement{
		sender:  sender,
		to:      address,
		screen:  address,
		amount:  v.Amount,
		token:   token,
		kind:    ledger.KindBridge,
		publicW: true,
		call: func(ctx context.Context, key wallet.Keypair) (provider.TransferResult, error) {
			res, err := e.deps.Bridge.Bridge(ctx, provider.BridgeRequest{
				From:               key,
				DestinationChain:   dest.Name,
				ChainID:            dest.ChainID,
				DestinationAddress: address,
				Amount:             v.Amount,
				Token:              token,
			})
			return res, provider.Failed("bridge", err)
		},
	})
	if err != nil {
		return e.failure(ctx, sender, v, err)
	}
	return i18n.T(lang, i18n.BridgeSent, "amount", v.Amount.String(), "token", token,
		"chain", dest.Name, "address", address, "tx", shortTx(t.TxRef)), nil
}

func (e *Executor) scheduleRecurring(ctx context.Context, sender identity.Identity, v intent.RecurringPayment) (string, error) {
	lang := sender.Language
	if e.deps.Recurring == nil || !v.Frequency.Valid() {
		return i18n.T(lang, i18n.Unsupported), nil
	}
	recipient, err := e.deps.Identities.ResolveRecipient(ctx, sender.Phone, v.Recipient)
	if xerrors.Is(err, identity.ErrUnknownRecipient) {
		return i18n.T(lang, i18n.UnknownRecipient, "recipient", v.Recipient), nil
	}
	if err != nil {
		return "", err
	}
	now := e.now().UTC()
	token := e.token(v.Token)
	action := recurring.Action{
		ID:        uuid.NewString(),
		Sender:    sender.Phone,
		Recipient: recipient.Phone,
		Amount:    v.Amount,
		Token:     token,
		Frequency: v.Frequency,
		NextRunAt: now,
		Active:    true,
		CreatedAt: now,
	}
	if err := e.deps.Recurring.Create(ctx, action); err != nil {
		return "", err
	}
	logger.Audit().Info("recurring payment created",
		slog.String("id", action.ID),
		logger.Phone(sender.Phone),
		slog.String("frequency", string(v.Frequency)))
	return i18n.T(lang, i18n.RecurringCreated, "amount", v.Amount.String(), "token", token,
		"recipient", display(v.Recipient, recipient.Phone), "frequency", string(v.Frequency)), nil
}

// failure turns a domain error into reply text. Provider failures are kept
// as a retryable Failed Action.
func (e *Executor) failure(ctx context.Context, sender identity.Identity, in intent.Staged, err error) (string, error) {
	lang := sender.Language
	token := e.token(in.Symbol())
	switch xerrors.CodeOf(err) {
	case CodeComplianceBlocked:
		return i18n.T(lang, i18n.Blocked, "reason", reasonOf(err)), nil
	case CodeInsufficientBalance:
		var s *Shortfall
		if !errors.As(err, &s) {
			return i18n.T(lang, i18n.TransferFailed, "reason", reasonOf(err)), nil
		}
		topUp := s.Missing.CeilTo(topUpStep)
		return i18n.T(lang, i18n.InsufficientFunds,
			"balance", s.Balance.Fixed(4), "needed", s.Needed.Fixed(4),
			"shortfall", topUp.Fixed(2), "topup", topUp.Fixed(2),
			"token", token, "wallet", sender.WalletAddress), nil
	case provider.CodeProviderError, provider.CodeNotConfigured, xerrors.CodeTimeout:
		if e.deps.Pending != nil {
			if recErr := e.deps.Pending.RecordFailure(ctx, sender.Phone, in, reasonOf(err)); recErr != nil {
				return "", recErr
			}
		}
		return i18n.T(lang, i18n.TransferFailed, "reason", reasonOf(err)), nil
	}
	return "", err
}

// notify is best effort.
func (e *Executor) notify(ctx context.Context, to string, channel provider.Channel, text string) {
	if e.deps.Notifier == nil {
		return
	}
	if err := e.deps.Notifier.Notify(ctx, to, channel, text); err != nil {
		e.log.Warn("notify counterparty", logger.Phone(to), slog.Any("error", err))
	}
}

func (e *Executor) privateBalance(ctx context.Context, sender identity.Identity, token string) string {
	key, err := e.deps.Identities.Keypair(sender)
	if err != nil {
		return "?"
	}
	bal, err := e.deps.Pool.PrivateBalance(ctx, key, token)
	if err != nil {
		e.log.Warn("read private balance", logger.Phone(sender.Phone), slog.Any("error", err))
		return "?"
	}
	return bal.Fixed(4)
}

// reasonOf returns the most specific human message carried by err.
func reasonOf(err error) string {
	if msg, ok := xerrors.UserMessageOf(err); ok && msg != "" {
		return msg
	}
	if e, ok := xerrors.From(err); ok {
		return e.Message()
	}
	return err.Error()
}

func display(ref, phone string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return phone
	}
	if strings.ContainsAny(ref, "0123456789") {
		return phone
	}
	return ref
}

func shortTx(ref string) string {
	if len(ref) <= 16 {
		return ref
	}
	return ref[:16] + "..."
}
