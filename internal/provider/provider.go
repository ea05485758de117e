// Package provider declares the external collaborators the payment core
// depends on. Concrete HTTP adapters live in the sub-packages.
package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/money"
	"hushpay/internal/wallet"
)

const (
	CodeProviderError    xerrors.Code = "PROVIDER_ERROR"
	CodeNotConfigured    xerrors.Code = "PROVIDER_NOT_CONFIGURED"
	CodeUnsupportedChain xerrors.Code = "UNSUPPORTED_CHAIN"
)

func init() {
	xerrors.Register(CodeProviderError, xerrors.Attributes{
		Message:   "provider call failed",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
		Alert:     true,
	})
	xerrors.Register(CodeNotConfigured, xerrors.Attributes{
		Message:  "provider is not configured",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeUnsupportedChain, xerrors.Attributes{
		Message:  "destination chain is not supported",
		Severity: xerrors.SeverityInfo,
	})
}

// ErrNotConfigured is returned by adapters constructed without credentials.
var ErrNotConfigured = xerrors.New(CodeNotConfigured, "")

// Channel is the messaging surface a user talks to us on.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// ParseChannel maps free text to a channel, defaulting to SMS.
func ParseChannel(s string) Channel {
	if strings.EqualFold(strings.TrimSpace(s), string(ChannelWhatsApp)) {
		return ChannelWhatsApp
	}
	return ChannelSMS
}

// TransferRequest moves Amount of Token from the sender's wallet to To.
type TransferRequest struct {
	From   wallet.Keypair
	To     string
	Amount money.Amount
	Token  string
}

// TransferResult is a provider receipt.
type TransferResult struct {
	TxRef        string
	AmountHidden bool
}

// PoolRequest addresses the privacy pool. Recipient is empty for deposits.
type PoolRequest struct {
	Owner     wallet.Keypair
	Recipient string
	Amount    money.Amount
	Token     string
}

// BridgeRequest sends funds to an address on another chain.
type BridgeRequest struct {
	From               wallet.Keypair
	DestinationChain   string
	ChainID            int64
	DestinationAddress string
	Amount             money.Amount
	Token              string
}

// Screening is a compliance verdict for one address.
type Screening struct {
	Allowed bool
	Risk    string
	Reason  string
}

type Transferer interface {
	Transfer(ctx context.Context, req TransferRequest) (TransferResult, error)
}

type PrivacyPool interface {
	Deposit(ctx context.Context, req PoolRequest) (TransferResult, error)
	Withdraw(ctx context.Context, req PoolRequest) (TransferResult, error)
	AnonymousSend(ctx context.Context, req PoolRequest) (TransferResult, error)
	PrivateBalance(ctx context.Context, owner wallet.Keypair, token string) (money.Amount, error)
}

type Bridge interface {
	Bridge(ctx context.Context, req BridgeRequest) (TransferResult, error)
}

type Screener interface {
	Screen(ctx context.Context, address string) (Screening, error)
}

// Notifier delivers a text to a phone number on a channel.
type Notifier interface {
	Notify(ctx context.Context, to string, channel Channel, text string) error
}

// PriceFeed returns the USD price of a symbol. ok is false for unknown
// symbols.
type PriceFeed interface {
	Price(ctx context.Context, symbol string) (price decimal.Decimal, ok bool, err error)
}

type BalanceReader interface {
	Balance(ctx context.Context, address string) (money.Amount, error)
	EstimateFee(ctx context.Context) (money.Amount, error)
}

// AddressWatcher registers a wallet for incoming-transfer webhooks.
type AddressWatcher interface {
	Watch(ctx context.Context, address string) error
}

// Failed wraps err as a provider failure. Deadlines become TIMEOUT. A 4xx
// answer other than 408 and 429 is not retryable, rejected credentials are
// critical and throttling does not page.
func Failed(provider string, err error) error {
	if err == nil {
		return nil
	}
	meta := xerrors.WithMetadata("provider", provider)
	if errors.Is(err, context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeTimeout, err, provider+" call timed out", meta)
	}
	var st interface{ HTTPStatus() int }
	if !errors.As(err, &st) {
		return xerrors.Wrap(CodeProviderError, err, provider+" call failed", meta)
	}
	status := st.HTTPStatus()
	switch {
	case status == http.StatusTooManyRequests:
		return xerrors.Wrap(CodeProviderError, err, provider+" throttled the request", meta,
			xerrors.WithAlert(false))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return xerrors.Wrap(CodeProviderError, err, provider+" rejected credentials", meta,
			xerrors.WithRetryable(false), xerrors.WithSeverity(xerrors.SeverityCritical))
	case status >= 400 && status < 500 && status != http.StatusRequestTimeout && status != http.StatusTooManyRequests:
		return xerrors.Wrap(CodeProviderError, err, provider+" rejected the request", meta,
			xerrors.WithRetryable(false))
	}
	return xerrors.Wrap(CodeProviderError, err, provider+" call failed", meta)
}
