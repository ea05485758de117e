// Package intent defines the closed set of actions the interpreter can
// request. Every kind is a concrete type implementing Intent; routers switch
// on the concrete type so a new kind is a compile-time addition.
package intent

import (
	"strings"

	"github.com/shopspring/decimal"

	"hushpay/internal/money"
)

// Kind is the wire tag of an intent.
type Kind string

const (
	KindCheckBalance     Kind = "check_balance"
	KindGetWallet        Kind = "get_wallet"
	KindGetReceipts      Kind = "get_receipts"
	KindListContacts     Kind = "list_contacts"
	KindListRecurring    Kind = "list_recurring"
	KindSaveContact      Kind = "save_contact"
	KindDeleteContact    Kind = "delete_contact"
	KindCancelRecurring  Kind = "cancel_recurring"
	KindSetLanguage      Kind = "set_language"
	KindPriceAlert       Kind = "price_alert"
	KindPaymentRequest   Kind = "payment_request"
	KindSetPIN           Kind = "set_pin"
	KindSendPayment      Kind = "send_payment"
	KindAnonSend         Kind = "anon_send"
	KindDeposit          Kind = "deposit"
	KindWithdraw         Kind = "withdraw"
	KindCrossChainSend   Kind = "cross_chain_send"
	KindSplitPayment     Kind = "split_payment"
	KindRecurringPayment Kind = "recurring_payment"
)

// Intent is implemented only by the types in this package.
type Intent interface {
	Kind() Kind
	sealed()
}

// Staged intents move funds or change standing instructions. They are only
// ever executed after an explicit confirmation.
type Staged interface {
	Intent
	// Principal is the amount compared against the minimum and the step-up
	// threshold. For split payments it is the total.
	Principal() money.Amount
	Symbol() string
}

// IsStaged reports whether in requires confirmation.
func IsStaged(in Intent) bool {
	_, ok := in.(Staged)
	return ok
}

type CheckBalance struct{}
type GetWallet struct{}
type GetReceipts struct{}
type ListContacts struct{}
type ListRecurring struct{}
type SetPIN struct{}

type SaveContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type DeleteContact struct {
	Name string `json:"name"`
}

// CancelRecurring stops the active recurring payment to Recipient (phone or
// contact name).
type CancelRecurring struct {
	Recipient string `json:"recipient"`
}

type SetLanguage struct {
	Language string `json:"language"`
}

// Condition is the direction of a price alert.
type Condition string

const (
	Above Condition = "above"
	Below Condition = "below"
)

type PriceAlert struct {
	Token       string          `json:"token"`
	Condition   Condition       `json:"condition"`
	TargetPrice decimal.Decimal `json:"targetPrice"`
}

// PaymentRequest asks Payer to send funds. Nothing moves.
type PaymentRequest struct {
	Amount money.Amount `json:"amount"`
	Token  string       `json:"token"`
	Payer  string       `json:"payer"`
}

// SendPayment transfers to a phone number or a contact name.
type SendPayment struct {
	Amount    money.Amount `json:"amount"`
	Token     string       `json:"token"`
	Recipient string       `json:"recipient"`
}

// AnonSend transfers to a raw wallet address through the privacy pool.
type AnonSend struct {
	Amount money.Amount `json:"amount"`
	Token  string       `json:"token"`
	Wallet string       `json:"recipientWallet"`
}

type Deposit struct {
	Amount money.Amount `json:"amount"`
	Token  string       `json:"token"`
}

type Withdraw struct {
	Amount money.Amount `json:"amount"`
	Token  string       `json:"token"`
}

type CrossChainSend struct {
	Amount             money.Amount `json:"amount"`
	Token              string       `json:"token"`
	Recipient          string       `json:"recipient,omitempty"`
	DestinationChain   string       `json:"destinationChain"`
	DestinationAddress string       `json:"destinationAddress,omitempty"`
}

type SplitPayment struct {
	Total      money.Amount `json:"totalAmount"`
	Token      string       `json:"token"`
	Recipients []string     `json:"recipients"`
}

// Frequency of a recurring payment.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

type RecurringPayment struct {
	Amount    money.Amount `json:"amount"`
	Token     string       `json:"token"`
	Recipient string       `json:"recipient"`
	Frequency Frequency    `json:"frequency"`
}

func (CheckBalance) Kind() Kind     { return KindCheckBalance }
func (GetWallet) Kind() Kind        { return KindGetWallet }
func (GetReceipts) Kind() Kind      { return KindGetReceipts }
func (ListContacts) Kind() Kind     { return KindListContacts }
func (ListRecurring) Kind() Kind    { return KindListRecurring }
func (SetPIN) Kind() Kind           { return KindSetPIN }
func (SaveContact) Kind() Kind      { return KindSaveContact }
func (DeleteContact) Kind() Kind    { return KindDeleteContact }
func (CancelRecurring) Kind() Kind  { return KindCancelRecurring }
func (SetLanguage) Kind() Kind      { return KindSetLanguage }
func (PriceAlert) Kind() Kind       { return KindPriceAlert }
func (PaymentRequest) Kind() Kind   { return KindPaymentRequest }
func (SendPayment) Kind() Kind      { return KindSendPayment }
func (AnonSend) Kind() Kind         { return KindAnonSend }
func (Deposit) Kind() Kind          { return KindDeposit }
func (Withdraw) Kind() Kind         { return KindWithdraw }
func (CrossChainSend) Kind() Kind   { return KindCrossChainSend }
func (SplitPayment) Kind() Kind     { return KindSplitPayment }
func (RecurringPayment) Kind() Kind { return KindRecurringPayment }

func (CheckBalance) sealed()     {}
func (GetWallet) sealed()        {}
func (GetReceipts) sealed()      {}
func (ListContacts) sealed()     {}
func (ListRecurring) sealed()    {}
func (SetPIN) sealed()           {}
func (SaveContact) sealed()      {}
func (DeleteContact) sealed()    {}
func (CancelRecurring) sealed()  {}
func (SetLanguage) sealed()      {}
func (PriceAlert) sealed()       {}
func (PaymentRequest) sealed()   {}
func (SendPayment) sealed()      {}
func (AnonSend) sealed()         {}
func (Deposit) sealed()          {}
func (Withdraw) sealed()         {}
func (CrossChainSend) sealed()   {}
func (SplitPayment) sealed()     {}
func (RecurringPayment) sealed() {}

func (i SendPayment) Principal() money.Amount      { return i.Amount }
func (i AnonSend) Principal() money.Amount         { return i.Amount }
func (i Deposit) Principal() money.Amount          { return i.Amount }
func (i Withdraw) Principal() money.Amount         { return i.Amount }
func (i CrossChainSend) Principal() money.Amount   { return i.Amount }
func (i SplitPayment) Principal() money.Amount     { return i.Total }
func (i RecurringPayment) Principal() money.Amount { return i.Amount }

func (i SendPayment) Symbol() string      { return i.Token }
func (i AnonSend) Symbol() string         { return i.Token }
func (i Deposit) Symbol() string          { return i.Token }
func (i Withdraw) Symbol() string         { return i.Token }
func (i CrossChainSend) Symbol() string   { return i.Token }
func (i SplitPayment) Symbol() string     { return i.Token }
func (i RecurringPayment) Symbol() string { return i.Token }

// WithDefaultToken returns in with its token upper-cased, or set to symbol
// when the interpreter left it empty.
func WithDefaultToken(in Staged, symbol string) Staged {
	norm := func(t string) string {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			return strings.ToUpper(symbol)
		}
		return t
	}
	switch v := in.(type) {
	case SendPayment:
		v.Token = norm(v.Token)
		return v
	case AnonSend:
		v.Token = norm(v.Token)
		return v
	case Deposit:
		v.Token = norm(v.Token)
		return v
	case Withdraw:
		v.Token = norm(v.Token)
		return v
	case CrossChainSend:
		v.Token = norm(v.Token)
		return v
	case SplitPayment:
		v.Token = norm(v.Token)
		return v
	case RecurringPayment:
		v.Token = norm(v.Token)
		return v
	}
	return in
}
