// Package ledger records every attempted value movement and its outcome.
package ledger

import (
	"context"
	"time"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/money"
)

// Status of a transfer. Records move from pending to exactly one terminal
// status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Kind labels which provider path produced a transfer.
type Kind string

const (
	KindSend      Kind = "send"
	KindAnonymous Kind = "anon_send"
	KindDeposit   Kind = "deposit"
	KindWithdraw  Kind = "withdraw"
	KindBridge    Kind = "bridge"
	KindSplit     Kind = "split"
	KindRecurring Kind = "recurring"
)

// Transfer is one ledger entry. Recipient is a phone number, or a wallet
// address for anonymous and bridged sends.
type Transfer struct {
	ID        string
	Sender    string
	Recipient string
	Amount    money.Amount
	Token     string
	Kind      Kind
	Status    Status
	TxRef     string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrNotFound        = xerrors.New(xerrors.CodeNotFound, "transfer not found")
	ErrAlreadySettled  = xerrors.New(xerrors.CodeConflict, "transfer already settled")
	ErrInvalidTerminal = xerrors.New(xerrors.CodeInvalidArgument, "status is not terminal")
)

// Store persists transfers.
type Store interface {
	Create(ctx context.Context, t Transfer) error
	Get(ctx context.Context, id string) (Transfer, error)
	// Settle moves a pending transfer to status. Settling twice fails with
	// ErrAlreadySettled.
	Settle(ctx context.Context, id string, status Status, txRef, reason string) error
	// ListForIdentity returns the newest transfers sent or received by phone.
	ListForIdentity(ctx context.Context, phone string, limit int) ([]Transfer, error)
}
