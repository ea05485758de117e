// Package identity maps phone numbers to custodial wallets, preferences,
// contacts and PIN state.
package identity

import (
	"context"
	"strings"
	"time"

	xerrors "hushpay/internal/errors"
)

const (
	CodeInvalidIdentifier xerrors.Code = "INVALID_IDENTIFIER"
	CodeInvalidPIN        xerrors.Code = "INVALID_PIN"
	CodeUnknownRecipient  xerrors.Code = "UNKNOWN_RECIPIENT"
)

func init() {
	xerrors.Register(CodeInvalidIdentifier, xerrors.Attributes{
		Message:  "invalid phone identifier",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeInvalidPIN, xerrors.Attributes{
		Message:  "pin must be 4-6 digits",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeUnknownRecipient, xerrors.Attributes{
		Message:  "recipient could not be resolved",
		Severity: xerrors.SeverityInfo,
	})
}

var (
	ErrInvalidIdentifier = xerrors.New(CodeInvalidIdentifier, "")
	ErrInvalidPIN        = xerrors.New(CodeInvalidPIN, "")
	ErrUnknownRecipient  = xerrors.New(CodeUnknownRecipient, "")
	ErrNotFound          = xerrors.New(xerrors.CodeNotFound, "identity not found")
	ErrContactNotFound   = xerrors.New(xerrors.CodeNotFound, "contact not found")
)

// Identity is one user keyed by normalized phone.
type Identity struct {
	Phone         string
	WalletAddress string
	SealedKey     string
	Language      string
	PINHash       string
	LockedUntil   time.Time
	CreatedAt     time.Time
}

// HasPIN reports whether step-up confirmation is enabled.
func (i Identity) HasPIN() bool { return i.PINHash != "" }

// Contact is a named phone number saved by Owner.
type Contact struct {
	Owner     string
	Name      string
	Phone     string
	CreatedAt time.Time
}

// ContactKey is the case-insensitive uniqueness key of a contact name.
func ContactKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Store persists identities and contacts.
type Store interface {
	// Create inserts id unless the phone already exists. It returns the
	// stored identity and whether this call created it.
	Create(ctx context.Context, id Identity) (Identity, bool, error)
	Get(ctx context.Context, phone string) (Identity, error)
	FindByWallet(ctx context.Context, address string) (Identity, error)
	UpdateLanguage(ctx context.Context, phone, lang string) error
	UpdatePIN(ctx context.Context, phone, hash string) error
	// UpdateLockout sets the lockout expiry. A zero time clears it.
	UpdateLockout(ctx context.Context, phone string, until time.Time) error

	SaveContact(ctx context.Context, c Contact) error
	GetContact(ctx context.Context, owner, name string) (Contact, error)
	DeleteContact(ctx context.Context, owner, name string) (bool, error)
	ListContacts(ctx context.Context, owner string) ([]Contact, error)
}
