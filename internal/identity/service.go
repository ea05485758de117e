package identity

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/phone"
	"hushpay/internal/wallet"
	"hushpay/pkg/logger"
)

// Watcher registers a wallet with the balance-change notifier.
type Watcher interface {
	Watch(ctx context.Context, address string) error
}

// LockoutDuration is how long an identity stays locked after too many wrong
// PINs.
const LockoutDuration = 15 * time.Minute

const watchTimeout = 10 * time.Second

// Service implements identity lookup, onboarding and preference changes.
type Service struct {
	store   Store
	sealer  *wallet.Sealer
	watcher Watcher
	now     func() time.Time
	log     *slog.Logger
	wg      sync.WaitGroup
}

// Option customises a Service.
type Option func(*Service)

// WithWatcher enables best-effort wallet registration on creation.
func WithWatcher(w Watcher) Option {
	return func(s *Service) { s.watcher = w }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service.
func NewService(store Store, sealer *wallet.Sealer, opts ...Option) *Service {
	s := &Service{store: store, sealer: sealer, now: time.Now, log: logger.Named("identity")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the identity for raw, creating it with a fresh wallet
// on first contact.
func (s *Service) GetOrCreate(ctx context.Context, raw string) (Identity, bool, error) {
	normalized, ok := phone.Normalize(raw)
	if !ok {
		return Identity{}, false, ErrInvalidIdentifier
	}
	existing, err := s.store.Get(ctx, normalized)
	if err == nil {
		return existing, false, nil
	}
	if !xerrors.Is(err, ErrNotFound) {
		return Identity{}, false, err
	}

	kp, err := wallet.Generate()
	if err != nil {
		return Identity{}, false, xerrors.Wrap(xerrors.CodeUnknown, err, "generate wallet")
	}
	sealed, err := s.sealer.SealKeypair(kp)
	if err != nil {
		return Identity{}, false, xerrors.Wrap(xerrors.CodeUnknown, err, "seal wallet key")
	}
	created, isNew, err := s.store.Create(ctx, Identity{
		Phone:         normalized,
		WalletAddress: kp.Address,
		SealedKey:     sealed,
		Language:      phone.Language(normalized),
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		return Identity{}, false, err
	}
	if isNew {
		s.log.Info("identity created", logger.Phone(normalized), slog.String("wallet", created.WalletAddress))
		s.watch(created.WalletAddress)
	}
	return created, isNew, nil
}

func (s *Service) watch(address string) {
	if s.watcher == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), watchTimeout)
		defer cancel()
		if err := s.watcher.Watch(ctx, address); err != nil {
			s.log.Warn("wallet watch registration failed", slog.String("wallet", address), slog.Any("error", err))
		}
	}()
}

// Wait blocks until background registrations finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Get returns an existing identity by normalized phone.
func (s *Service) Get(ctx context.Context, phoneNumber string) (Identity, error) {
	return s.store.Get(ctx, phoneNumber)
}

// FindByWallet returns the identity owning address.
func (s *Service) FindByWallet(ctx context.Context, address string) (Identity, error) {
	if !wallet.ValidAddress(address) {
		return Identity{}, ErrNotFound
	}
	return s.store.FindByWallet(ctx, wallet.Canonical(address))
}

// Keypair unseals the identity's wallet key.
func (s *Service) Keypair(id Identity) (wallet.Keypair, error) {
	kp, err := s.sealer.OpenKeypair(id.SealedKey, id.WalletAddress)
	if err != nil {
		return wallet.Keypair{}, xerrors.Wrap(xerrors.CodeUnknown, err, "open wallet key")
	}
	return kp, nil
}

// SetLanguage stores a supported language code.
func (s *Service) SetLanguage(ctx context.Context, phoneNumber, lang string) error {
	return s.store.UpdateLanguage(ctx, phoneNumber, lang)
}

// SetPIN hashes and stores pin. The lockout is cleared.
func (s *Service) SetPIN(ctx context.Context, phoneNumber, pin string) error {
	hash, err := hashPIN(pin)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePIN(ctx, phoneNumber, hash); err != nil {
		return err
	}
	if err := s.store.UpdateLockout(ctx, phoneNumber, time.Time{}); err != nil {
		return err
	}
	logger.Audit().Info("pin set", logger.Phone(phoneNumber))
	return nil
}

// VerifyPIN compares pin with the stored hash.
func (s *Service) VerifyPIN(ctx context.Context, phoneNumber, pin string) (bool, error) {
	id, err := s.store.Get(ctx, phoneNumber)
	if err != nil {
		return false, err
	}
	return verifyPIN(id.PINHash, pin), nil
}

// Lock locks the identity out of step-up confirmation for LockoutDuration.
func (s *Service) Lock(ctx context.Context, phoneNumber string) error {
	until := s.now().Add(LockoutDuration).UTC()
	if err := s.store.UpdateLockout(ctx, phoneNumber, until); err != nil {
		return err
	}
	logger.Audit().Warn("pin lockout", logger.Phone(phoneNumber), slog.Time("until", until))
	return nil
}

// LockoutRemaining returns how long the identity stays locked, zero when
// not locked.
func (s *Service) LockoutRemaining(ctx context.Context, phoneNumber string) (time.Duration, error) {
	id, err := s.store.Get(ctx, phoneNumber)
	if err != nil {
		return 0, err
	}
	if id.LockedUntil.IsZero() {
		return 0, nil
	}
	remaining := id.LockedUntil.Sub(s.now())
	if remaining <= 0 {
		return 0, nil
	}
	return remaining, nil
}

// SaveContact stores or overwrites name for owner.
func (s *Service) SaveContact(ctx context.Context, owner, name, rawPhone string) (Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Contact{}, xerrors.New(xerrors.CodeInvalidArgument, "contact name is empty")
	}
	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return Contact{}, ErrInvalidIdentifier
	}
	c := Contact{Owner: owner, Name: name, Phone: normalized, CreatedAt: s.now().UTC()}
	if err := s.store.SaveContact(ctx, c); err != nil {
		return Contact{}, err
	}
	return c, nil
}

// DeleteContact removes name and reports whether it existed.
func (s *Service) DeleteContact(ctx context.Context, owner, name string) (bool, error) {
	return s.store.DeleteContact(ctx, owner, name)
}

// ListContacts returns owner's contacts sorted by name.
func (s *Service) ListContacts(ctx context.Context, owner string) ([]Contact, error) {
	return s.store.ListContacts(ctx, owner)
}

// ResolveRecipient turns a phone number or contact name into an identity,
// creating the recipient on first mention.
func (s *Service) ResolveRecipient(ctx context.Context, owner, ref string) (Identity, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Identity{}, ErrUnknownRecipient
	}
	if looksLikePhone(ref) {
		id, _, err := s.GetOrCreate(ctx, ref)
		if xerrors.Is(err, ErrInvalidIdentifier) {
			return Identity{}, ErrUnknownRecipient
		}
		return id, err
	}
	c, err := s.store.GetContact(ctx, owner, ref)
	if xerrors.Is(err, ErrContactNotFound) {
		return Identity{}, ErrUnknownRecipient
	}
	if err != nil {
		return Identity{}, err
	}
	id, _, err := s.GetOrCreate(ctx, c.Phone)
	return id, err
}

func looksLikePhone(ref string) bool {
	ref = strings.TrimPrefix(ref, "whatsapp:")
	digits := 0
	for _, r := range ref {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits > 0
}
