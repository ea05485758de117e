package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/wallet"
)

type stubWatcher struct {
	calls atomic.Int32
	err   error
}

func (w *stubWatcher) Watch(context.Context, string) error {
	w.calls.Add(1)
	return w.err
}

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	sealer, err := wallet.NewSealer(strings.Repeat("s", 32))
	require.NoError(t, err)
	return NewService(NewMemoryStore(), sealer, opts...)
}

func TestGetOrCreateRejectsMalformedPhone(t *testing.T) {
	svc := newService(t)
	for _, raw := range []string{"", "12345", "+12ab4567890", "+1234567890123456"} {
		_, _, err := svc.GetOrCreate(context.Background(), raw)
		assert.True(t, xerrors.Is(err, ErrInvalidIdentifier), "GetOrCreate(%q) error = %v", raw, err)
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	watcher := &stubWatcher{err: errors.New("notifier down")}
	svc := newService(t, WithWatcher(watcher))
	ctx := context.Background()

	first, isNew, err := svc.GetOrCreate(ctx, "whatsapp:+34 600 123 456")
	require.NoError(t, err)
	require.True(t, isNew)
	assert.Equal(t, "+34600123456", first.Phone)
	assert.Equal(t, "es", first.Language)

	second, isNew, err := svc.GetOrCreate(ctx, "+34600123456")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.WalletAddress, second.WalletAddress, "wallet must never rotate")
	svc.Wait()
	assert.EqualValues(t, 1, watcher.calls.Load(), "one watch registration")

	kp, err := svc.Keypair(second)
	require.NoError(t, err)
	assert.Equal(t, first.WalletAddress, kp.Address)
	byWallet, err := svc.FindByWallet(ctx, strings.ToLower(first.WalletAddress))
	require.NoError(t, err)
	assert.Equal(t, first.Phone, byWallet.Phone)
}

func TestConcurrentCreateYieldsOneWallet(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	wallets := make([]string, 8)
	for i := range wallets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, _, err := svc.GetOrCreate(ctx, "+15551234567")
			if !assert.NoError(t, err) {
				return
			}
			wallets[i] = id.WalletAddress
		}(i)
	}
	wg.Wait()
	for _, w := range wallets {
		require.Equal(t, wallets[0], w, "concurrent creators disagree: %v", wallets)
	}
}

func TestPINLifecycle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	svc := newService(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	id, _, _ := svc.GetOrCreate(ctx, "+15551234567")

	err := svc.SetPIN(ctx, id.Phone, "12a4")
	assert.True(t, xerrors.Is(err, ErrInvalidPIN), "got %v", err)
	require.NoError(t, svc.SetPIN(ctx, id.Phone, "4821"))
	ok, _ := svc.VerifyPIN(ctx, id.Phone, "4821")
	assert.True(t, ok, "correct pin rejected")
	ok, _ = svc.VerifyPIN(ctx, id.Phone, "1111")
	assert.False(t, ok, "wrong pin accepted")

	require.NoError(t, svc.Lock(ctx, id.Phone))
	left, _ := svc.LockoutRemaining(ctx, id.Phone)
	assert.Equal(t, LockoutDuration, left)
	now = now.Add(LockoutDuration)
	left, _ = svc.LockoutRemaining(ctx, id.Phone)
	assert.Zero(t, left, "lockout has elapsed")
}

func TestContactsAndRecipientResolution(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	owner, _, _ := svc.GetOrCreate(ctx, "+15551234567")

	_, err := svc.SaveContact(ctx, owner.Phone, "Mom", "+2348012345678")
	require.NoError(t, err)
	_, err = svc.SaveContact(ctx, owner.Phone, "mom", "+2348099999999")
	require.NoError(t, err)
	contacts, _ := svc.ListContacts(ctx, owner.Phone)
	require.Len(t, contacts, 1, "saving an existing name overwrites")
	assert.Equal(t, "+2348099999999", contacts[0].Phone)

	recipient, err := svc.ResolveRecipient(ctx, owner.Phone, "MOM")
	require.NoError(t, err)
	assert.Equal(t, "+2348099999999", recipient.Phone)
	recipient, err = svc.ResolveRecipient(ctx, owner.Phone, "+44 7700 900123")
	require.NoError(t, err)
	assert.Equal(t, "+447700900123", recipient.Phone)
	_, err = svc.ResolveRecipient(ctx, owner.Phone, "dad")
	assert.True(t, xerrors.Is(err, ErrUnknownRecipient), "unknown name: %v", err)
	_, err = svc.ResolveRecipient(ctx, owner.Phone, "123")
	assert.True(t, xerrors.Is(err, ErrUnknownRecipient), "short number: %v", err)

	deleted, _ := svc.DeleteContact(ctx, owner.Phone, "Mom")
	assert.True(t, deleted)
}
