package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hushpay/internal/alerts"
	"hushpay/internal/chatlog"
	xerrors "hushpay/internal/errors"
	"hushpay/internal/identity"
	"hushpay/internal/intent"
	"hushpay/internal/ledger"
	"hushpay/internal/money"
	"hushpay/internal/recurring"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeInitializationFailure, xerrors.CodeOf(err))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.runMigrations(context.Background()))
	assert.Equal(t, "sqlite", db.Dialect())
}

func TestIdentityCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Identities()
	created := time.UnixMilli(1_700_000_000_000).UTC()

	first, ok, err := store.Create(ctx, identity.Identity{
		Phone: "+15550001111", WalletAddress: "0xaaa", SealedKey: "sealed-1", Language: "en", CreatedAt: created,
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0xaaa", first.WalletAddress)

	second, ok, err := store.Create(ctx, identity.Identity{
		Phone: "+15550001111", WalletAddress: "0xbbb", SealedKey: "sealed-2", Language: "es",
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "0xaaa", second.WalletAddress)
	assert.Equal(t, created, second.CreatedAt)

	byWallet, err := store.FindByWallet(ctx, "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", byWallet.Phone)

	_, err = store.Get(ctx, "+15559999999")
	assert.True(t, errors.Is(err, identity.ErrNotFound))
}

func TestIdentityUpdates(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Identities()
	_, _, err := store.Create(ctx, identity.Identity{Phone: "+15550001111", WalletAddress: "0xaaa", SealedKey: "s", Language: "en"})
	require.NoError(t, err)

	until := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Millisecond)
	require.NoError(t, store.UpdateLanguage(ctx, "+15550001111", "fr"))
	require.NoError(t, store.UpdatePIN(ctx, "+15550001111", "hash"))
	require.NoError(t, store.UpdateLockout(ctx, "+15550001111", until))
	// same value again must not look like a missing row
	require.NoError(t, store.UpdateLanguage(ctx, "+15550001111", "fr"))

	got, err := store.Get(ctx, "+15550001111")
	require.NoError(t, err)
	assert.Equal(t, "fr", got.Language)
	assert.Equal(t, "hash", got.PINHash)
	assert.True(t, got.LockedUntil.Equal(until))

	require.NoError(t, store.UpdateLockout(ctx, "+15550001111", time.Time{}))
	got, err = store.Get(ctx, "+15550001111")
	require.NoError(t, err)
	assert.True(t, got.LockedUntil.IsZero())

	err = store.UpdatePIN(ctx, "+15559999999", "hash")
	assert.True(t, errors.Is(err, identity.ErrNotFound))
}

func TestContactsOverwriteCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Identities()
	owner := "+15550001111"

	require.NoError(t, store.SaveContact(ctx, identity.Contact{Owner: owner, Name: "Mom", Phone: "+15550002222"}))
	require.NoError(t, store.SaveContact(ctx, identity.Contact{Owner: owner, Name: "mom", Phone: "+15550003333"}))
	require.NoError(t, store.SaveContact(ctx, identity.Contact{Owner: owner, Name: "Alice", Phone: "+15550004444"}))

	c, err := store.GetContact(ctx, owner, "MOM")
	require.NoError(t, err)
	assert.Equal(t, "+15550003333", c.Phone)

	list, err := store.ListContacts(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alice", list[0].Name)

	removed, err := store.DeleteContact(ctx, owner, "Mom")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.DeleteContact(ctx, owner, "Mom")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = store.GetContact(ctx, owner, "mom")
	assert.True(t, errors.Is(err, identity.ErrContactNotFound))
}

func TestMessagesRecentWindow(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Messages()
	for i := 0; i < 25; i++ {
		role := chatlog.RoleUser
		if i%2 == 1 {
			role = chatlog.RoleAssistant
		}
		require.NoError(t, store.Append(ctx, chatlog.Message{Identity: "+15550001111", Role: role, Text: fmt.Sprintf("m%d", i)}))
	}
	require.NoError(t, store.Append(ctx, chatlog.Message{Identity: "+15550002222", Role: chatlog.RoleUser, Text: "other"}))

	recent, err := store.Recent(ctx, "+15550001111", chatlog.DefaultDepth)
	require.NoError(t, err)
	require.Len(t, recent, chatlog.DefaultDepth)
	assert.Equal(t, "m5", recent[0].Text)
	assert.Equal(t, "m24", recent[len(recent)-1].Text)
	assert.Equal(t, chatlog.RoleUser, recent[len(recent)-1].Role)
}

func TestTransferSettleOnce(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Transfers()
	tr := ledger.Transfer{
		ID: "t-1", Sender: "+15550001111", Recipient: "+15550002222",
		Amount: money.MustParse("1.5"), Token: "ETH", Kind: ledger.KindSend,
	}
	require.NoError(t, store.Create(ctx, tr))
	err := store.Create(ctx, tr)
	assert.Equal(t, xerrors.CodeConflict, xerrors.CodeOf(err))

	require.NoError(t, store.Settle(ctx, "t-1", ledger.StatusConfirmed, "0xabc", ""))
	err = store.Settle(ctx, "t-1", ledger.StatusFailed, "", "late")
	assert.True(t, errors.Is(err, ledger.ErrAlreadySettled))
	err = store.Settle(ctx, "t-404", ledger.StatusFailed, "", "x")
	assert.True(t, errors.Is(err, ledger.ErrNotFound))
	err = store.Settle(ctx, "t-1", ledger.StatusPending, "", "")
	assert.True(t, errors.Is(err, ledger.ErrInvalidTerminal))

	got, err := store.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusConfirmed, got.Status)
	assert.Equal(t, "0xabc", got.TxRef)
	assert.Equal(t, money.MustParse("1.5"), got.Amount)
}

func TestTransferListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Transfers()
	base := time.UnixMilli(1_700_000_000_000).UTC()
	for i := 0; i < 7; i++ {
		sender, recipient := "+15550001111", "+15550002222"
		if i%2 == 1 {
			sender, recipient = recipient, sender
		}
		require.NoError(t, store.Create(ctx, ledger.Transfer{
			ID: fmt.Sprintf("t-%d", i), Sender: sender, Recipient: recipient,
			Amount: money.Unit, Token: "ETH", Kind: ledger.KindSend, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	list, err := store.ListForIdentity(ctx, "+15550001111", 5)
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, "t-6", list[0].ID)
	assert.Equal(t, "t-2", list[4].ID)
	assert.Equal(t, ledger.StatusPending, list[0].Status)
}

func TestRecurringLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Recurring()
	now := time.UnixMilli(1_700_000_000_000).UTC()
	a := recurring.Action{
		ID: "r-1", Sender: "+15550001111", Recipient: "+15550002222",
		Amount: money.Unit, Token: "ETH", Frequency: intent.Weekly,
		NextRunAt: now, Active: true, CreatedAt: now,
	}
	require.NoError(t, store.Create(ctx, a))

	due, err := store.Due(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, intent.Weekly, due[0].Frequency)

	next := recurring.Advance(now, intent.Weekly)
	require.NoError(t, store.Reschedule(ctx, "r-1", now, next))
	err = store.Reschedule(ctx, "r-1", now, next.Add(time.Hour))
	assert.True(t, errors.Is(err, recurring.ErrStale))
	err = store.Reschedule(ctx, "r-1", next, now)
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	due, err = store.Due(ctx, now.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	n, err := store.Deactivate(ctx, "+15550001111", "+15550002222")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	active, err := store.ListActive(ctx, "+15550001111")
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := store.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.True(t, got.NextRunAt.Equal(next))
}

func TestAlertReplaceSameToken(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).PriceAlerts()
	now := time.Now().UTC()

	require.NoError(t, store.Replace(ctx, alerts.Alert{
		ID: "a-1", Identity: "+15550001111", Token: "eth", Condition: intent.Above,
		TargetPrice: decimal.RequireFromString("3000"), Active: true, CreatedAt: now,
	}))
	require.NoError(t, store.Replace(ctx, alerts.Alert{
		ID: "a-2", Identity: "+15550001111", Token: "ETH", Condition: intent.Below,
		TargetPrice: decimal.RequireFromString("2500.5"), Active: true, CreatedAt: now.Add(time.Second),
	}))
	require.NoError(t, store.Replace(ctx, alerts.Alert{
		ID: "a-3", Identity: "+15550001111", Token: "SOL", Condition: intent.Above,
		TargetPrice: decimal.RequireFromString("200"), Active: true, CreatedAt: now.Add(2 * time.Second),
	}))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a-2", active[0].ID)
	assert.True(t, active[0].TargetPrice.Equal(decimal.RequireFromString("2500.5")))
	assert.Equal(t, intent.Below, active[0].Condition)

	require.NoError(t, store.Deactivate(ctx, "a-2"))
	active, err = store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a-3", active[0].ID)
}
