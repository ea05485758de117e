package conversation

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

	"hushpay/internal/alerts"
	"hushpay/internal/chatlog"
	"hushpay/internal/executor"
	"hushpay/internal/identity"
	"hushpay/internal/intent"
	"hushpay/internal/keyed"
	"hushpay/internal/keylock"
	"hushpay/internal/ledger"
	"hushpay/internal/llm"
	"hushpay/internal/money"
	"hushpay/internal/pending"
	"hushpay/internal/provider"
	"hushpay/internal/ratelimit"
	"hushpay/internal/recurring"
	"hushpay/internal/stepup"
	"hushpay/internal/wallet"
)

const (
	alice = "+15550000001"
	bob   = "+15550000002"
	carol = "+15550000003"
)

// scripted answers by exact message text; anything else is chat.
type scripted struct {
	mu    sync.Mutex
	byMsg map[string]*llm.Response
	calls int
}

func (s *scripted) Interpret(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if resp, ok := s.byMsg[req.Message]; ok {
		return resp, nil
	}
	return &llm.Response{Reply: "chat: " + req.Message}, nil
}

func (s *scripted) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeTransfers struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls int
}

func (f *fakeTransfers) Transfer(_ context.Context, req provider.TransferRequest) (provider.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[req.To] {
		return provider.TransferResult{}, errors.New("upstream 502")
	}
	return provider.TransferResult{TxRef: "0xfeedface00000000000000000000000000000001"}, nil
}

func (f *fakeTransfers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// countingStore observes identity store reads.
type countingStore struct {
	*identity.MemoryStore
	gets atomic.Int32
}

func (c *countingStore) Get(ctx context.Context, phone string) (identity.Identity, error) {
	c.gets.Add(1)
	return c.MemoryStore.Get(ctx, phone)
}

type env struct {
	engine      *Engine
	ids         *identity.Service
	idStore     *countingStore
	ledger      *ledger.MemoryStore
	pending     *pending.Store
	interpreter *scripted
	transfers   *fakeTransfers
	clock       *clock
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newEnv(t *testing.T) *env {
	t.Helper()
	c := &clock{t: time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)}
	sealer, err := wallet.NewSealer(strings.Repeat("e", 32))
	require.NoError(t, err)

	idStore := &countingStore{MemoryStore: identity.NewMemoryStore()}
	ids := identity.NewService(idStore, sealer, identity.WithClock(c.now))
	book := ledger.NewMemoryStore()
	pend := pending.NewStore(
		keyed.NewMemoryStore[pending.Action](keyed.WithClock(c.now)),
		keyed.NewMemoryStore[pending.Failure](keyed.WithClock(c.now)),
		pending.WithClock(c.now),
	)
	gate := stepup.New(
		keyed.NewMemoryStore[stepup.Token](keyed.WithClock(c.now)),
		ids, "https://pay.example",
		stepup.WithIndex(keyed.NewMemoryStore[string](keyed.WithClock(c.now))),
		stepup.WithClock(c.now),
	)
	transfers := &fakeTransfers{fail: map[string]bool{}}
	recur := recurring.NewMemoryStore()
	exec := executor.New(executor.Dependencies{
		Identities: ids,
		Ledger:     book,
		Pending:    pend,
		Recurring:  recur,
		Transfers:  transfers,
	}, executor.WithClock(c.now))
	interp := &scripted{byMsg: map[string]*llm.Response{}}

	engine := New(Dependencies{
		Identities:  ids,
		Chat:        chatlog.NewMemoryStore(),
		Pending:     pend,
		Gate:        gate,
		Executor:    exec,
		Interpreter: interp,
		Limiter:     ratelimit.New(keyed.NewMemoryStore[ratelimit.Window](keyed.WithClock(c.now)), ratelimit.WithClock(c.now)),
		Locks:       keylock.New(),
		Ledger:      book,
		Recurring:   recur,
		Alerts:      alerts.NewMemoryStore(),
	}, WithClock(c.now))

	e := &env{engine: engine, ids: ids, idStore: idStore, ledger: book, pending: pend, interpreter: interp, transfers: transfers, clock: c}
	// first contact only produces the welcome message
	e.say(t, alice, "hi")
	return e
}

func (e *env) say(t *testing.T, from, text string) string {
	t.Helper()
	reply, err := e.engine.HandleInboundMessage(context.Background(), from, text, provider.ChannelSMS)
	require.NoError(t, err)
	// keep the rate limiter out of the way unless a test is about it
	e.clock.advance(7 * time.Second)
	return reply
}

func (e *env) script(text string, in intent.Intent, reply string) {
	e.interpreter.mu.Lock()
	e.interpreter.byMsg[text] = &llm.Response{Reply: reply, Intent: in}
	e.interpreter.mu.Unlock()
}

func (e *env) state(t *testing.T, phone string) State {
	t.Helper()
	s, err := e.engine.State(context.Background(), phone)
	require.NoError(t, err)
	return s
}

func (e *env) transfersOf(t *testing.T, phone string) []ledger.Transfer {
	t.Helper()
	list, err := e.ledger.ListForIdentity(context.Background(), phone, 50)
	require.NoError(t, err)
	return list
}

func TestFirstContactGetsWelcome(t *testing.T) {
	e := newEnv(t)
	reply := e.say(t, bob, "hello")
	assert.Contains(t, reply, "Welcome to HushPay")
	assert.Equal(t, 0, e.interpreter.count(), "welcome does not call the interpreter")
}

func TestInvalidIdentifierIsRejected(t *testing.T) {
	e := newEnv(t)
	_, err := e.engine.HandleInboundMessage(context.Background(), "12ab", "hi", provider.ChannelSMS)
	assert.True(t, errors.Is(err, identity.ErrInvalidIdentifier))
}

func TestSendWithoutPINExecutesOnConfirm(t *testing.T) {
	e := newEnv(t)
	e.script("send 0.5 to bob", intent.SendPayment{Amount: money.MustParse("0.5"), Token: "ETH", Recipient: bob}, "Send 0.5 ETH to bob? Reply YES.")

	reply := e.say(t, alice, "send 0.5 to bob")
	assert.Equal(t, "Send 0.5 ETH to bob? Reply YES.", reply)
	assert.Equal(t, StateAwaitingConfirmation, e.state(t, alice))
	assert.Zero(t, e.transfers.count(), "staging never executes")

	reply = e.say(t, alice, "YES")
	assert.Contains(t, reply, "Sent 0.5 ETH")
	assert.Equal(t, StateIdle, e.state(t, alice))

	history := e.transfersOf(t, alice)
	require.Len(t, history, 1)
	assert.Equal(t, ledger.StatusConfirmed, history[0].Status)
	assert.NotEmpty(t, history[0].TxRef)

	// a second confirmation finds nothing and goes to the interpreter
	reply = e.say(t, alice, "yes")
	assert.Equal(t, "chat: yes", reply)
	assert.Equal(t, 1, e.transfers.count())
}

func TestConfirmWithNothingStagedFallsThrough(t *testing.T) {
	e := newEnv(t)
	reply := e.say(t, alice, "sí")
	assert.Equal(t, "chat: sí", reply)
	assert.Zero(t, e.transfers.count())
}

func TestSecondStagingReplacesFirst(t *testing.T) {
	e := newEnv(t)
	e.script("send 1 to bob", intent.SendPayment{Amount: money.MustParse("1"), Recipient: bob}, "")
	e.script("send 2 to carol", intent.SendPayment{Amount: money.MustParse("2"), Recipient: carol}, "")

	first := e.say(t, alice, "send 1 to bob")
	assert.Contains(t, first, "Send 1 ETH to +15550000002?")
	e.say(t, alice, "send 2 to carol")

	action, ok, err := e.pending.Peek(context.Background(), alice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, intent.Staged(intent.SendPayment{Amount: money.MustParse("2"), Token: "ETH", Recipient: carol}), action.Staged())

	e.say(t, alice, "y")
	history := e.transfersOf(t, alice)
	require.Len(t, history, 1)
	assert.Equal(t, carol, history[0].Recipient)
}

func TestCancel(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, "Nothing to cancel.", e.say(t, alice, "cancel"))

	e.script("send 1 to bob", intent.SendPayment{Amount: money.MustParse("1"), Recipient: bob}, "ok?")
	e.say(t, alice, "send 1 to bob")
	assert.Equal(t, "Cancelled. Nothing was sent.", e.say(t, alice, "N"))
	assert.Equal(t, StateIdle, e.state(t, alice))
	assert.Equal(t, "chat: yes", e.say(t, alice, "yes"))
}

func TestTinyAmountIsNotStaged(t *testing.T) {
	e := newEnv(t)
	e.script("send dust", intent.SendPayment{Amount: money.MustParse("0.0009"), Recipient: bob}, "ok?")
	reply := e.say(t, alice, "send dust")
	assert.Contains(t, reply, "Amount too small")
	assert.Equal(t, StateIdle, e.state(t, alice))
}

func TestCrossChainWithoutAddressReprompts(t *testing.T) {
	e := newEnv(t)
	e.script("bridge", intent.CrossChainSend{Amount: money.MustParse("1"), DestinationChain: "polygon"}, "ok?")
	reply := e.say(t, alice, "bridge")
	assert.Contains(t, reply, "polygon address")
	assert.Equal(t, StateIdle, e.state(t, alice))
}

func TestExpiredPendingActionIsGone(t *testing.T) {
	e := newEnv(t)
	e.script("send 1 to bob", intent.SendPayment{Amount: money.MustParse("1"), Recipient: bob}, "ok?")
	e.say(t, alice, "send 1 to bob")
	e.clock.advance(pending.DefaultTTL)
	assert.Equal(t, StateIdle, e.state(t, alice))
	assert.Equal(t, "chat: yes", e.say(t, alice, "yes"))
	assert.Zero(t, e.transfers.count())
}

func TestFailedSendCanBeRetried(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	recipient, _, err := e.ids.GetOrCreate(ctx, bob)
	require.NoError(t, err)
	e.transfers.fail[recipient.WalletAddress] = true

	e.script("send 1 to bob", intent.SendPayment{Amount: money.MustParse("1"), Recipient: bob}, "ok?")
	e.say(t, alice, "send 1 to bob")
	assert.Contains(t, e.say(t, alice, "yes"), "Reply RETRY")

	e.transfers.fail[recipient.WalletAddress] = false
	assert.Contains(t, e.say(t, alice, "retry"), "Retry Send 1 ETH to +15550000002?")
	assert.Equal(t, StateAwaitingConfirmation, e.state(t, alice))
	assert.Contains(t, e.say(t, alice, "yes"), "Sent 1 ETH")
	assert.Equal(t, "Nothing to retry.", e.say(t, alice, "retry"))

	history := e.transfersOf(t, alice)
	require.Len(t, history, 2)
	assert.Equal(t, ledger.StatusConfirmed, history[0].Status)
	assert.Equal(t, ledger.StatusFailed, history[1].Status)
}

func TestSplitPaymentReportsPerRecipient(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b, _, err := e.ids.GetOrCreate(ctx, carol)
	require.NoError(t, err)
	e.transfers.fail[b.WalletAddress] = true

	e.script("split 100", intent.SplitPayment{Total: money.MustParse("100"), Recipients: []string{bob, carol}}, "Split 100?")
	e.say(t, alice, "split 100")
	reply := e.say(t, alice, "yes")

	assert.Contains(t, reply, "(50 each)")
	assert.Contains(t, reply, "✓ "+bob)
	assert.Contains(t, reply, "✗ "+carol)
	assert.Equal(t, StateIdle, e.state(t, alice))
	assert.Equal(t, "Nothing to retry.", e.say(t, alice, "retry"))
}

func TestStepUpFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.ids.SetPIN(ctx, alice, "4321"))

	e.script("send 1 to bob", intent.SendPayment{Amount: money.MustParse("1"), Recipient: bob}, "ok?")
	e.say(t, alice, "send 1 to bob")
	reply := e.say(t, alice, "yes")
	require.Contains(t, reply, "https://pay.example/confirm/")
	assert.Equal(t, StateAwaitingStepUp, e.state(t, alice))
	assert.Zero(t, e.transfers.count())

	token := reply[strings.Index(reply, "/confirm/")+len("/confirm/"):]
	token = strings.Fields(token)[0]

	res, err := e.engine.ResumeWithPIN(ctx, token, "0000")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.True(t, res.Retry)
	assert.Contains(t, res.Message, "2 attempt(s) left")

	_, err = e.engine.ResumeWithPIN(ctx, token, "1111")
	require.NoError(t, err)
	res, err = e.engine.ResumeWithPIN(ctx, token, "2222")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "Too many failed attempts")

	res, err = e.engine.ResumeWithPIN(ctx, token, "4321")
	require.NoError(t, err)
	assert.False(t, res.OK, "the right pin after the limit must not execute")
	assert.Contains(t, res.Message, "Link expired")
	assert.Zero(t, e.transfers.count())
	assert.Equal(t, StateIdle, e.state(t, alice))

	// Restarting from chat works once the lockout passes.
	e.clock.advance(identity.LockoutDuration)
	e.say(t, alice, "send 1 to bob")
	reply = e.say(t, alice, "yes")
	token = strings.Fields(reply[strings.Index(reply, "/confirm/")+len("/confirm/"):])[0]
	res, err = e.engine.ResumeWithPIN(ctx, token, "4321")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Contains(t, res.Message, "Sent 1 ETH")
	assert.Equal(t, 1, e.transfers.count())
}

func TestSmallAmountSkipsStepUp(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.ids.SetPIN(context.Background(), alice, "4321"))
	e.script("send small", intent.SendPayment{Amount: money.MustParse("0.05"), Recipient: bob}, "ok?")
	e.say(t, alice, "send small")
	assert.Contains(t, e.say(t, alice, "yes"), "Sent 0.05 ETH")
}

func TestSetPINThroughLink(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.script("set pin", intent.SetPIN{}, "")
	reply := e.say(t, alice, "set pin")
	token := strings.Fields(reply[strings.Index(reply, "/confirm/")+len("/confirm/"):])[0]

	res, err := e.engine.SetPINWithToken(ctx, token, "12")
	require.NoError(t, err)
	assert.True(t, res.Retry)

	res, err = e.engine.SetPINWithToken(ctx, token, "5678")
	require.NoError(t, err)
	assert.True(t, res.OK)
	ok, err := e.ids.VerifyPIN(ctx, alice, "5678")
	require.NoError(t, err)
	assert.True(t, ok)

	res, err = e.engine.SetPINWithToken(ctx, token, "5678")
	require.NoError(t, err)
	assert.False(t, res.OK, "set_pin links are single use")
}

func TestRateLimitRejectsEleventhWithoutStoreAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.clock.advance(time.Minute)
	for i := 0; i < 10; i++ {
		_, err := e.engine.HandleInboundMessage(ctx, alice, "hello", provider.ChannelSMS)
		require.NoError(t, err)
	}
	gets := e.idStore.gets.Load()
	calls := e.interpreter.count()

	reply, err := e.engine.HandleInboundMessage(ctx, alice, "hello", provider.ChannelSMS)
	require.NoError(t, err)
	assert.Contains(t, reply, "Too many requests")
	assert.Equal(t, gets, e.idStore.gets.Load(), "rejected request must not touch the identity store")
	assert.Equal(t, calls, e.interpreter.count())

	// the window slides
	e.clock.advance(61 * time.Second)
	reply, err = e.engine.HandleInboundMessage(ctx, alice, "hello", provider.ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, "chat: hello", reply)
}

func TestSyncIntentsReplyWithoutStaging(t *testing.T) {
	e := newEnv(t)
	e.script("save bob", intent.SaveContact{Name: "Bob", Phone: bob}, "")
	e.script("contacts", intent.ListContacts{}, "")
	e.script("espanol", intent.SetLanguage{Language: "Spanish"}, "")
	e.script("receipts", intent.GetReceipts{}, "")

	assert.Equal(t, "✓ Saved Bob ("+bob+").", e.say(t, alice, "save bob"))
	assert.Contains(t, e.say(t, alice, "contacts"), "• Bob: "+bob)
	assert.Equal(t, "No payments yet. Send your first one!", e.say(t, alice, "receipts"))
	e.say(t, alice, "espanol")
	id, err := e.ids.Get(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "es", id.Language)
	assert.Equal(t, StateIdle, e.state(t, alice))

	// contacts resolve for payments
	e.script("pay bob", intent.SendPayment{Amount: money.MustParse("0.2"), Recipient: "bob"}, "")
	e.say(t, alice, "pay bob")
	e.say(t, alice, "sí")
	history := e.transfersOf(t, alice)
	require.Len(t, history, 1)
	assert.Equal(t, bob, history[0].Recipient)
}

func TestConcurrentConfirmationsExecuteOnce(t *testing.T) {
	e := newEnv(t)
	e.script("send 1 to bob", intent.SendPayment{Amount: money.MustParse("1"), Recipient: bob}, "ok?")
	e.say(t, alice, "send 1 to bob")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.engine.HandleInboundMessage(context.Background(), alice, "yes", provider.ChannelSMS)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, e.transfers.count())
}

func linkToken(t *testing.T, reply string) string {
	t.Helper()
	i := strings.Index(reply, "/confirm/")
	require.True(t, i >= 0, reply)
	return strings.Fields(reply[i+len("/confirm/"):])[0]
}

func TestNewStagingRevokesOutstandingLink(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.ids.SetPIN(ctx, alice, "4321"))
	e.script("send 1 to bob", intent.SendPayment{Amount: money.MustParse("1"), Recipient: bob}, "ok?")
	e.script("send 2 to carol", intent.SendPayment{Amount: money.MustParse("2"), Recipient: carol}, "ok?")

	e.say(t, alice, "send 1 to bob")
	first := linkToken(t, e.say(t, alice, "yes"))
	e.say(t, alice, "send 2 to carol")
	second := linkToken(t, e.say(t, alice, "yes"))

	res, err := e.engine.ResumeWithPIN(ctx, first, "4321")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "Link expired")

	res, err = e.engine.ResumeWithPIN(ctx, second, "4321")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Contains(t, res.Message, "Sent 2 ETH")
	assert.Equal(t, 1, e.transfers.count())
}

func TestCancelRevokesOutstandingLink(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.ids.SetPIN(ctx, alice, "4321"))
	e.script("send 1 to bob", intent.SendPayment{Amount: money.MustParse("1"), Recipient: bob}, "ok?")

	e.say(t, alice, "send 1 to bob")
	token := linkToken(t, e.say(t, alice, "yes"))
	require.Equal(t, StateAwaitingStepUp, e.state(t, alice))

	assert.Equal(t, "Cancelled. Nothing was sent.", e.say(t, alice, "no"))
	assert.Equal(t, StateIdle, e.state(t, alice))

	res, err := e.engine.ResumeWithPIN(ctx, token, "4321")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "Link expired")
	assert.Zero(t, e.transfers.count())
}

func TestSplitShareBelowMinimumIsNotStaged(t *testing.T) {
	e := newEnv(t)
	e.script("split dust", intent.SplitPayment{Total: money.MustParse("0.0015"), Recipients: []string{bob, carol}}, "ok?")
	reply := e.say(t, alice, "split dust")
	assert.Contains(t, reply, "Amount too small")
	assert.Equal(t, StateIdle, e.state(t, alice))
	assert.Zero(t, e.transfers.count())
}
