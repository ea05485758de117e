package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hushpay/internal/conversation"
	"hushpay/internal/identity"
	"hushpay/internal/intent"
	"hushpay/internal/money"
	"hushpay/internal/provider"
	"hushpay/internal/stepup"
)

type inbound struct {
	from, text string
	channel    provider.Channel
}

type incoming struct {
	address, token, from string
	amount               money.Amount
}

type fakeConversations struct {
	mu       sync.Mutex
	reply    string
	err      error
	inbound  []inbound
	resumed  []string
	pinSets  []string
	incoming []incoming
	result   conversation.StepUpResult
}

func (f *fakeConversations) HandleInboundMessage(_ context.Context, from, text string, ch provider.Channel) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, inbound{from, text, ch})
	return f.reply, f.err
}

func (f *fakeConversations) ResumeWithPIN(_ context.Context, token, pin string) (conversation.StepUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed = append(f.resumed, token+":"+pin)
	return f.result, f.err
}

func (f *fakeConversations) SetPINWithToken(_ context.Context, token, pin string) (conversation.StepUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinSets = append(f.pinSets, token+":"+pin)
	return f.result, f.err
}

func (f *fakeConversations) HandleIncomingTransfer(_ context.Context, address string, amount money.Amount, token, from string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incoming = append(f.incoming, incoming{address, token, from, amount})
	return nil
}

type fakeLinks map[string]stepup.Token

func (f fakeLinks) Lookup(_ context.Context, token string) (stepup.Token, bool, error) {
	t, ok := f[token]
	return t, ok, nil
}

type sent struct {
	to, text string
	channel  provider.Channel
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeNotifier) Notify(_ context.Context, to string, ch provider.Channel, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{to, text, ch})
	return nil
}

func inline(fn func()) { fn() }

func newTestServer(conv *fakeConversations, links fakeLinks, out *fakeNotifier, opts ...Option) http.Handler {
	opts = append([]Option{WithAsync(inline)}, opts...)
	return NewServer(":0", conv, links, out, opts...).Handler()
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSMSRepliesWithEscapedTwiML(t *testing.T) {
	conv := &fakeConversations{reply: "1 < 2 & done"}
	h := newTestServer(conv, nil, &fakeNotifier{})

	rec := postForm(t, h, "/sms", url.Values{"From": {"+15551234567"}, "Body": {"  balance "}}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/xml")
	assert.Equal(t, "<Response><Message>1 &lt; 2 &amp; done</Message></Response>", rec.Body.String())
	require.Len(t, conv.inbound, 1)
	assert.Equal(t, inbound{"+15551234567", "balance", provider.ChannelSMS}, conv.inbound[0])
}

func TestSMSFailureAnswersGenerically(t *testing.T) {
	conv := &fakeConversations{err: assert.AnError}
	h := newTestServer(conv, nil, &fakeNotifier{})

	rec := postForm(t, h, "/sms", url.Values{"From": {"+15551234567"}, "Body": {"hi"}}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong. Try again.")
}

func TestSMSInvalidSender(t *testing.T) {
	conv := &fakeConversations{err: identity.ErrInvalidIdentifier}
	h := newTestServer(conv, nil, &fakeNotifier{})

	rec := postForm(t, h, "/sms", url.Values{"From": {"abc"}, "Body": {"hi"}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWhatsAppRepliesThroughQueue(t *testing.T) {
	conv := &fakeConversations{reply: "hello"}
	out := &fakeNotifier{}
	h := newTestServer(conv, nil, out)

	rec := postForm(t, h, "/whatsapp", url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"hi"}}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	require.Len(t, conv.inbound, 1)
	assert.Equal(t, "+15551234567", conv.inbound[0].from)
	assert.Equal(t, provider.ChannelWhatsApp, conv.inbound[0].channel)
	require.Len(t, out.sent, 1)
	assert.Equal(t, sent{"+15551234567", "hello", provider.ChannelWhatsApp}, out.sent[0])
}

func TestTwilioSignatureRequired(t *testing.T) {
	conv := &fakeConversations{reply: "ok"}
	h := newTestServer(conv, nil, &fakeNotifier{}, WithTwilioSignatures("secret-token", "https://pay.example"))
	form := url.Values{"From": {"+15551234567"}, "Body": {"hi"}}

	rec := postForm(t, h, "/sms", form, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, conv.inbound)

	signer := &twilioSigner{authToken: "secret-token"}
	sig := signer.sign("https://pay.example/sms", form)
	rec = postForm(t, h, "/sms", form, http.Header{"X-Twilio-Signature": {sig}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, conv.inbound, 1)
}

func executeToken() stepup.Token {
	return stepup.Token{
		Identity: "+15551234567",
		Purpose:  stepup.PurposeExecute,
		Intent:   intent.Envelope{Intent: intent.SendPayment{Amount: money.MustParse("1"), Token: "ETH", Recipient: "+15557654321"}},
	}
}

func TestConfirmPage(t *testing.T) {
	links := fakeLinks{
		"tok-exec": executeToken(),
		"tok-pin":  {Identity: "+15551234567", Purpose: stepup.PurposeSetPIN},
	}
	h := newTestServer(&fakeConversations{}, links, &fakeNotifier{})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/confirm/tok-exec")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Send 1 ETH to +15557654321")
	assert.Contains(t, rec.Body.String(), `name="pin"`)
	assert.NotContains(t, rec.Body.String(), "pin_confirm")

	rec = get("/confirm/tok-pin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pin_confirm")

	rec = get("/confirm/missing")
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Contains(t, rec.Body.String(), "Link expired or invalid")
}

func TestConfirmSubmitExecute(t *testing.T) {
	conv := &fakeConversations{result: conversation.StepUpResult{Retry: true, Message: "Wrong PIN. 2 attempts left."}}
	h := newTestServer(conv, fakeLinks{"tok-exec": executeToken()}, &fakeNotifier{})

	rec := postForm(t, h, "/confirm/tok-exec", url.Values{"pin": {"0000"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Wrong PIN. 2 attempts left.")
	assert.Contains(t, rec.Body.String(), "<form")

	conv.result = conversation.StepUpResult{OK: true, Message: "Sent"}
	rec = postForm(t, h, "/confirm/tok-exec", url.Values{"pin": {"1234"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sent")
	assert.NotContains(t, rec.Body.String(), "<form")
	assert.Equal(t, []string{"tok-exec:0000", "tok-exec:1234"}, conv.resumed)
	assert.Empty(t, conv.pinSets)
}

func TestConfirmSubmitSetPIN(t *testing.T) {
	conv := &fakeConversations{result: conversation.StepUpResult{OK: true, Message: "PIN set"}}
	h := newTestServer(conv, fakeLinks{"tok-pin": {Identity: "+15551234567", Purpose: stepup.PurposeSetPIN}}, &fakeNotifier{})

	rec := postForm(t, h, "/confirm/tok-pin", url.Values{"pin": {"1234"}, "pin_confirm": {"4321"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "do not match")
	assert.Empty(t, conv.pinSets)

	rec = postForm(t, h, "/confirm/tok-pin", url.Values{"pin": {"1234"}, "pin_confirm": {"1234"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PIN set")
	assert.Equal(t, []string{"tok-pin:1234"}, conv.pinSets)
	assert.Empty(t, conv.resumed)
}

func TestConfirmSubmitExpired(t *testing.T) {
	conv := &fakeConversations{}
	h := newTestServer(conv, fakeLinks{}, &fakeNotifier{})

	rec := postForm(t, h, "/confirm/gone", url.Values{"pin": {"1234"}}, nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Empty(t, conv.resumed)
}

const transferPayload = `[
  {"type":"TRANSFER","signature":"sig1","nativeTransfers":[
    {"fromUserAccount":"0xsender000000000000","toUserAccount":"0xabc","amount":1500000000},
    {"fromUserAccount":"0xsender000000000000","toUserAccount":"0xdef","amount":0}
  ]},
  {"type":"SWAP","nativeTransfers":[{"toUserAccount":"0xabc","amount":5}]}
]`

func TestTransferWebhookNotifiesRecipients(t *testing.T) {
	conv := &fakeConversations{}
	h := newTestServer(conv, nil, &fakeNotifier{}, WithWebhookSecret("s3cret"), WithNativeToken("ETH"))

	req := httptest.NewRequest(http.MethodPost, "/webhook/transfers", strings.NewReader(transferPayload))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, conv.incoming)

	req = httptest.NewRequest(http.MethodPost, "/webhook/transfers", strings.NewReader(transferPayload))
	req.Header.Set("Authorization", "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, conv.incoming, 1)
	assert.Equal(t, incoming{"0xabc", "ETH", "0xsender000000000000", money.MustParse("1.5")}, conv.incoming[0])
}

func TestTransferWebhookAcceptsSingleEvent(t *testing.T) {
	conv := &fakeConversations{}
	h := newTestServer(conv, nil, &fakeNotifier{})

	body := `{"type":"TRANSFER","nativeTransfers":[{"toUserAccount":"0xabc","amount":1000}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/transfers", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, conv.incoming, 1)

	req = httptest.NewRequest(http.MethodPost, "/webhook/transfers", strings.NewReader("not json"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(&fakeConversations{reply: "ok"}, nil, &fakeNotifier{})
	postForm(t, h, "/sms", url.Values{"From": {"+15551234567"}, "Body": {"hi"}}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hushpay_http_requests_total{code="200",handler="/sms",method="POST"}`)
}
