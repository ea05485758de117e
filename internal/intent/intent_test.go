package intent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hushpay/internal/money"
)

func TestDecodeInterpreterOutput(t *testing.T) {
	in, err := Decode([]byte(`{"action":"send_payment","amount":1,"token":"ETH","recipient":"+15551234567"}`))
	require.NoError(t, err)
	send, ok := in.(SendPayment)
	require.True(t, ok, "got %T", in)
	assert.Equal(t, money.MustParse("1"), send.Amount)
	assert.Equal(t, "+15551234567", send.Recipient)
	assert.True(t, IsStaged(send))

	in, err = Decode([]byte(`{"action":"split_payment","totalAmount":"100","token":"ETH","recipients":["a","b"]}`))
	require.NoError(t, err)
	split := in.(SplitPayment)
	assert.Equal(t, money.MustParse("100"), split.Principal())
	assert.Len(t, split.Recipients, 2)
}

func TestDecodeNonActions(t *testing.T) {
	for _, raw := range []string{``, `null`, `{"action":"chat"}`, `{}`} {
		in, err := Decode([]byte(raw))
		require.NoError(t, err, raw)
		assert.Nil(t, in, raw)
	}
	_, err := Decode([]byte(`{"action":"launch_rocket"}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`{"action":"deposit","amount":"lots"}`))
	assert.Error(t, err)
}

func TestSynchronousKindsAreNotStaged(t *testing.T) {
	for _, in := range []Intent{CheckBalance{}, GetWallet{}, SetPIN{}, PriceAlert{}, PaymentRequest{}, CancelRecurring{}} {
		assert.False(t, IsStaged(in), "%s must not require confirmation", in.Kind())
	}
}

func TestEnvelopePreservesConcreteType(t *testing.T) {
	original := RecurringPayment{Amount: money.MustParse("0.5"), Token: "ETH", Recipient: "mom", Frequency: Weekly}
	data, err := json.Marshal(struct {
		Intent Envelope `json:"intent"`
	}{Envelope{original}})
	require.NoError(t, err)

	var decoded struct {
		Intent Envelope `json:"intent"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded.Intent.Intent)

	empty, err := Encode(GetWallet{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"get_wallet"}`, string(empty))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Send 1 ETH to +15551234567",
		Describe(SendPayment{Amount: money.MustParse("1"), Token: "ETH", Recipient: "+15551234567"}))
	assert.Equal(t, "Send 2 ETH to 0x123456...cdef on polygon",
		Describe(CrossChainSend{Amount: money.MustParse("2"), Token: "ETH", DestinationChain: "polygon",
			DestinationAddress: "0x1234567890abcdef1234567890abcdef1234cdef"}))
}
