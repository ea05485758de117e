package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hushpay/internal/intent"
	"hushpay/internal/money"
)

func TestParseReplyWithIntent(t *testing.T) {
	content := "```json\n{\"reply\":\"Send 1 ETH to +15550002222?\",\"intent\":{\"action\":\"send_payment\",\"amount\":\"1\",\"token\":\"ETH\",\"recipient\":\"+15550002222\"}}\n```"
	resp, err := ParseReply(content)
	require.NoError(t, err)
	send, ok := resp.Intent.(intent.SendPayment)
	require.True(t, ok, "expected send_payment, got %T", resp.Intent)
	assert.Equal(t, money.Unit, send.Amount)
	assert.Equal(t, "+15550002222", send.Recipient)
	assert.Equal(t, "Send 1 ETH to +15550002222?", resp.Reply)
}

func TestParseReplyChatAndPlainText(t *testing.T) {
	resp, err := ParseReply(`{"reply":"hi there","intent":{"action":"chat"}}`)
	require.NoError(t, err)
	assert.Nil(t, resp.Intent)
	assert.Equal(t, "hi there", resp.Reply)

	resp, err = ParseReply("just words")
	require.NoError(t, err)
	assert.Nil(t, resp.Intent)
	assert.Equal(t, "just words", resp.Reply)

	_, err = ParseReply(`{"reply":"x","intent":{"action":"launch_rocket"}}`)
	assert.Error(t, err, "unknown intent")
	_, err = ParseReply("  ")
	assert.Error(t, err, "empty completion")
}
