package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hushpay/internal/provider"
)

func TestNotifyWhatsAppPrefixesNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Accounts/AC1/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC1", user)
		assert.Equal(t, "secret", pass)
		if !assert.NoError(t, r.ParseForm()) {
			return
		}
		assert.Equal(t, "whatsapp:+15550001111", r.Form.Get("To"))
		assert.Equal(t, "whatsapp:+15557770000", r.Form.Get("From"))
		assert.Equal(t, "hi", r.Form.Get("Body"))
		_, _ = w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, AccountSID: "AC1", AuthToken: "secret", WhatsAppNumber: "+15557770000"})
	require.NoError(t, err)
	require.NoError(t, client.Notify(context.Background(), "+15550001111", provider.ChannelWhatsApp, "hi"))
}

func TestNotifyUnconfigured(t *testing.T) {
	client, _ := New(Config{})
	err := client.Notify(context.Background(), "+15550001111", provider.ChannelSMS, "hi")
	assert.Error(t, err, "not configured")
}
