package helius

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCreatesThenUpdates(t *testing.T) {
	var creates, updates int
	var lastAddresses []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("api-key"))
		var body struct {
			AccountAddresses []string `json:"accountAddresses"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		lastAddresses = body.AccountAddresses
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/webhooks":
			creates++
			_, _ = w.Write([]byte(`{"webhookID":"wh-1"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/webhooks/wh-1":
			updates++
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := New(srv.URL, "k", "https://hushpay.example/webhook/transfers")
	require.NoError(t, err)
	for _, addr := range []string{"0xa", "0xb"} {
		require.NoError(t, client.Watch(context.Background(), addr), "watch %s", addr)
	}
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, updates)
	assert.Len(t, lastAddresses, 2, "the update carries every address")
}
