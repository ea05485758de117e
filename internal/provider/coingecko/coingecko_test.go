package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "ethereum", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3120.45}}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)
	price, ok, err := client.Price(context.Background(), "eth")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.RequireFromString("3120.45")), "unexpected price %s", price)

	_, ok, err = client.Price(context.Background(), "DOGE")
	assert.NoError(t, err)
	assert.False(t, ok, "unknown symbols report ok=false")
}
