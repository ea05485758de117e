package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSONWithBearerUnderBasePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transfer", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": body["value"]})
	}))
	defer srv.Close()

	client, err := New(srv.URL+"/api/", WithHTTPClient(srv.Client()), WithBearer("key"))
	require.NoError(t, err)
	var out struct {
		Echo string `json:"echo"`
	}
	require.NoError(t, client.PostJSON(context.Background(), "/v1/transfer", map[string]string{"value": "x"}, &out))
	assert.Equal(t, "x", out.Echo)
}

func TestGetJSONMergesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("api-key"))
		assert.Equal(t, "ethereum", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL, WithQueryParam("api-key", "k"))
	require.NoError(t, err)
	var out struct{ OK bool }
	require.NoError(t, client.GetJSON(context.Background(), "price", url.Values{"ids": {"ethereum"}}, &out))
	assert.True(t, out.OK)
}

func TestAPIErrorNestedAndFlat(t *testing.T) {
	cases := map[string]string{
		"nested": `{"error":{"code":"LOW_FUNDS","message":"insufficient"}}`,
		"flat":   `{"code":"LOW_FUNDS","message":"insufficient"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(payload))
			}))
			defer srv.Close()

			client, _ := New(srv.URL)
			err := client.PostJSON(context.Background(), "x", nil, nil)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
			assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
			assert.Equal(t, http.StatusUnprocessableEntity, apiErr.HTTPStatus())
			assert.Equal(t, "LOW_FUNDS", apiErr.Code)
			assert.Equal(t, "insufficient", apiErr.Message)
		})
	}
}

func TestSignedByRecoversAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey).Hex()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sig, err := hexutil.Decode(r.Header.Get("X-Wallet-Signature"))
		if !assert.NoError(t, err) {
			return
		}
		pub, err := crypto.SigToPub(accounts.TextHash(body), sig)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, want, crypto.PubkeyToAddress(*pub).Hex())
		assert.Equal(t, want, r.Header.Get("X-Wallet-Address"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, _ := New(srv.URL)
	require.NoError(t, client.PostJSON(context.Background(), "deposit", map[string]int{"amount": 1}, nil, SignedBy(key)))
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("not-a-url")
	assert.Error(t, err)
}
