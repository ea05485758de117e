// Package helius registers wallets for enhanced transfer webhooks.
package helius

import (
	"context"
	"strings"
	"sync"

	"hushpay/internal/provider"
	"hushpay/internal/provider/httpapi"
)

const DefaultURL = "https://api.helius.xyz/v0"

// Client implements provider.AddressWatcher. The first Watch creates the
// webhook; later calls update its address list.
type Client struct {
	api        *httpapi.Client
	webhookURL string
	authHeader string

	mu        sync.Mutex
	webhookID string
	addresses []string
}

// New returns a watcher that points the provider at callbackURL. An empty
// apiKey disables it.
func New(baseURL, apiKey, callbackURL string, opts ...httpapi.Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return &Client{}, nil
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultURL
	}
	api, err := httpapi.New(baseURL, append(opts, httpapi.WithQueryParam("api-key", apiKey))...)
	if err != nil {
		return nil, err
	}
	return &Client{api: api, webhookURL: callbackURL}, nil
}

// WithAuthHeader makes the provider send secret as the Authorization header
// on every delivery.
func (c *Client) WithAuthHeader(secret string) *Client {
	c.authHeader = secret
	return c
}

type createWebhook struct {
	WebhookURL       string   `json:"webhookURL"`
	TransactionTypes []string `json:"transactionTypes"`
	AccountAddresses []string `json:"accountAddresses"`
	WebhookType      string   `json:"webhookType"`
	AuthHeader       string   `json:"authHeader,omitempty"`
}

// Watch holds the lock across the call so concurrent registrations do not
// create two webhooks.
func (c *Client) Watch(ctx context.Context, address string) error {
	if c.api == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	addresses := append(append([]string(nil), c.addresses...), address)
	if c.webhookID == "" {
		var out struct {
			WebhookID string `json:"webhookID"`
		}
		err := c.api.PostJSON(ctx, "/webhooks", createWebhook{
			WebhookURL:       c.webhookURL,
			TransactionTypes: []string{"TRANSFER"},
			AccountAddresses: addresses,
			WebhookType:      "enhanced",
			AuthHeader:       c.authHeader,
		}, &out)
		if err != nil {
			return provider.Failed("helius", err)
		}
		c.webhookID = out.WebhookID
	} else {
		err := c.api.PutJSON(ctx, "/webhooks/"+c.webhookID, map[string][]string{"accountAddresses": addresses}, nil)
		if err != nil {
			return provider.Failed("helius", err)
		}
	}
	c.addresses = addresses
	return nil
}

var _ provider.AddressWatcher = (*Client)(nil)
