// Package shadowwire sends private transfers through the ShadowWire API.
package shadowwire

import (
	"context"
	"strings"

	"hushpay/internal/money"
	"hushpay/internal/provider"
	"hushpay/internal/provider/httpapi"
)

// Client implements provider.Transferer.
type Client struct {
	api *httpapi.Client
}

// New returns a client for baseURL. An empty apiKey yields a client whose
// transfers fail with provider.ErrNotConfigured.
func New(baseURL, apiKey string, opts ...httpapi.Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(baseURL) == "" {
		return &Client{}, nil
	}
	api, err := httpapi.New(baseURL, append(opts, httpapi.WithBearer(apiKey))...)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

type transferRequest struct {
	Sender    string       `json:"sender"`
	Recipient string       `json:"recipient"`
	Amount    money.Amount `json:"amount"`
	Token     string       `json:"token"`
}

type transferResponse struct {
	Signature    string `json:"signature"`
	AmountHidden bool   `json:"amountHidden"`
}

func (c *Client) Transfer(ctx context.Context, req provider.TransferRequest) (provider.TransferResult, error) {
	if c.api == nil {
		return provider.TransferResult{}, provider.ErrNotConfigured
	}
	var out transferResponse
	err := c.api.PostJSON(ctx, "/v1/transfer", transferRequest{
		Sender:    req.From.Address,
		Recipient: req.To,
		Amount:    req.Amount,
		Token:     strings.ToUpper(req.Token),
	}, &out, httpapi.SignedBy(req.From.PrivateKey))
	if err != nil {
		return provider.TransferResult{}, provider.Failed("shadowwire", err)
	}
	return provider.TransferResult{TxRef: out.Signature, AmountHidden: out.AmountHidden}, nil
}

var _ provider.Transferer = (*Client)(nil)
