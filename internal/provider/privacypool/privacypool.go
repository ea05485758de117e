// Package privacypool talks to the shielded pool service used for deposits,
// withdrawals and anonymous sends.
package privacypool

import (
	"context"
	"net/url"
	"strings"

	"hushpay/internal/money"
	"hushpay/internal/provider"
	"hushpay/internal/provider/httpapi"
	"hushpay/internal/wallet"
)

// Client implements provider.PrivacyPool.
type Client struct {
	api *httpapi.Client
}

// New returns a client for baseURL. An empty baseURL disables the pool.
func New(baseURL, apiKey string, opts ...httpapi.Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return &Client{}, nil
	}
	if apiKey != "" {
		opts = append(opts, httpapi.WithBearer(apiKey))
	}
	api, err := httpapi.New(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

type poolRequest struct {
	Owner     string       `json:"owner"`
	Recipient string       `json:"recipient,omitempty"`
	Amount    money.Amount `json:"amount"`
	Token     string       `json:"token"`
}

type poolResponse struct {
	Tx string `json:"tx"`
}

func (c *Client) Deposit(ctx context.Context, req provider.PoolRequest) (provider.TransferResult, error) {
	return c.call(ctx, "/v1/deposit", req)
}

func (c *Client) Withdraw(ctx context.Context, req provider.PoolRequest) (provider.TransferResult, error) {
	if req.Recipient == "" {
		req.Recipient = req.Owner.Address
	}
	return c.call(ctx, "/v1/withdraw", req)
}

// AnonymousSend withdraws from the pool directly to the recipient, which
// breaks the link to the sender's public wallet.
func (c *Client) AnonymousSend(ctx context.Context, req provider.PoolRequest) (provider.TransferResult, error) {
	return c.call(ctx, "/v1/withdraw", req)
}

func (c *Client) call(ctx context.Context, endpoint string, req provider.PoolRequest) (provider.TransferResult, error) {
	if c.api == nil {
		return provider.TransferResult{}, provider.ErrNotConfigured
	}
	var out poolResponse
	err := c.api.PostJSON(ctx, endpoint, poolRequest{
		Owner:     req.Owner.Address,
		Recipient: req.Recipient,
		Amount:    req.Amount,
		Token:     strings.ToUpper(req.Token),
	}, &out, httpapi.SignedBy(req.Owner.PrivateKey))
	if err != nil {
		return provider.TransferResult{}, provider.Failed("privacy pool", err)
	}
	return provider.TransferResult{TxRef: out.Tx, AmountHidden: true}, nil
}

// PrivateBalance returns zero when the pool is not configured.
func (c *Client) PrivateBalance(ctx context.Context, owner wallet.Keypair, token string) (money.Amount, error) {
	if c.api == nil {
		return 0, nil
	}
	var out struct {
		Balance money.Amount `json:"balance"`
	}
	q := url.Values{"owner": {owner.Address}, "token": {strings.ToUpper(token)}}
	if err := c.api.GetJSON(ctx, "/v1/balance", q, &out); err != nil {
		return 0, provider.Failed("privacy pool", err)
	}
	return out.Balance, nil
}

var _ provider.PrivacyPool = (*Client)(nil)
