// Package silentswap bridges funds to other chains.
package silentswap

import (
	"context"
	"strings"

	"hushpay/internal/money"
	"hushpay/internal/provider"
	"hushpay/internal/provider/httpapi"
)

// Client implements provider.Bridge.
type Client struct {
	api *httpapi.Client
}

// New returns a client for baseURL. An empty baseURL disables bridging.
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

type bridgeRequest struct {
	Sender             string       `json:"sender"`
	DestinationChain   string       `json:"destinationChain"`
	ChainID            int64        `json:"chainId"`
	DestinationAddress string       `json:"destinationAddress"`
	Amount             money.Amount `json:"amount"`
	Token              string       `json:"token"`
}

type bridgeResponse struct {
	OrderID string `json:"orderId"`
	TxHash  string `json:"txHash"`
}

func (c *Client) Bridge(ctx context.Context, req provider.BridgeRequest) (provider.TransferResult, error) {
	if c.api == nil {
		return provider.TransferResult{}, provider.ErrNotConfigured
	}
	var out bridgeResponse
	err := c.api.PostJSON(ctx, "/v1/orders", bridgeRequest{
		Sender:             req.From.Address,
		DestinationChain:   req.DestinationChain,
		ChainID:            req.ChainID,
		DestinationAddress: req.DestinationAddress,
		Amount:             req.Amount,
		Token:              strings.ToUpper(req.Token),
	}, &out, httpapi.SignedBy(req.From.PrivateKey))
	if err != nil {
		return provider.TransferResult{}, provider.Failed("silentswap", err)
	}
	ref := out.TxHash
	if ref == "" {
		ref = out.OrderID
	}
	return provider.TransferResult{TxRef: ref}, nil
}

var _ provider.Bridge = (*Client)(nil)
