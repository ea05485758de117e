// Package coingecko reads USD spot prices.
package coingecko

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"hushpay/internal/provider"
	"hushpay/internal/provider/httpapi"
)

const DefaultURL = "https://api.coingecko.com/api/v3"

var coinIDs = map[string]string{
	"ETH":   "ethereum",
	"SOL":   "solana",
	"USDC":  "usd-coin",
	"USDT":  "tether",
	"USD1":  "usd1-wlfi",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
	"POL":   "polygon-ecosystem-token",
	"BTC":   "bitcoin",
}

// Client implements provider.PriceFeed.
type Client struct {
	api *httpapi.Client
}

func New(baseURL string, opts ...httpapi.Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultURL
	}
	api, err := httpapi.New(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// Supported reports whether symbol has a known price id.
func Supported(symbol string) bool {
	_, ok := coinIDs[strings.ToUpper(strings.TrimSpace(symbol))]
	return ok
}

func (c *Client) Price(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	id, ok := coinIDs[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return decimal.Zero, false, nil
	}
	var out map[string]map[string]json.Number
	q := url.Values{"ids": {id}, "vs_currencies": {"usd"}}
	if err := c.api.GetJSON(ctx, "/simple/price", q, &out); err != nil {
		return decimal.Zero, false, provider.Failed("coingecko", err)
	}
	raw, ok := out[id]["usd"]
	if !ok {
		return decimal.Zero, false, nil
	}
	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, false, provider.Failed("coingecko", err)
	}
	return price, true, nil
}

var _ provider.PriceFeed = (*Client)(nil)
