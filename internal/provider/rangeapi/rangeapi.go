// Package rangeapi screens wallet addresses for compliance risk.
package rangeapi

import (
	"context"
	"log/slog"
	"strings"

	"hushpay/internal/provider"
	"hushpay/internal/provider/httpapi"
	"hushpay/pkg/logger"
)

// DefaultURL is the public screening endpoint.
const DefaultURL = "https://api.range.org"

// Client implements provider.Screener. It fails open: without an API key,
// or when the API errors, every address is allowed.
type Client struct {
	api *httpapi.Client
	log *slog.Logger
}

func New(baseURL, apiKey string, opts ...httpapi.Option) (*Client, error) {
	c := &Client{log: logger.Named("range")}
	if strings.TrimSpace(apiKey) == "" {
		return c, nil
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultURL
	}
	api, err := httpapi.New(baseURL, append(opts, httpapi.WithBearer(apiKey))...)
	if err != nil {
		return nil, err
	}
	c.api = api
	return c, nil
}

// Screen blocks only on risk "high" or "severe".
func (c *Client) Screen(ctx context.Context, address string) (provider.Screening, error) {
	if c.api == nil {
		return provider.Screening{Allowed: true}, nil
	}
	var out struct {
		Risk string `json:"risk"`
	}
	if err := c.api.PostJSON(ctx, "/v1/screen", map[string]string{"address": address}, &out); err != nil {
		c.log.Warn("screening failed, allowing", slog.String("address", address), slog.Any("error", err))
		return provider.Screening{Allowed: true}, nil
	}
	risk := strings.ToLower(strings.TrimSpace(out.Risk))
	if risk == "" {
		risk = "low"
	}
	if risk == "high" || risk == "severe" {
		return provider.Screening{Allowed: false, Risk: risk, Reason: "address flagged for compliance"}, nil
	}
	return provider.Screening{Allowed: true, Risk: risk}, nil
}

var _ provider.Screener = (*Client)(nil)
