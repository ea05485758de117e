// Package twilio delivers SMS and WhatsApp messages.
package twilio

import (
	"context"
	"net/url"
	"strings"

	"hushpay/internal/provider"
	"hushpay/internal/provider/httpapi"
)

const DefaultURL = "https://api.twilio.com/2010-04-01"

// Config holds the account credentials and sender numbers.
type Config struct {
	BaseURL        string
	AccountSID     string
	AuthToken      string
	PhoneNumber    string
	WhatsAppNumber string
}

// Client implements provider.Notifier.
type Client struct {
	api *httpapi.Client
	cfg Config
}

func New(cfg Config, opts ...httpapi.Option) (*Client, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return &Client{cfg: cfg}, nil
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultURL
	}
	api, err := httpapi.New(cfg.BaseURL, append(opts, httpapi.WithBasicAuth(cfg.AccountSID, cfg.AuthToken))...)
	if err != nil {
		return nil, err
	}
	return &Client{api: api, cfg: cfg}, nil
}

func (c *Client) Notify(ctx context.Context, to string, channel provider.Channel, text string) error {
	if c.api == nil {
		return provider.ErrNotConfigured
	}
	from := c.cfg.PhoneNumber
	if channel == provider.ChannelWhatsApp {
		from = whatsapp(c.cfg.WhatsAppNumber)
		to = whatsapp(to)
	}
	form := url.Values{"To": {to}, "From": {from}, "Body": {text}}
	var out struct {
		SID string `json:"sid"`
	}
	if err := c.api.PostForm(ctx, "/Accounts/"+c.cfg.AccountSID+"/Messages.json", form, &out); err != nil {
		return provider.Failed("twilio", err)
	}
	return nil
}

func whatsapp(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

var _ provider.Notifier = (*Client)(nil)
