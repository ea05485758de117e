// Package httpapi is the JSON-over-HTTP client shared by the provider
// adapters.
package httpapi

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultHTTPTimeout is used when no http.Client is supplied.
const DefaultHTTPTimeout = 15 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// HTTPStatus exposes the response status to callers that classify failures.
func (e *APIError) HTTPStatus() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// Client performs JSON requests against one base URL.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	decorate   []RequestOption
}

// RequestOption mutates an outgoing request. body is the encoded payload,
// nil for requests without one.
type RequestOption func(req *http.Request, body []byte) error

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBearer sends an Authorization: Bearer header on every request.
func WithBearer(token string) Option {
	return WithRequestOption(func(req *http.Request, _ []byte) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	})
}

// WithBasicAuth sends HTTP basic credentials on every request.
func WithBasicAuth(user, password string) Option {
	return WithRequestOption(func(req *http.Request, _ []byte) error {
		req.SetBasicAuth(user, password)
		return nil
	})
}

// WithQueryParam appends name=value to every request URL.
func WithQueryParam(name, value string) Option {
	return WithRequestOption(func(req *http.Request, _ []byte) error {
		q := req.URL.Query()
		q.Set(name, value)
		req.URL.RawQuery = q.Encode()
		return nil
	})
}

// WithRequestOption applies fn to every request.
func WithRequestOption(fn RequestOption) Option {
	return func(c *Client) {
		c.decorate = append(c.decorate, fn)
	}
}

// SignedBy attaches the owner address and an EIP-191 signature of the body
// so the provider can authenticate the wallet without seeing its key.
func SignedBy(key *ecdsa.PrivateKey) RequestOption {
	return func(req *http.Request, body []byte) error {
		sig, err := crypto.Sign(accounts.TextHash(body), key)
		if err != nil {
			return fmt.Errorf("sign request: %w", err)
		}
		req.Header.Set("X-Wallet-Address", crypto.PubkeyToAddress(key.PublicKey).Hex())
		req.Header.Set("X-Wallet-Signature", hexutil.Encode(sig))
		return nil
	}
}

// New builds a client for rawURL.
func New(rawURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(rawURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", rawURL)
	}
	c := &Client{baseURL: parsed, httpClient: &http.Client{Timeout: DefaultHTTPTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PostJSON sends payload as JSON and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, endpoint string, payload, out any, opts ...RequestOption) error {
	return c.sendJSON(ctx, http.MethodPost, endpoint, payload, out, opts)
}

// PutJSON is PostJSON with PUT.
func (c *Client) PutJSON(ctx context.Context, endpoint string, payload, out any, opts ...RequestOption) error {
	return c.sendJSON(ctx, http.MethodPut, endpoint, payload, out, opts)
}

// GetJSON decodes the response of a GET into out. query may be nil.
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, out any, opts ...RequestOption) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	if err := c.apply(req, nil, opts); err != nil {
		return err
	}
	return c.do(req, out)
}

// PostForm sends form-encoded values, as Twilio expects.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, out any, opts ...RequestOption) error {
	body := []byte(form.Encode())
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := c.apply(req, body, opts); err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, payload, out any, opts []RequestOption) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.apply(req, body, opts); err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	rel, err := url.Parse(strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	base := *c.baseURL
	base.Path = strings.TrimRight(base.Path, "/") + "/"
	u := base.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) apply(req *http.Request, body []byte, extra []RequestOption) error {
	for _, fn := range c.decorate {
		if err := fn(req, body); err != nil {
			return err
		}
	}
	for _, fn := range extra {
		if err := fn(req, body); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &struct {
				Error *APIError `json:"error"`
			}{Error: &apiErr}); err != nil || apiErr.Message == "" {
				// flat payloads
				_ = json.Unmarshal(data, &apiErr)
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return &apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
