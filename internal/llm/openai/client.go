// Package openai interprets messages with any OpenAI-compatible chat
// completions endpoint, including Gemini's compatibility layer.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hushpay/internal/llm"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModelName = "gpt-4o-mini"
	defaultTimeout   = 30 * time.Second
)

// Config describes the endpoint and model.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements llm.Interpreter.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient validates cfg and fills defaults.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("interpreter api key is not set")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Interpret asks the model for a reply and intent.
func (c *Client) Interpret(ctx context.Context, req llm.Request) (*llm.Response, error) {
	payload, err := c.buildPayload(req)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build interpreter request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call interpreter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("interpreter returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode interpreter response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("interpreter response has no choices")
	}
	return llm.ParseReply(decoded.Choices[0].Message.Content)
}

func (c *Client) buildPayload(req llm.Request) ([]byte, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	messages := []message{{Role: "system", Content: systemPrompt(req)}}
	for _, turn := range req.History {
		role := "user"
		if turn.Role == "assistant" {
			role = "assistant"
		}
		messages = append(messages, message{Role: role, Content: turn.Text})
	}
	messages = append(messages, message{Role: "user", Content: req.Message})

	body := map[string]any{
		"model":           c.model,
		"messages":        messages,
		"temperature":     0.2,
		"response_format": map[string]string{"type": "json_object"},
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode interpreter request: %w", err)
	}
	return encoded, nil
}

const basePrompt = `You are HushPay, a friendly SMS assistant for private crypto payments.
Keep replies SHORT; SMS has character limits.

Respond with JSON only: {"reply": string, "intent": object|null}.
Amounts are decimal strings. Intent objects carry an "action" field and its parameters:
- send_payment {amount, token, recipient}  recipient is a phone number or a contact name
- anon_send {amount, token, recipientWallet}
- deposit {amount, token} / withdraw {amount, token}
- cross_chain_send {amount, token, recipient, destinationChain, destinationAddress}
- split_payment {totalAmount, token, recipients: [phone or contact]}
- recurring_payment {amount, token, recipient, frequency: daily|weekly|monthly}
- price_alert {token, condition: above|below, targetPrice}
- payment_request {amount, token, payer}
- save_contact {name, phone} / delete_contact {name}
- cancel_recurring {recipient}
- set_language {language}
- check_balance, get_wallet, get_receipts, list_contacts, list_recurring, set_pin
For money-moving actions the reply restates amount and recipient and ends with "Reply YES to confirm."
For anything else use intent null.`

func systemPrompt(req llm.Request) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	if req.NativeToken != "" {
		fmt.Fprintf(&b, "\nDefault token when none is named: %s.", req.NativeToken)
	}
	if req.Language != "" {
		fmt.Fprintf(&b, "\nReply in language code %q.", req.Language)
	}
	if len(req.Contacts) > 0 {
		fmt.Fprintf(&b, "\nSaved contacts: %s.", strings.Join(req.Contacts, ", "))
	}
	if len(req.Destinations) > 0 {
		fmt.Fprintf(&b, "\nCross-chain destinations: %s.", strings.Join(req.Destinations, ", "))
	}
	return b.String()
}

var _ llm.Interpreter = (*Client)(nil)
