package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"hushpay/internal/intent"
)

// Turn is one prior message of the conversation.
type Turn struct {
	Role string
	Text string
}

// Request carries everything the interpreter may use to resolve a message.
type Request struct {
	Identity     string
	Message      string
	History      []Turn
	Language     string
	Contacts     []string
	NativeToken  string
	Destinations []string
}

// Response is the interpreter output. Intent is nil for plain chat.
type Response struct {
	Reply  string
	Intent intent.Intent
}

// Interpreter turns a message into a reply and an optional intent.
type Interpreter interface {
	Interpret(ctx context.Context, req Request) (*Response, error)
}

var fence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// ParseReply decodes a model completion of the form
// {"reply": string, "intent": object|null}. Markdown code fences are
// stripped. Content that is not JSON is returned as a plain reply.
func ParseReply(content string) (*Response, error) {
	content = strings.TrimSpace(content)
	if m := fence.FindStringSubmatch(content); m != nil {
		content = m[1]
	}
	if content == "" {
		return nil, errors.New("empty completion")
	}
	var raw struct {
		Reply  string          `json:"reply"`
		Intent json.RawMessage `json:"intent"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return &Response{Reply: content}, nil
	}
	in, err := intent.Decode(raw.Intent)
	if err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return &Response{Reply: strings.TrimSpace(raw.Reply), Intent: in}, nil
}
