package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medconsult-be/pkg/llm"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const providerName = "local"

// LocalProvider talks to an OpenAI-compatible model server (LM Studio).
// It never streams: one request, one complete answer.
type LocalProvider struct {
	endpoint string
	model    string
	client   *resty.Client
}

// Ensure LocalProvider implements LLMProvider
var _ llm.LLMProvider = &LocalProvider{}

// NewLocalProvider takes the full chat-completions URL,
// e.g. http://localhost:1234/v1/chat/completions.
func NewLocalProvider(endpoint, model string, timeout time.Duration) *LocalProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &LocalProvider{
		endpoint: endpoint,
		model:    model,
		client:   client,
	}
}

// --- Request structs (OpenAI compatible) ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

// chatMessage carries either a plain string or a list of ContentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one typed element of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// MultimodalMessage is a message whose content is an ordered list of parts.
type MultimodalMessage struct {
	Role  string
	Parts []ContentPart
}

// --- Interface Implementation ---

func (p *LocalProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	defaults := llm.DefaultOptions()
	defaults.Model = p.model
	opts := llm.Apply(defaults, options...)

	messages := make([]chatMessage, len(history))
	for i, msg := range history {
		messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	body, err := p.send(ctx, chatRequest{
		Model:       opts.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", err
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return "", llm.ErrorResponse(providerName, 0, errors.New("response has no choices"))
	}
	return content.String(), nil
}

// ChatMultimodal sends typed-part messages. When the server answers without a
// choices array it falls back to a top-level "text" field, then to the raw body.
func (p *LocalProvider) ChatMultimodal(ctx context.Context, messages []MultimodalMessage, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Model: p.model}, options...)

	wire := make([]chatMessage, len(messages))
	for i, msg := range messages {
		wire[i] = chatMessage{Role: msg.Role, Content: msg.Parts}
	}

	body, err := p.send(ctx, chatRequest{
		Model:       opts.Model,
		Messages:    wire,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", err
	}

	if content := gjson.GetBytes(body, "choices.0.message.content"); content.Exists() {
		return content.String(), nil
	}
	if text := gjson.GetBytes(body, "text"); text.Exists() && text.String() != "" {
		return text.String(), nil
	}
	return string(body), nil
}

func (p *LocalProvider) send(ctx context.Context, payload chatRequest) ([]byte, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(p.endpoint)
	if err != nil {
		return nil, llm.Unavailable(providerName, fmt.Errorf("request failed: %w", err))
	}

	body := resp.Body()
	if !resp.IsSuccess() {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = string(body)
		}
		return nil, llm.ErrorResponse(providerName, resp.StatusCode(), errors.New(msg))
	}
	return body, nil
}
