package llm

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float32
	MaxTokens   int
	Model       string // Override default model
}

// DefaultOptions are the generation defaults when a caller sets nothing.
func DefaultOptions() Options {
	return Options{Temperature: 0.1, MaxTokens: 1028}
}

func WithTemperature(temp float32) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Apply folds opts over the given defaults.
func Apply(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)
}

// FragmentHandler receives streamed text in arrival order.
type FragmentHandler func(fragment string)

// StreamingProvider is implemented by backends that can deliver token deltas.
type StreamingProvider interface {
	LLMProvider

	// ChatStream calls onFragment for every non-empty delta and returns the
	// concatenated answer once the stream ends.
	ChatStream(ctx context.Context, history []Message, onFragment FragmentHandler, options ...Option) (string, error)
}
