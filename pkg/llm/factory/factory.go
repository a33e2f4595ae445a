package factory

import (
	"fmt"
	"time"

	"medconsult-be/pkg/llm"
	"medconsult-be/pkg/llm/local"
	"medconsult-be/pkg/llm/openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Settings carries everything any provider may need; unused fields are ignored.
type Settings struct {
	APIKey   string
	BaseURL  string // hosted API base, e.g. https://api.openai.com/v1
	Endpoint string // full chat-completions URL for local servers
	Model    string
	Timeout  time.Duration
}

func NewLLMProvider(providerType string, s Settings) (llm.LLMProvider, error) {
	switch providerType {
	case ProviderOpenAI:
		return NewStreamingProvider(providerType, s)
	case ProviderLocal:
		if s.Endpoint == "" {
			s.Endpoint = "http://localhost:1234/v1/chat/completions" // LM Studio default
		}
		return local.NewLocalProvider(s.Endpoint, s.Model, s.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

func NewStreamingProvider(providerType string, s Settings) (llm.StreamingProvider, error) {
	switch providerType {
	case ProviderOpenAI:
		// An empty key is allowed; the API rejects it per turn as a provider error.
		return openai.NewOpenAIProvider(s.APIKey, s.BaseURL, s.Model, s.Timeout), nil
	default:
		return nil, fmt.Errorf("provider %s does not support streaming", providerType)
	}
}
