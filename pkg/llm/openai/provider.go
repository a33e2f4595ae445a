package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"medconsult-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

const providerName = "openai"

// OpenAIProvider talks to a hosted chat-completion API and streams deltas.
type OpenAIProvider struct {
	client  *goopenai.Client
	model   string
	timeout time.Duration
}

// Ensure OpenAIProvider implements StreamingProvider
var _ llm.StreamingProvider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, baseURL, model string, timeout time.Duration) *OpenAIProvider {
	clientConfig := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIProvider{
		client:  goopenai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}
}

func (p *OpenAIProvider) buildRequest(history []llm.Message, opts llm.Options, stream bool) goopenai.ChatCompletionRequest {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	temperature := opts.Temperature
	// go-openai drops a zero temperature (omitempty), which the API reads as 1.
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	return goopenai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      stream,
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Model: p.model}, options...)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(history, opts, false))
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) ChatStream(
	ctx context.Context,
	history []llm.Message,
	onFragment llm.FragmentHandler,
	options ...llm.Option,
) (string, error) {
	opts := llm.Apply(llm.Options{Model: p.model}, options...)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stream, err := p.client.CreateChatCompletionStream(ctx, p.buildRequest(history, opts, true))
	if err != nil {
		return "", classify(err)
	}
	defer stream.Close()

	var answer string
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return answer, nil
		}
		if err != nil {
			return answer, classify(err)
		}
		if len(response.Choices) == 0 {
			continue
		}

		fragment := response.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}
		answer += fragment
		if onFragment != nil {
			onFragment(fragment)
		}
	}
}

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return llm.ErrorResponse(providerName, apiErr.HTTPStatusCode, fmt.Errorf("%s", apiErr.Message))
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return llm.ErrorResponse(providerName, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return llm.Unavailable(providerName, err)
}
