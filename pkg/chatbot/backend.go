package chatbot

import (
	"context"
	"fmt"

	"medconsult-be/pkg/llm"
	"medconsult-be/pkg/store"
)

// Params are the generation knobs for one turn.
type Params struct {
	Temperature float32 // [0, 2]
	MaxTokens   int     // [1, 4096]
}

func DefaultParams() Params {
	d := llm.DefaultOptions()
	return Params{Temperature: d.Temperature, MaxTokens: d.MaxTokens}
}

func (p Params) options() []llm.Option {
	return []llm.Option{llm.WithTemperature(p.Temperature), llm.WithMaxTokens(p.MaxTokens)}
}

// Answer is the normalized outcome of a successful generation.
type Answer struct {
	Text      string
	Streamed  bool
	Fragments int
}

type handler func(ctx context.Context, history []llm.Message, params Params, onFragment llm.FragmentHandler) (Answer, error)

// Adapter dispatches a transcript to the provider behind a backend.
type Adapter struct {
	hosted llm.StreamingProvider
	local  llm.LLMProvider
}

func NewAdapter(hosted llm.StreamingProvider, local llm.LLMProvider) *Adapter {
	return &Adapter{hosted: hosted, local: local}
}

// Generate answers the transcript with the given backend. Streaming backends
// report each fragment through onFragment as it arrives; the local backend
// reports its whole answer as a single fragment.
func (a *Adapter) Generate(
	ctx context.Context,
	backend store.Backend,
	transcript []llm.Message,
	params Params,
	onFragment llm.FragmentHandler,
) (Answer, error) {
	h, err := a.handlerFor(backend)
	if err != nil {
		return Answer{}, err
	}
	return h(ctx, transcript, params, onFragment)
}

func (a *Adapter) handlerFor(backend store.Backend) (handler, error) {
	switch backend {
	case store.BackendOpenAI:
		return a.generateHosted, nil
	case store.BackendLocal:
		return a.generateLocal, nil
	case store.BackendLightRAG:
		// Retrieved memory is already folded into the transcript upstream.
		return a.generateHosted, nil
	default:
		return nil, fmt.Errorf("no handler for backend %q", backend)
	}
}

func (a *Adapter) generateHosted(ctx context.Context, history []llm.Message, params Params, onFragment llm.FragmentHandler) (Answer, error) {
	count := 0
	text, err := a.hosted.ChatStream(ctx, history, func(fragment string) {
		count++
		if onFragment != nil {
			onFragment(fragment)
		}
	}, params.options()...)
	if err != nil {
		return Answer{}, err
	}
	return Answer{Text: text, Streamed: true, Fragments: count}, nil
}

func (a *Adapter) generateLocal(ctx context.Context, history []llm.Message, params Params, onFragment llm.FragmentHandler) (Answer, error) {
	text, err := a.local.Chat(ctx, history, params.options()...)
	if err != nil {
		return Answer{}, err
	}
	fragments := 0
	if text != "" {
		fragments = 1
		if onFragment != nil {
			onFragment(text)
		}
	}
	return Answer{Text: text, Fragments: fragments}, nil
}
