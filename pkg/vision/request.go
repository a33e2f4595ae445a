package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"medconsult-be/internal/constant"
	"medconsult-be/pkg/llm"
	"medconsult-be/pkg/llm/local"

	"github.com/gabriel-vasile/mimetype"
)

const (
	Persona       = constant.VisionPersona
	DefaultPrompt = constant.VisionDefaultPrompt

	maxTokens = 1024
)

var (
	ErrEmptyImage = errors.New("vision: image is empty")
	ErrNotImage   = errors.New("vision: upload is not an image")
)

// Request is a fully built multimodal analysis request.
type Request struct {
	MIME     string
	Prompt   string
	Messages []local.MultimodalMessage
	Options  []llm.Option
}

// BuildRequest validates the image bytes and lays out the persona, prompt and
// inline image in the order the model server expects.
func BuildRequest(image []byte, prompt, model string) (Request, error) {
	if len(image) == 0 {
		return Request{}, ErrEmptyImage
	}
	mime := mimetype.Detect(image)
	if !strings.HasPrefix(mime.String(), "image/") {
		return Request{}, fmt.Errorf("%w: detected %s", ErrNotImage, mime.String())
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = DefaultPrompt
	}

	dataURL := "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(image)

	options := []llm.Option{llm.WithTemperature(0), llm.WithMaxTokens(maxTokens)}
	if model != "" {
		options = append(options, llm.WithModel(model))
	}

	return Request{
		MIME:   mime.String(),
		Prompt: prompt,
		Messages: []local.MultimodalMessage{
			{Role: llm.RoleSystem, Parts: []local.ContentPart{{Type: "text", Text: Persona}}},
			{Role: llm.RoleUser, Parts: []local.ContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &local.ImageURL{URL: dataURL}},
			}},
		},
		Options: options,
	}, nil
}

// Dispatcher sends a multimodal request; satisfied by *local.LocalProvider.
type Dispatcher interface {
	ChatMultimodal(ctx context.Context, messages []local.MultimodalMessage, options ...llm.Option) (string, error)
}

// Analyzer turns an image and optional prompt into a single report.
type Analyzer struct {
	dispatcher Dispatcher
	model      string
}

func NewAnalyzer(dispatcher Dispatcher, model string) *Analyzer {
	return &Analyzer{dispatcher: dispatcher, model: model}
}

func (a *Analyzer) Analyze(ctx context.Context, image []byte, prompt string) (string, Request, error) {
	req, err := BuildRequest(image, prompt, a.model)
	if err != nil {
		return "", req, err
	}
	report, err := a.dispatcher.ChatMultimodal(ctx, req.Messages, req.Options...)
	if err != nil {
		return "", req, err
	}
	return report, req, nil
}
