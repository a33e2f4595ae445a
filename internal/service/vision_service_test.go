package service

import (
	"context"
	"errors"
	"testing"

	"medconsult-be/internal/pkg/logger"
	"medconsult-be/pkg/events"
	"medconsult-be/pkg/llm"
	"medconsult-be/pkg/llm/local"
	"medconsult-be/pkg/vision"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeVisionModel struct {
	reply string
	err   error
	calls int
}

func (f *fakeVisionModel) ChatMultimodal(context.Context, []local.MultimodalMessage, ...llm.Option) (string, error) {
	f.calls++
	return f.reply, f.err
}

func newVisionFixture(model *fakeVisionModel) (IVisionService, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewVisionService(vision.NewAnalyzer(model, "medgemma-4b-it"), pub, logger.NewNopLogger())
	return svc, pub
}

func TestAnalyzeReturnsReport(t *testing.T) {
	model := &fakeVisionModel{reply: "No acute fracture."}
	svc, pub := newVisionFixture(model)

	res, err := svc.Analyze(context.Background(), pngBytes, "")

	require.NoError(t, err)
	assert.Equal(t, "No acute fracture.", res.Report)
	assert.Equal(t, vision.DefaultPrompt, res.Prompt)
	assert.Equal(t, "image/png", res.MIME)
	assert.Empty(t, res.ErrorKind)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.ImageAnalyzed, pub.events[0])
	assert.Equal(t, "ok", pub.data[0]["outcome"])
}

func TestAnalyzeProviderFailureIsReport(t *testing.T) {
	model := &fakeVisionModel{err: llm.Unavailable("local", errors.New("connection refused"))}
	svc, pub := newVisionFixture(model)

	res, err := svc.Analyze(context.Background(), pngBytes, "Any effusion?")

	require.NoError(t, err)
	assert.Equal(t, "Error: local: connection refused", res.Report)
	assert.Equal(t, string(llm.KindUnavailable), res.ErrorKind)
	assert.Equal(t, "Any effusion?", res.Prompt)
	assert.Equal(t, string(llm.KindUnavailable), pub.data[0]["outcome"])
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	model := &fakeVisionModel{}
	svc, pub := newVisionFixture(model)

	_, err := svc.Analyze(context.Background(), nil, "")
	assert.ErrorIs(t, err, vision.ErrEmptyImage)

	_, err = svc.Analyze(context.Background(), []byte("plain text, not an image"), "")
	assert.ErrorIs(t, err, vision.ErrNotImage)

	assert.Zero(t, model.calls)
	assert.Empty(t, pub.events)
}
