package service

import (
	"context"
	"errors"

	"medconsult-be/internal/dto"
	"medconsult-be/internal/pkg/eventbus"
	"medconsult-be/internal/pkg/logger"
	"medconsult-be/pkg/events"
	"medconsult-be/pkg/llm"
	"medconsult-be/pkg/vision"
)

type IVisionService interface {
	Analyze(ctx context.Context, image []byte, prompt string) (*dto.AnalyzeImageResponse, error)
}

type visionService struct {
	analyzer  *vision.Analyzer
	publisher eventbus.Publisher
	logger    logger.ILogger
}

func NewVisionService(analyzer *vision.Analyzer, publisher eventbus.Publisher, logger logger.ILogger) IVisionService {
	return &visionService{analyzer: analyzer, publisher: publisher, logger: logger}
}

// Analyze returns input errors (empty or non-image upload) as errors; model
// server failures come back as the report text with ErrorKind set.
func (vs *visionService) Analyze(ctx context.Context, image []byte, prompt string) (*dto.AnalyzeImageResponse, error) {
	report, req, err := vs.analyzer.Analyze(ctx, image, prompt)
	if errors.Is(err, vision.ErrEmptyImage) || errors.Is(err, vision.ErrNotImage) {
		return nil, err
	}

	response := &dto.AnalyzeImageResponse{
		Report: report,
		Prompt: req.Prompt,
		MIME:   req.MIME,
	}
	outcome := "ok"
	if err != nil {
		response.Report = llm.Render(err)
		response.ErrorKind = string(llm.KindOf(err))
		outcome = response.ErrorKind
		vs.logger.Warn("VISION", "Image analysis failed", map[string]interface{}{"error": err.Error(), "mime": req.MIME})
	}

	vs.publisher.Emit(ctx, events.ImageAnalyzed, map[string]interface{}{
		"outcome": outcome,
		"mime":    req.MIME,
		"bytes":   len(image),
	})
	return response, nil
}
