package service

import (
	"context"

	"medconsult-be/internal/dto"
	"medconsult-be/internal/pkg/eventbus"
	"medconsult-be/internal/pkg/logger"
	"medconsult-be/pkg/events"
	"medconsult-be/pkg/lightrag"
	"medconsult-be/pkg/rag/session"
	"medconsult-be/pkg/store"
)

// Retriever queries the knowledge server.
type Retriever interface {
	Query(ctx context.Context, query string, params lightrag.QueryParams) lightrag.Result
}

type IRetrievalService interface {
	Query(ctx context.Context, userId string, request *dto.RetrievalQueryRequest) (*dto.RetrievalQueryResponse, error)
	History(ctx context.Context, userId string, sessionId string) (*dto.RetrievalHistoryResponse, error)
}

type retrievalService struct {
	retriever      Retriever
	sessionManager *session.Manager
	publisher      eventbus.Publisher
	logger         logger.ILogger
}

func NewRetrievalService(
	retriever Retriever,
	sessionManager *session.Manager,
	publisher eventbus.Publisher,
	logger logger.ILogger,
) IRetrievalService {
	return &retrievalService{
		retriever:      retriever,
		sessionManager: sessionManager,
		publisher:      publisher,
		logger:         logger,
	}
}

// Query never fails on knowledge-server trouble: the failure is the answer.
// With a session id the exchange is appended to that session's retrieval log.
func (rs *retrievalService) Query(ctx context.Context, userId string, request *dto.RetrievalQueryRequest) (*dto.RetrievalQueryResponse, error) {
	var result lightrag.Result

	if request.SessionId == "" {
		result = rs.retriever.Query(ctx, request.Query, request.QueryParams)
	} else {
		err := rs.sessionManager.With(ctx, request.SessionId, userId, func(s *store.Session) error {
			result = rs.retriever.Query(ctx, request.Query, request.QueryParams)
			s.LogRetrieval(request.Query, result.Display())
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if result.Failed() {
		rs.logger.Warn("RETRIEVAL", "Knowledge server query failed", map[string]interface{}{
			"kind":  string(result.Kind),
			"error": result.Error,
		})
	}
	rs.publisher.Emit(ctx, events.RetrievalCompleted, map[string]interface{}{
		"session_id": request.SessionId,
		"kind":       string(result.Kind),
		"references": len(result.References),
	})

	return &dto.RetrievalQueryResponse{
		Kind:           string(result.Kind),
		Answer:         result.Display(),
		Failed:         result.Failed(),
		References:     result.References,
		ReferencesText: result.RenderReferences(),
	}, nil
}

func (rs *retrievalService) History(ctx context.Context, userId string, sessionId string) (*dto.RetrievalHistoryResponse, error) {
	s, err := rs.sessionManager.Get(sessionId, userId)
	if err != nil {
		return nil, err
	}
	return &dto.RetrievalHistoryResponse{
		SessionId: s.ID,
		Log:       toMessageDTOs(s.RetrievalLog),
	}, nil
}
