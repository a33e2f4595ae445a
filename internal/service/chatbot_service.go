package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medconsult-be/internal/dto"
	"medconsult-be/internal/pkg/eventbus"
	"medconsult-be/internal/pkg/logger"
	"medconsult-be/pkg/chatbot"
	"medconsult-be/pkg/events"
	"medconsult-be/pkg/llm"
	"medconsult-be/pkg/rag/prompt"
	"medconsult-be/pkg/rag/session"
	"medconsult-be/pkg/store"
	"medconsult-be/pkg/upload"
)

var ErrInvalidBackend = errors.New("invalid backend")

// DocumentIndexer ingests uploaded text on the knowledge server.
type DocumentIndexer interface {
	InsertText(ctx context.Context, text string) (string, error)
}

// IChatbotService defines the chatbot service interface
type IChatbotService interface {
	CreateSession(ctx context.Context, userId string, request *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	GetSession(ctx context.Context, userId string, sessionId string) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, userId string, sessionId string) error
	SelectBackend(ctx context.Context, userId string, sessionId string, request *dto.SelectBackendRequest) (*dto.SelectBackendResponse, error)
	Upload(ctx context.Context, userId string, sessionId string, fileName string, data []byte) (*dto.UploadResponse, error)
	SendChat(ctx context.Context, userId string, request *dto.SendChatRequest, onFragment llm.FragmentHandler) (*dto.SendChatResponse, error)
}

type chatbotService struct {
	sessionManager *session.Manager
	assembler      *prompt.Assembler
	adapter        *chatbot.Adapter
	indexer        DocumentIndexer
	publisher      eventbus.Publisher
	defaultBackend store.Backend

	logger    logger.ILogger
	llmLogger logger.ILogger // prompt/answer traffic only
}

func NewChatbotService(
	sessionManager *session.Manager,
	assembler *prompt.Assembler,
	adapter *chatbot.Adapter,
	indexer DocumentIndexer,
	publisher eventbus.Publisher,
	defaultBackend store.Backend,
	logger logger.ILogger,
	llmLogger logger.ILogger,
) IChatbotService {
	return &chatbotService{
		sessionManager: sessionManager,
		assembler:      assembler,
		adapter:        adapter,
		indexer:        indexer,
		publisher:      publisher,
		defaultBackend: defaultBackend,
		logger:         logger,
		llmLogger:      llmLogger,
	}
}

// CreateSession creates a new chat session
func (cs *chatbotService) CreateSession(ctx context.Context, userId string, request *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	backend := cs.defaultBackend
	if request != nil && request.Backend != "" {
		b, err := store.ParseBackend(request.Backend)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBackend, err)
		}
		backend = b
	}

	s := cs.sessionManager.Create(userId, backend)
	cs.publisher.Emit(ctx, events.SessionCreated, map[string]interface{}{
		"session_id": s.ID,
		"user_id":    userId,
		"backend":    string(backend),
	})
	return toSessionResponse(s), nil
}

func (cs *chatbotService) GetSession(ctx context.Context, userId string, sessionId string) (*dto.SessionResponse, error) {
	s, err := cs.sessionManager.Get(sessionId, userId)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(&s), nil
}

func (cs *chatbotService) DeleteSession(ctx context.Context, userId string, sessionId string) error {
	if _, err := cs.sessionManager.Get(sessionId, userId); err != nil {
		return err
	}
	cs.sessionManager.Delete(sessionId)
	return nil
}

// SelectBackend switches the session's backend. A real change resets the
// transcript and drops the uploaded document.
func (cs *chatbotService) SelectBackend(ctx context.Context, userId string, sessionId string, request *dto.SelectBackendRequest) (*dto.SelectBackendResponse, error) {
	backend, err := store.ParseBackend(request.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackend, err)
	}

	var (
		reset    bool
		previous store.Backend
		response *dto.SessionResponse
	)
	err = cs.sessionManager.With(ctx, sessionId, userId, func(s *store.Session) error {
		previous = s.ActiveBackend
		reset = s.SelectBackend(backend)
		response = toSessionResponse(s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reset {
		cs.logger.Info("CHATBOT", "Backend switched, session reset", map[string]interface{}{
			"session_id": sessionId,
			"from":       string(previous),
			"to":         string(backend),
		})
		cs.publisher.Emit(ctx, events.SessionReset, map[string]interface{}{
			"session_id": sessionId,
			"from":       string(previous),
			"to":         string(backend),
		})
	}
	return &dto.SelectBackendResponse{Reset: reset, Session: response}, nil
}

// Upload decodes a document and attaches it as the session's file context.
// In lightrag mode the text is also indexed; an indexing failure is reported
// but the document stays attached.
func (cs *chatbotService) Upload(ctx context.Context, userId string, sessionId string, fileName string, data []byte) (*dto.UploadResponse, error) {
	doc, err := upload.Decode(fileName, data)
	if err != nil {
		return nil, err
	}

	response := &dto.UploadResponse{
		FileName:  fileName,
		MIME:      doc.MIME,
		Encoding:  string(doc.Encoding),
		Bytes:     len(data),
		Malformed: doc.Malformed(),
	}
	if doc.Malformed() {
		response.Warning = upload.ErrMalformed.Error()
		cs.logger.Warn("CHATBOT", "Upload is not valid text, using quoted bytes", map[string]interface{}{
			"session_id": sessionId,
			"file_name":  fileName,
			"mime":       doc.MIME,
		})
	}

	err = cs.sessionManager.With(ctx, sessionId, userId, func(s *store.Session) error {
		docID := ""
		if s.ActiveBackend == store.BackendLightRAG && cs.indexer != nil {
			id, ierr := cs.indexer.InsertText(ctx, doc.Content)
			if ierr != nil {
				response.IndexError = ierr.Error()
				cs.logger.Error("CHATBOT", "Failed to index upload on LightRAG", map[string]interface{}{
					"session_id": sessionId,
					"error":      ierr.Error(),
				})
			} else {
				docID = id
				response.Indexed = true
				response.DocId = id
			}
		}
		s.AttachArtifact(doc.Content, docID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	cs.publisher.Emit(ctx, events.DocumentUploaded, map[string]interface{}{
		"session_id": sessionId,
		"encoding":   string(doc.Encoding),
		"bytes":      len(data),
		"indexed":    response.Indexed,
	})
	return response, nil
}

// SendChat runs one turn. Provider failures become the assistant reply so the
// session stays usable; only session lookup errors are returned.
func (cs *chatbotService) SendChat(ctx context.Context, userId string, request *dto.SendChatRequest, onFragment llm.FragmentHandler) (*dto.SendChatResponse, error) {
	params := resolveParams(request.GenerationParams)
	start := time.Now()

	var response *dto.SendChatResponse
	err := cs.sessionManager.With(ctx, request.ChatSessionId, userId, func(s *store.Session) error {
		backend := s.ActiveBackend
		assembled := cs.assembler.Assemble(ctx, backend, s.UploadedArtifact, request.Chat)
		s.AppendUser(assembled.Content)

		cs.llmLogger.Debug("PROMPT", "Outgoing turn", map[string]interface{}{
			"session_id":  s.ID,
			"backend":     string(backend),
			"temperature": params.Temperature,
			"max_tokens":  params.MaxTokens,
			"content":     assembled.Content,
		})

		answer, genErr := cs.adapter.Generate(ctx, backend, s.History(), params, onFragment)

		reply := answer.Text
		errorKind := ""
		if genErr != nil {
			reply = llm.Render(genErr)
			errorKind = string(llm.KindOf(genErr))
			if errorKind == "" {
				errorKind = "internal"
			}
			cs.logger.Warn("CHATBOT", "Backend failed, reporting error as reply", map[string]interface{}{
				"session_id": s.ID,
				"backend":    string(backend),
				"error":      genErr.Error(),
			})
		}
		s.AppendAssistant(reply)

		cs.llmLogger.Debug("PROMPT", "Turn answered", map[string]interface{}{
			"session_id": s.ID,
			"backend":    string(backend),
			"fragments":  answer.Fragments,
			"reply":      reply,
		})

		response = &dto.SendChatResponse{
			ChatSessionId: s.ID,
			Backend:       string(backend),
			Question:      assembled.Question,
			Reply:         dto.MessageDTO{Role: llm.RoleAssistant, Content: reply},
			Streamed:      answer.Streamed,
			Fragments:     answer.Fragments,
			ErrorKind:     errorKind,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "ok"
	if response.ErrorKind != "" {
		outcome = response.ErrorKind
	}
	cs.publisher.Emit(ctx, events.TurnCompleted, map[string]interface{}{
		"session_id":  response.ChatSessionId,
		"backend":     response.Backend,
		"outcome":     outcome,
		"fragments":   response.Fragments,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return response, nil
}

func resolveParams(p dto.GenerationParams) chatbot.Params {
	params := chatbot.DefaultParams()
	if p.Temperature != nil {
		params.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		params.MaxTokens = *p.MaxTokens
	}
	return params
}

func toSessionResponse(s *store.Session) *dto.SessionResponse {
	return &dto.SessionResponse{
		Id:             s.ID,
		ActiveBackend:  string(s.ActiveBackend),
		Transcript:     toMessageDTOs(s.Transcript),
		HasArtifact:    s.UploadedArtifact != "",
		RetrievalDocId: s.RetrievalDocID,
		UpdatedAt:      s.UpdatedAt,
	}
}

func toMessageDTOs(messages []llm.Message) []dto.MessageDTO {
	out := make([]dto.MessageDTO, len(messages))
	for i, m := range messages {
		out[i] = dto.MessageDTO{Role: m.Role, Content: m.Content}
	}
	return out
}
