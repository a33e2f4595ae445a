package dto

import (
	"time"
)

type MessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CreateSessionRequest struct {
	Backend string `json:"backend" validate:"omitempty,oneof=openai local lightrag"`
}

type SessionResponse struct {
	Id             string       `json:"id"`
	ActiveBackend  string       `json:"active_backend"`
	Transcript     []MessageDTO `json:"transcript"`
	HasArtifact    bool         `json:"has_artifact"`
	RetrievalDocId string       `json:"retrieval_doc_id,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type SelectBackendRequest struct {
	Backend string `json:"backend" validate:"required,oneof=openai local lightrag"`
}

type SelectBackendResponse struct {
	Reset   bool             `json:"reset"`
	Session *SessionResponse `json:"session"`
}

type UploadResponse struct {
	FileName  string `json:"file_name"`
	MIME      string `json:"mime"`
	Encoding  string `json:"encoding"`
	Bytes     int    `json:"bytes"`
	Malformed bool   `json:"malformed"`
	Warning   string `json:"warning,omitempty"`

	// Set only when the session is in lightrag mode
	Indexed    bool   `json:"indexed"`
	DocId      string `json:"doc_id,omitempty"`
	IndexError string `json:"index_error,omitempty"`
}

// GenerationParams are optional overrides of the default temperature and token budget.
type GenerationParams struct {
	Temperature *float32 `json:"temperature,omitempty" validate:"omitempty,min=0,max=2"`
	MaxTokens   *int     `json:"max_tokens,omitempty" validate:"omitempty,min=1,max=4096"`
}

type SendChatRequest struct {
	ChatSessionId string `json:"chat_session_id" validate:"required,uuid"`
	Chat          string `json:"chat" validate:"required"`
	GenerationParams
}

type SendChatResponse struct {
	ChatSessionId string     `json:"chat_session_id"`
	Backend       string     `json:"backend"`
	Question      string     `json:"question"`
	Reply         MessageDTO `json:"reply"`
	Streamed      bool       `json:"streamed"`
	Fragments     int        `json:"fragments"`
	ErrorKind     string     `json:"error_kind,omitempty"`
}

// WsChatRequest is one inbound websocket frame; the session comes from the URL.
type WsChatRequest struct {
	Chat string `json:"chat" validate:"required"`
	GenerationParams
}

const (
	WsFrameFragment = "fragment"
	WsFrameDone     = "done"
	WsFrameError    = "error"
)

type WsFrame struct {
	Type    string            `json:"type"`
	Content string            `json:"content,omitempty"`
	Reply   *SendChatResponse `json:"reply,omitempty"`
}
