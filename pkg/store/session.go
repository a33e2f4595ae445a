package store

import (
	"fmt"
	"time"

	"medconsult-be/internal/constant"
	"medconsult-be/pkg/llm"
)

// Backend selects which provider answers a session's turns.
type Backend string

const (
	BackendOpenAI   Backend = "openai"   // hosted chat-completion API, streamed
	BackendLocal    Backend = "local"    // local OpenAI-compatible server, single shot
	BackendLightRAG Backend = "lightrag" // hosted completion fed with knowledge-store memory
)

// Backends lists every selectable backend in display order.
var Backends = []Backend{BackendOpenAI, BackendLocal, BackendLightRAG}

func ParseBackend(s string) (Backend, error) {
	for _, b := range Backends {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q", s)
}

// SystemPrompt is always the first message of a transcript.
const SystemPrompt = constant.ChatSystemPrompt

// Session represents the active user session state in memory
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	Transcript    []llm.Message `json:"transcript"`
	ActiveBackend Backend       `json:"active_backend"`

	// Decoded content of the last uploaded document ("" when none)
	UploadedArtifact string `json:"uploaded_artifact,omitempty"`
	// Document id assigned by the retrieval server when the upload was indexed
	RetrievalDocID string `json:"retrieval_doc_id,omitempty"`

	// Query/answer log of the retrieval page; not touched by backend switches
	RetrievalLog []llm.Message `json:"retrieval_log"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id, userID string, backend Backend) *Session {
	s := &Session{
		ID:            id,
		UserID:        userID,
		ActiveBackend: backend,
	}
	s.Reset()
	return s
}

// Reset drops everything tied to the current backend.
func (s *Session) Reset() {
	s.Transcript = []llm.Message{{Role: llm.RoleSystem, Content: SystemPrompt}}
	s.UploadedArtifact = ""
	s.RetrievalDocID = ""
	s.UpdatedAt = time.Now()
}

// SelectBackend switches the active backend, resetting the session when the
// value changes. It reports whether a reset happened.
func (s *Session) SelectBackend(b Backend) bool {
	if s.ActiveBackend == b {
		return false
	}
	s.ActiveBackend = b
	s.Reset()
	return true
}

func (s *Session) AppendUser(content string) {
	s.append(llm.RoleUser, content)
}

func (s *Session) AppendAssistant(content string) {
	s.append(llm.RoleAssistant, content)
}

func (s *Session) append(role, content string) {
	s.Transcript = append(s.Transcript, llm.Message{Role: role, Content: content})
	s.UpdatedAt = time.Now()
}

// AttachArtifact replaces the uploaded document. docID is "" unless the
// document was indexed on the retrieval server.
func (s *Session) AttachArtifact(content, docID string) {
	s.UploadedArtifact = content
	s.RetrievalDocID = docID
	s.UpdatedAt = time.Now()
}

func (s *Session) LogRetrieval(query, answer string) {
	s.RetrievalLog = append(s.RetrievalLog,
		llm.Message{Role: llm.RoleUser, Content: query},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)
	s.UpdatedAt = time.Now()
}

// History returns a copy of the transcript safe to hand to a provider.
func (s *Session) History() []llm.Message {
	out := make([]llm.Message, len(s.Transcript))
	copy(out, s.Transcript)
	return out
}
