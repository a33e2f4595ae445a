package store

import (
	"testing"

	"medconsult-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionStartsWithSystemMessage(t *testing.T) {
	s := NewSession("s1", "u1", BackendOpenAI)

	require.Len(t, s.Transcript, 1)
	assert.Equal(t, llm.RoleSystem, s.Transcript[0].Role)
	assert.Equal(t, SystemPrompt, s.Transcript[0].Content)
}

func TestSelectBackendResetsOnChange(t *testing.T) {
	for _, from := range Backends {
		for _, to := range Backends {
			if from == to {
				continue
			}
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				s := NewSession("s1", "u1", from)
				s.AppendUser("q")
				s.AppendAssistant("a")
				s.AttachArtifact("file body", "doc-1")

				reset := s.SelectBackend(to)

				assert.True(t, reset)
				assert.Equal(t, to, s.ActiveBackend)
				require.Len(t, s.Transcript, 1)
				assert.Equal(t, llm.RoleSystem, s.Transcript[0].Role)
				assert.Empty(t, s.UploadedArtifact)
				assert.Empty(t, s.RetrievalDocID)
			})
		}
	}
}

func TestSelectSameBackendKeepsState(t *testing.T) {
	s := NewSession("s1", "u1", BackendLocal)
	s.AppendUser("q")
	s.AttachArtifact("body", "")

	assert.False(t, s.SelectBackend(BackendLocal))
	assert.Len(t, s.Transcript, 2)
	assert.Equal(t, "body", s.UploadedArtifact)
}

func TestSwitchMidSessionWithFourMessages(t *testing.T) {
	s := NewSession("s1", "u1", BackendOpenAI)
	s.AppendUser("q1")
	s.AppendAssistant("a1")
	s.AppendUser("q2")
	s.AppendAssistant("a2")
	require.Len(t, s.Transcript, 5)

	s.SelectBackend(BackendLocal)

	assert.Len(t, s.Transcript, 1)
}

func TestRetrievalLogSurvivesBackendSwitch(t *testing.T) {
	s := NewSession("s1", "u1", BackendOpenAI)
	s.LogRetrieval("what is x", "x is y")

	s.SelectBackend(BackendLightRAG)

	assert.Len(t, s.RetrievalLog, 2)
}

func TestHistoryIsACopy(t *testing.T) {
	s := NewSession("s1", "u1", BackendOpenAI)
	h := s.History()
	h[0].Content = "mutated"

	assert.Equal(t, SystemPrompt, s.Transcript[0].Content)
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"openai", BackendOpenAI, false},
		{"local", BackendLocal, false},
		{"lightrag", BackendLightRAG, false},
		{"gemini", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
