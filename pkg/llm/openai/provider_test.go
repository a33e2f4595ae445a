package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medconsult-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, deltas []string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			_ = json.Unmarshal(body, captured)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			chunk := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": d}}},
			}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestChatStreamDeliversFragmentsInOrder(t *testing.T) {
	var req map[string]any
	srv := sseServer(t, []string{"Hyper", "tension ", "is high blood pressure."}, &req)
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", srv.URL, "gpt-4o", 5*time.Second)

	var seen []string
	got, err := p.ChatStream(context.Background(),
		[]llm.Message{{Role: llm.RoleSystem, Content: "sys"}, {Role: llm.RoleUser, Content: "q"}},
		func(f string) { seen = append(seen, f) },
		llm.WithTemperature(0.3), llm.WithMaxTokens(128),
	)

	require.NoError(t, err)
	assert.Equal(t, "Hypertension is high blood pressure.", got)
	assert.Equal(t, []string{"Hyper", "tension ", "is high blood pressure."}, seen)
	assert.Equal(t, "gpt-4o", req["model"])
	assert.Equal(t, true, req["stream"])
	assert.EqualValues(t, 128, req["max_tokens"])
	assert.Len(t, req["messages"], 2)
}

func TestChatStreamEmptyAnswer(t *testing.T) {
	srv := sseServer(t, nil, nil)
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", srv.URL, "gpt-4o", 5*time.Second)

	calls := 0
	got, err := p.ChatStream(context.Background(), nil, func(string) { calls++ })

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, calls)
}

func TestChatStreamAuthFailureIsErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("bad", srv.URL, "gpt-4o", 5*time.Second)

	_, err := p.ChatStream(context.Background(), nil, nil)

	require.Error(t, err)
	var perr *llm.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, llm.KindErrorResponse, perr.Kind)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
}

func TestChatStreamUnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewOpenAIProvider("sk-test", url, "gpt-4o", 2*time.Second)

	_, err := p.ChatStream(context.Background(), nil, nil)

	require.Error(t, err)
	assert.Equal(t, llm.KindUnavailable, llm.KindOf(err))
}
