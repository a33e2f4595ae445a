package lightrag

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonServer(t *testing.T, status int, body string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			raw, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(raw, captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestQueryExtractionPrecedence(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantKind    ResultKind
		wantDisplay string
	}{
		{"error beats response", `{"error":"index missing","response":"ignored"}`, KindServerError, "Server error: index missing"},
		{"response beats summary", `{"response":"Metformin is first line.","summary":"ignored"}`, KindAnswer, "Metformin is first line."},
		{"summary only", `{"summary":"Short summary."}`, KindSummary, "Short summary."},
		{"nothing known", `{"status":"ok"}`, KindDefault, "No summary available."},
		{"not an object", `["a","b"]`, KindUnavailable, "Server error, please try again later: response is not a JSON object"},
		{"not json", `<html>`, KindUnavailable, "Server error, please try again later: invalid JSON in response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, http.StatusOK, tt.body, nil)
			defer srv.Close()

			res := NewClient(srv.URL, time.Second).Query(context.Background(), "q", DefaultQueryParams())

			assert.Equal(t, tt.wantKind, res.Kind)
			assert.Equal(t, tt.wantDisplay, res.Display())
		})
	}
}

func TestQuerySendsParams(t *testing.T) {
	var got map[string]any
	srv := jsonServer(t, http.StatusOK, `{"response":"ok"}`, &got)
	defer srv.Close()

	res := NewClient(srv.URL+"/", time.Second).Query(context.Background(), "what is sepsis?", DefaultQueryParams())

	require.Equal(t, KindAnswer, res.Kind)
	assert.Equal(t, "what is sepsis?", got["query"])
	assert.EqualValues(t, 40, got["kg_top_k"])
	assert.EqualValues(t, 10, got["chunk_top_k"])
	assert.EqualValues(t, 10000, got["max_entity_tokens"])
	assert.EqualValues(t, 10000, got["max_relation_tokens"])
	assert.EqualValues(t, 32000, got["max_total_tokens"])
	assert.Equal(t, true, got["enable_rerank"])
	assert.Equal(t, false, got["only_need_context"])
	assert.Equal(t, false, got["only_need_prompt"])
	assert.Equal(t, true, got["stream_response"])
}

func TestQueryReferencesKeepServerOrder(t *testing.T) {
	srv := jsonServer(t, http.StatusOK,
		`{"response":"ans","references":[{"reference_id":"2","file_path":"b.pdf"},{"reference_id":"1","file_path":"a.pdf"},"loose note"]}`, nil)
	defer srv.Close()

	res := NewClient(srv.URL, time.Second).Query(context.Background(), "q", DefaultQueryParams())

	require.Len(t, res.References, 3)
	assert.Equal(t, "b.pdf", res.References[0].FilePath)
	assert.Equal(t, "a.pdf", res.References[1].FilePath)
	assert.Equal(t, "**References:**\n[1] b.pdf\n[2] a.pdf\n[3] loose note", res.RenderReferences())
}

func TestQueryNoReferences(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"response":"ans"}`, nil)
	defer srv.Close()

	res := NewClient(srv.URL, time.Second).Query(context.Background(), "q", DefaultQueryParams())

	assert.Nil(t, res.References)
	assert.Empty(t, res.RenderReferences())
}

func TestQueryFailedStatus(t *testing.T) {
	srv := jsonServer(t, http.StatusInternalServerError, `boom`, nil)
	defer srv.Close()

	res := NewClient(srv.URL, time.Second).Query(context.Background(), "q", DefaultQueryParams())

	assert.Equal(t, KindFailedStatus, res.Kind)
	assert.True(t, res.Failed())
	assert.Equal(t, "Server error, please try again later: status 500: boom", res.Display())
}

func TestQueryUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewClient(url, time.Second).Query(context.Background(), "q", DefaultQueryParams())

	assert.Equal(t, KindUnavailable, res.Kind)
	assert.Contains(t, res.Display(), "Server error, please try again later: ")
}

func TestInsertText(t *testing.T) {
	var got map[string]any
	srv := jsonServer(t, http.StatusOK, `{"status":"success","doc_id":"doc-42"}`, &got)
	defer srv.Close()

	id, err := NewClient(srv.URL, time.Second).InsertText(context.Background(), "patient notes")

	require.NoError(t, err)
	assert.Equal(t, "doc-42", id)
	assert.Equal(t, "patient notes", got["text"])
}

func TestInsertTextFailures(t *testing.T) {
	t.Run("missing doc_id", func(t *testing.T) {
		srv := jsonServer(t, http.StatusOK, `{"status":"success"}`, nil)
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).InsertText(context.Background(), "x")

		assert.ErrorIs(t, err, ErrNoDocID)
	})
	t.Run("bad status", func(t *testing.T) {
		srv := jsonServer(t, http.StatusBadGateway, `down`, nil)
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).InsertText(context.Background(), "x")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})
}
