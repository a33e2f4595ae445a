package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"medconsult-be/internal/pkg/logger"

	"github.com/tidwall/gjson"
)

var ErrMalformedStore = errors.New("chunk store is neither a JSON object nor a JSON array")

// FileSource reads LightRAG's kv_store_text_chunks.json. The store is either an
// object keyed by chunk id (insertion order = recency order) or a plain array.
type FileSource struct {
	path   string
	logger logger.ILogger
}

var _ Source = &FileSource{}

func NewFileSource(path string, log logger.ILogger) *FileSource {
	return &FileSource{path: path, logger: log}
}

func (s *FileSource) Recent(ctx context.Context, n int) []Fragment {
	items, err := s.load()
	if err != nil {
		s.logger.Warn("MEMORY", "Knowledge store unavailable", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return diagnostic(err)
	}
	return tail(items, n)
}

func (s *FileSource) load() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s: invalid JSON", s.path)
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() && !root.IsArray() {
		return nil, ErrMalformedStore
	}

	// ForEach walks values in document order, which a Go map would lose.
	items := make([]string, 0)
	root.ForEach(func(_, value gjson.Result) bool {
		items = append(items, renderChunk(value))
		return true
	})
	return items, nil
}

// renderChunk prefers a chunk's "content" field and falls back to its JSON.
func renderChunk(v gjson.Result) string {
	if v.IsObject() {
		if content := v.Get("content"); content.Exists() {
			return content.String()
		}
	}
	if v.Type == gjson.String {
		return v.String()
	}
	return strings.TrimSpace(v.Raw)
}
