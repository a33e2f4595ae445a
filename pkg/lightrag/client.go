package lightrag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const DefaultTimeout = 10 * time.Second

var ErrNoDocID = errors.New("lightrag: ingestion response has no doc_id")

// QueryParams are the retrieval knobs sent with every query.
type QueryParams struct {
	KGTopK            int  `json:"kg_top_k" validate:"min=1,max=100"`
	ChunkTopK         int  `json:"chunk_top_k" validate:"min=1,max=100"`
	MaxEntityTokens   int  `json:"max_entity_tokens" validate:"min=100,max=50000"`
	MaxRelationTokens int  `json:"max_relation_tokens" validate:"min=100,max=50000"`
	MaxTotalTokens    int  `json:"max_total_tokens" validate:"min=1000,max=64000"`
	EnableRerank      bool `json:"enable_rerank"`
	OnlyNeedContext   bool `json:"only_need_context"`
	OnlyNeedPrompt    bool `json:"only_need_prompt"`
	StreamResponse    bool `json:"stream_response"`
}

func DefaultQueryParams() QueryParams {
	return QueryParams{
		KGTopK:            40,
		ChunkTopK:         10,
		MaxEntityTokens:   10000,
		MaxRelationTokens: 10000,
		MaxTotalTokens:    32000,
		EnableRerank:      true,
		StreamResponse:    true,
	}
}

type queryRequest struct {
	Query string `json:"query"`
	QueryParams
}

type insertTextRequest struct {
	Text string `json:"text"`
}

// Client is a stateless LightRAG server client.
type Client struct {
	baseURL string
	http    *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
}

// Query never returns an error: every failure is folded into the Result kind.
func (c *Client) Query(ctx context.Context, query string, params QueryParams) Result {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(queryRequest{Query: query, QueryParams: params}).
		Post(c.baseURL + "/query")
	if err != nil {
		return Result{Kind: KindUnavailable, Error: err.Error()}
	}
	if !resp.IsSuccess() {
		return Result{
			Kind:  KindFailedStatus,
			Error: fmt.Sprintf("status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())),
		}
	}
	return parseResult(resp.Body())
}

// InsertText indexes a document and returns the server-assigned id.
func (c *Client) InsertText(ctx context.Context, text string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(insertTextRequest{Text: text}).
		Post(c.baseURL + "/documents/text")
	if err != nil {
		return "", fmt.Errorf("lightrag: insert text: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("lightrag: insert text: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	docID := gjson.GetBytes(resp.Body(), "doc_id")
	if !docID.Exists() || docID.String() == "" {
		return "", ErrNoDocID
	}
	return docID.String(), nil
}
