package dto

import "medconsult-be/pkg/lightrag"

// RetrievalQueryRequest is decoded over lightrag.DefaultQueryParams, so
// omitted knobs keep their defaults.
type RetrievalQueryRequest struct {
	SessionId string `json:"session_id,omitempty" validate:"omitempty,uuid"`
	Query     string `json:"query" validate:"required"`
	lightrag.QueryParams
}

func NewRetrievalQueryRequest() RetrievalQueryRequest {
	return RetrievalQueryRequest{QueryParams: lightrag.DefaultQueryParams()}
}

type RetrievalQueryResponse struct {
	Kind           string               `json:"kind"`
	Answer         string               `json:"answer"`
	Failed         bool                 `json:"failed"`
	References     []lightrag.Reference `json:"references,omitempty"`
	ReferencesText string               `json:"references_text,omitempty"`
}

type RetrievalHistoryResponse struct {
	SessionId string       `json:"session_id"`
	Log       []MessageDTO `json:"log"`
}
