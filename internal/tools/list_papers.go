package tools

import (
	"context"
	"fmt"

	"github.com/paperrag/agent/internal/model"
	"github.com/paperrag/agent/internal/search"
)

// ListPapersSpec describes the optional list_papers introspection tool.
var ListPapersSpec = Spec{
	Name:        "list_papers",
	Description: "List papers in the corpus, optionally filtered by category or arxiv_id.",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"categories": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"arxiv_id":   map[string]interface{}{"type": "string"},
			"limit":      map[string]interface{}{"type": "integer", "maximum": 50},
		},
	},
}

// ListPapersTool implements the optional list_papers tool.
type ListPapersTool struct {
	search *search.HybridSearchService
}

// NewListPapersTool creates a ListPapersTool backed by svc.
func NewListPapersTool(svc *search.HybridSearchService) *ListPapersTool {
	return &ListPapersTool{search: svc}
}

type listPapersResult struct {
	Papers []model.Paper `json:"papers"`
	Count  int           `json:"count"`
}

// Execute lists papers matching the requested filter.
func (t *ListPapersTool) Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error) {
	filter := search.Filter{}
	if raw, ok := params["arxiv_id"].(string); ok {
		filter.ArxivID = raw
	}
	if raw, ok := params["categories"].([]interface{}); ok {
		for _, c := range raw {
			if s, ok := c.(string); ok {
				filter.Categories = append(filter.Categories, s)
			}
		}
	}

	limit := 20
	if raw, ok := params["limit"]; ok {
		if n, ok := toInt(raw); ok {
			limit = n
		}
	}
	if limit > 50 {
		limit = 50
	}
	if limit < 1 {
		limit = 1
	}

	papers, err := t.search.ListPapers(ctx, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("tools.ListPapersTool: %w", err)
	}

	return &ToolResult{Data: listPapersResult{Papers: papers, Count: len(papers)}}, nil
}
