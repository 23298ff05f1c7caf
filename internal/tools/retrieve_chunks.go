package tools

import (
	"context"
	"fmt"

	"github.com/paperrag/agent/internal/search"
)

// RetrieveChunksSpec describes the retrieve_chunks tool for router prompting.
var RetrieveChunksSpec = Spec{
	Name:        "retrieve_chunks",
	Description: "Search the paper corpus for chunks relevant to a query.",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query":  map[string]interface{}{"type": "string"},
			"top_k":  map[string]interface{}{"type": "integer", "maximum": 10},
		},
		"required": []string{"query"},
	},
}

// RetrieveChunksTool implements retrieve_chunks(query, top_k<=10).
type RetrieveChunksTool struct {
	search *search.HybridSearchService
}

// NewRetrieveChunksTool creates a RetrieveChunksTool backed by svc.
func NewRetrieveChunksTool(svc *search.HybridSearchService) *RetrieveChunksTool {
	return &RetrieveChunksTool{search: svc}
}

// RetrieveChunksResult is the shaped output of the retrieve_chunks tool.
type RetrieveChunksResult struct {
	Chunks []RetrievedChunk `json:"chunks"`
	Count  int              `json:"count"`
}

// RetrievedChunk is one chunk surfaced by retrieve_chunks.
type RetrievedChunk struct {
	ArxivID    string  `json:"arxiv_id"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	ChunkText  string  `json:"chunk_text"`
	Score      float64 `json:"score"`
	Section    string  `json:"section,omitempty"`
	Page       *int    `json:"page,omitempty"`
}

// Execute runs the search and shapes its output per the tool contract.
func (t *RetrieveChunksTool) Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error) {
	query, _ := params["query"].(string)
	if query == "" {
		return nil, NewValidationError("retrieve_chunks", "query is required")
	}

	topK := 5
	if raw, ok := params["top_k"]; ok {
		if n, ok := toInt(raw); ok {
			topK = n
		}
	}
	if topK > 10 {
		topK = 10
	}
	if topK < 1 {
		topK = 1
	}

	results, err := t.search.Search(ctx, query, topK, search.Filter{})
	if err != nil {
		return nil, fmt.Errorf("tools.RetrieveChunksTool: %w", err)
	}

	chunks := make([]RetrievedChunk, len(results))
	for i, r := range results {
		chunks[i] = RetrievedChunk{
			ArxivID:    r.Chunk.ArxivID,
			Title:      r.Chunk.PaperTitle,
			ChunkIndex: r.Chunk.ChunkIndex,
			ChunkText:  r.Chunk.Text,
			Score:      r.FusedScore,
			Section:    r.Chunk.SectionName,
			Page:       r.Chunk.PageNumber,
		}
	}

	return &ToolResult{Data: RetrieveChunksResult{Chunks: chunks, Count: len(chunks)}}, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
