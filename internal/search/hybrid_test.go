package search

import (
	"context"
	"testing"

	"github.com/paperrag/agent/internal/model"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

type stubVectorSearcher struct {
	chunks []model.Chunk
	scores []float64
}

func (s *stubVectorSearcher) VectorSearch(ctx context.Context, queryVec []float32, topK int, filter Filter) ([]model.Chunk, []float64, error) {
	return s.chunks, s.scores, nil
}

type stubLexicalSearcher struct {
	chunks []model.Chunk
	scores []float64
}

func (s *stubLexicalSearcher) LexicalSearch(ctx context.Context, query string, topK int, filter Filter) ([]model.Chunk, []float64, error) {
	return s.chunks, s.scores, nil
}

type stubPaperLister struct {
	papers []model.Paper
}

func (s *stubPaperLister) ListPapers(ctx context.Context, filter Filter, limit int) ([]model.Paper, error) {
	return s.papers, nil
}

func chunk(arxivID string, idx int) model.Chunk {
	return model.Chunk{ArxivID: arxivID, ChunkIndex: idx, Text: arxivID}
}

func TestHybridSearchService_Search_FusesBothBranches(t *testing.T) {
	vecChunks := []model.Chunk{chunk("a", 0), chunk("b", 0), chunk("c", 0)}
	lexChunks := []model.Chunk{chunk("b", 0), chunk("a", 0)}

	svc := NewHybridSearchService(
		&stubEmbedder{vec: []float32{1, 0, 0}},
		&stubVectorSearcher{chunks: vecChunks},
		&stubLexicalSearcher{chunks: lexChunks},
		&stubPaperLister{},
	)

	results, err := svc.Search(context.Background(), "attention mechanisms", 3, Filter{})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Search() returned %d results, want 3", len(results))
	}

	// "b" appears at vector rank 1 and lexical rank 0; "a" at vector rank 0
	// and lexical rank 1. Their RRF scores are equal, so "a" wins the
	// vector-rank tie-break.
	if results[0].Chunk.ArxivID != "a" {
		t.Errorf("results[0] = %q, want %q (vector-rank tie-break)", results[0].Chunk.ArxivID, "a")
	}
	if results[0].FusedScore != 1.0 {
		t.Errorf("top FusedScore = %f, want 1.0 (normalized)", results[0].FusedScore)
	}
}

func TestHybridSearchService_Search_PresentInOneBranchBeatsAbsent(t *testing.T) {
	// "z" and "a" score identically (each appears in exactly one branch at
	// the same rank), but "z"'s vector-branch membership outranks "a"'s
	// absence from the vector branch.
	vecChunks := []model.Chunk{chunk("z", 0)}
	lexChunks := []model.Chunk{chunk("a", 0)}

	svc := NewHybridSearchService(
		&stubEmbedder{vec: []float32{1, 0, 0}},
		&stubVectorSearcher{chunks: vecChunks},
		&stubLexicalSearcher{chunks: lexChunks},
		&stubPaperLister{},
	)

	results, err := svc.Search(context.Background(), "diffusion models", 2, Filter{})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Chunk.ArxivID != "z" {
		t.Errorf("results[0] = %q, want %q (vector-branch membership outranks absence)", results[0].Chunk.ArxivID, "z")
	}
}

func TestHybridSearchService_Search_MergesChunkAppearingInBothBranches(t *testing.T) {
	shared := chunk("shared", 0)
	vecChunks := []model.Chunk{shared, chunk("vec-only", 0)}
	lexChunks := []model.Chunk{shared, chunk("lex-only", 0)}

	svc := NewHybridSearchService(
		&stubEmbedder{vec: []float32{1, 0, 0}},
		&stubVectorSearcher{chunks: vecChunks},
		&stubLexicalSearcher{chunks: lexChunks},
		&stubPaperLister{},
	)

	results, err := svc.Search(context.Background(), "shared topic", 3, Filter{})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Search() returned %d results, want 3", len(results))
	}
	if results[0].Chunk.ArxivID != "shared" {
		t.Errorf("results[0] = %q, want %q (appears in both branches)", results[0].Chunk.ArxivID, "shared")
	}
	if results[0].FusedScore != 1.0 {
		t.Errorf("top FusedScore = %f, want 1.0", results[0].FusedScore)
	}
}

func TestHybridSearchService_Search_EmptyWhenNoCandidates(t *testing.T) {
	svc := NewHybridSearchService(
		&stubEmbedder{vec: []float32{1, 0, 0}},
		&stubVectorSearcher{},
		&stubLexicalSearcher{},
		&stubPaperLister{},
	)

	results, err := svc.Search(context.Background(), "a query with no matches", 5, Filter{})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() returned %d results, want 0", len(results))
	}
}

func TestHybridSearchService_Search_RejectsEmptyQuery(t *testing.T) {
	svc := NewHybridSearchService(&stubEmbedder{}, &stubVectorSearcher{}, &stubLexicalSearcher{}, &stubPaperLister{})
	if _, err := svc.Search(context.Background(), "", 5, Filter{}); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestHybridSearchService_Search_RejectsOutOfRangeTopK(t *testing.T) {
	svc := NewHybridSearchService(&stubEmbedder{}, &stubVectorSearcher{}, &stubLexicalSearcher{}, &stubPaperLister{})
	if _, err := svc.Search(context.Background(), "query", 0, Filter{}); err == nil {
		t.Error("expected error for top_k=0")
	}
	if _, err := svc.Search(context.Background(), "query", 51, Filter{}); err == nil {
		t.Error("expected error for top_k=51")
	}
}

func TestHybridSearchService_Search_PropagatesEmbedError(t *testing.T) {
	svc := NewHybridSearchService(
		&stubEmbedder{err: errEmbed},
		&stubVectorSearcher{},
		&stubLexicalSearcher{},
		&stubPaperLister{},
	)
	if _, err := svc.Search(context.Background(), "query", 5, Filter{}); err == nil {
		t.Error("expected embed error to propagate")
	}
}

var errEmbed = &embedError{"embedding service unavailable"}

type embedError struct{ msg string }

func (e *embedError) Error() string { return e.msg }
