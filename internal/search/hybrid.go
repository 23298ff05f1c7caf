// Package search implements hybrid vector + lexical retrieval over the
// paper corpus, fusing both branches with Reciprocal Rank Fusion.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/paperrag/agent/internal/model"
)

const rrfK = 60

// QueryEmbedder abstracts query embedding for testability.
type QueryEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Filter narrows a search to a subset of papers.
type Filter = model.Filter

// VectorSearcher abstracts cosine-similarity search for testability.
type VectorSearcher interface {
	VectorSearch(ctx context.Context, queryVec []float32, topK int, filter Filter) ([]model.Chunk, []float64, error)
}

// LexicalSearcher abstracts full-text search for testability.
type LexicalSearcher interface {
	LexicalSearch(ctx context.Context, query string, topK int, filter Filter) ([]model.Chunk, []float64, error)
}

// PaperLister abstracts the list_papers introspection tool.
type PaperLister interface {
	ListPapers(ctx context.Context, filter Filter, limit int) ([]model.Paper, error)
}

// Result is one fused, ranked chunk.
type Result struct {
	Chunk      model.Chunk `json:"chunk"`
	FusedScore float64     `json:"fusedScore"`
}

// HybridSearchService answers search(query, top_k, filters) requests by
// fusing a vector branch and a lexical branch with reciprocal rank fusion.
type HybridSearchService struct {
	embedder QueryEmbedder
	vector   VectorSearcher
	lexical  LexicalSearcher
	papers   PaperLister
}

// NewHybridSearchService creates a HybridSearchService.
func NewHybridSearchService(embedder QueryEmbedder, vector VectorSearcher, lexical LexicalSearcher, papers PaperLister) *HybridSearchService {
	return &HybridSearchService{embedder: embedder, vector: vector, lexical: lexical, papers: papers}
}

// Search embeds query, runs the vector and lexical branches concurrently,
// fuses with RRF, and returns at most topK results with scores normalized
// into [0,1].
func (s *HybridSearchService) Search(ctx context.Context, query string, topK int, filter Filter) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("search.Search: query is empty")
	}
	if topK < 1 || topK > 50 {
		return nil, fmt.Errorf("search.Search: top_k must be in 1..50, got %d", topK)
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("search.Search: embed: %w", err)
	}
	queryVec := vecs[0]

	n := topK * 10
	if n < 50 {
		n = 50
	}

	// Fusion is rank-based, so the branches' own similarity
	// scores are discarded once each list's order is captured.
	var vectorChunks, lexicalChunks []model.Chunk

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorChunks, _, err = s.vector.VectorSearch(gCtx, queryVec, n, filter)
		return err
	})
	g.Go(func() error {
		var err error
		lexicalChunks, _, err = s.lexical.LexicalSearch(gCtx, query, n, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search.Search: %w", err)
	}

	slog.Debug("[DEBUG-SEARCH] branch results",
		"vector_candidates", len(vectorChunks),
		"lexical_candidates", len(lexicalChunks),
		"n", n,
	)

	fused := reciprocalRankFusion(vectorChunks, lexicalChunks)
	if len(fused) == 0 {
		return []Result{}, nil
	}

	if len(fused) > topK {
		fused = fused[:topK]
	}

	top := fused[0].score
	if top == 0 {
		return []Result{}, nil
	}
	results := make([]Result, len(fused))
	for i, f := range fused {
		results[i] = Result{Chunk: f.chunk, FusedScore: f.score / top}
	}

	return results, nil
}

// ListPapers delegates to the repository for the list_papers tool.
func (s *HybridSearchService) ListPapers(ctx context.Context, filter Filter, limit int) ([]model.Paper, error) {
	papers, err := s.papers.ListPapers(ctx, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("search.ListPapers: %w", err)
	}
	return papers, nil
}

type fusedEntry struct {
	chunk       model.Chunk
	score       float64
	vectorRank  int // -1 if absent
	lexicalRank int // -1 if absent
}

func chunkKey(c model.Chunk) string {
	return c.ArxivID + "#" + fmt.Sprintf("%d", c.ChunkIndex)
}

// reciprocalRankFusion combines the vector and lexical branches. Ties in
// fused score are broken by lower vector rank, then lower lexical rank,
// then arxiv_id lexicographic order.
func reciprocalRankFusion(vectorChunks, lexicalChunks []model.Chunk) []fusedEntry {
	entries := make(map[string]*fusedEntry)

	order := make([]string, 0, len(vectorChunks)+len(lexicalChunks))
	get := func(c model.Chunk) *fusedEntry {
		key := chunkKey(c)
		e, ok := entries[key]
		if !ok {
			e = &fusedEntry{chunk: c, vectorRank: -1, lexicalRank: -1}
			entries[key] = e
			order = append(order, key)
		}
		return e
	}

	for rank, c := range vectorChunks {
		e := get(c)
		e.score += 1.0 / float64(rrfK+rank+1)
		e.vectorRank = rank
	}
	for rank, c := range lexicalChunks {
		e := get(c)
		e.score += 1.0 / float64(rrfK+rank+1)
		e.lexicalRank = rank
	}

	result := make([]fusedEntry, 0, len(order))
	for _, key := range order {
		result = append(result, *entries[key])
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.score != b.score {
			return a.score > b.score
		}
		ra, rb := rankOrInf(a.vectorRank), rankOrInf(b.vectorRank)
		if ra != rb {
			return ra < rb
		}
		ra, rb = rankOrInf(a.lexicalRank), rankOrInf(b.lexicalRank)
		if ra != rb {
			return ra < rb
		}
		return a.chunk.ArxivID < b.chunk.ArxivID
	})

	return result
}

func rankOrInf(rank int) int {
	if rank < 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}
