package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/paperrag/agent/internal/model"
)

// ChunkRepo implements search.VectorSearcher and search.PaperLister against
// the papers/chunks schema.
type ChunkRepo struct {
	pool *pgxpool.Pool
}

// NewChunkRepo creates a ChunkRepo.
func NewChunkRepo(pool *pgxpool.Pool) *ChunkRepo {
	return &ChunkRepo{pool: pool}
}

// Filter narrows a search to a subset of papers.
type Filter = model.Filter

// VectorSearch finds the topK chunks whose embedding is nearest queryVec by
// cosine distance, returning similarity as 1 - cosine distance (in [-1,1]).
func (r *ChunkRepo) VectorSearch(ctx context.Context, queryVec []float32, topK int, filter Filter) ([]model.Chunk, []float64, error) {
	embedding := pgvector.NewVector(queryVec)

	query := `
		SELECT
			c.id, c.paper_ref, p.arxiv_id, p.title, c.chunk_index, c.content,
			c.section_name, c.page_number, c.word_count,
			1 - (c.embedding <=> $1::vector) AS similarity
		FROM chunks c
		JOIN papers p ON c.paper_ref = p.id
		WHERE c.embedding IS NOT NULL`

	args := []interface{}{embedding}
	query, args = applyFilter(query, args, filter)

	query += fmt.Sprintf(" ORDER BY c.embedding <=> $1::vector LIMIT $%d", len(args)+1)
	args = append(args, topK)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("repository.VectorSearch: %w", err)
	}
	defer rows.Close()

	var chunks []model.Chunk
	var scores []float64
	for rows.Next() {
		var c model.Chunk
		var score float64
		if err := rows.Scan(&c.ID, &c.PaperRef, &c.ArxivID, &c.PaperTitle, &c.ChunkIndex, &c.Text,
			&c.SectionName, &c.PageNumber, &c.WordCount, &score); err != nil {
			return nil, nil, fmt.Errorf("repository.VectorSearch: scan: %w", err)
		}
		chunks = append(chunks, c)
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("repository.VectorSearch: rows: %w", err)
	}

	slog.Debug("[DEBUG-REPO] vector search complete", "results", len(chunks), "top_k", topK)
	return chunks, scores, nil
}

// ListPapers returns papers matching filter, most recently published first,
// for the list_papers tool.
func (r *ChunkRepo) ListPapers(ctx context.Context, filter Filter, limit int) ([]model.Paper, error) {
	query := `
		SELECT id, arxiv_id, title, authors, abstract, categories,
		       published_date, pdf_url, created_at, updated_at
		FROM papers p
		WHERE true`

	args := []interface{}{}
	query, args = applyFilter(query, args, filter)

	query += fmt.Sprintf(" ORDER BY published_date DESC NULLS LAST LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.ListPapers: %w", err)
	}
	defer rows.Close()

	var papers []model.Paper
	for rows.Next() {
		var p model.Paper
		var published *time.Time
		if err := rows.Scan(&p.ID, &p.ArxivID, &p.Title, &p.Authors, &p.Abstract,
			&p.Categories, &published, &p.PDFURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListPapers: scan: %w", err)
		}
		if published != nil {
			p.PublishedDate = *published
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListPapers: rows: %w", err)
	}

	return papers, nil
}

func applyFilter(query string, args []interface{}, f Filter) (string, []interface{}) {
	if len(f.Categories) > 0 {
		args = append(args, f.Categories)
		query += fmt.Sprintf(" AND p.categories && $%d", len(args))
	}
	if f.ArxivID != "" {
		args = append(args, f.ArxivID)
		query += fmt.Sprintf(" AND p.arxiv_id = $%d", len(args))
	}
	if f.PublishedFrom != nil {
		args = append(args, *f.PublishedFrom)
		query += fmt.Sprintf(" AND p.published_date >= $%d", len(args))
	}
	if f.PublishedTo != nil {
		args = append(args, *f.PublishedTo)
		query += fmt.Sprintf(" AND p.published_date <= $%d", len(args))
	}
	return query, args
}
