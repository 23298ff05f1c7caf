package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperrag/agent/internal/model"
)

// BM25Repository implements search.LexicalSearcher using PostgreSQL
// ts_vector, backed by the GIN index on chunks.content_tsv.
type BM25Repository struct {
	pool *pgxpool.Pool
}

// NewBM25Repository creates a BM25Repository.
func NewBM25Repository(pool *pgxpool.Pool) *BM25Repository {
	return &BM25Repository{pool: pool}
}

// LexicalSearch finds chunks whose content matches query via full-text
// search, ranked by ts_rank_cd, optionally narrowed by filter.
func (r *BM25Repository) LexicalSearch(ctx context.Context, query string, topK int, filter Filter) ([]model.Chunk, []float64, error) {
	sqlQuery := `
		SELECT
			c.id, c.paper_ref, p.arxiv_id, p.title, c.chunk_index, c.content,
			c.section_name, c.page_number, c.word_count,
			ts_rank_cd(c.content_tsv, plainto_tsquery('english', $1)) AS rank
		FROM chunks c
		JOIN papers p ON c.paper_ref = p.id
		WHERE c.content_tsv @@ plainto_tsquery('english', $1)`

	args := []interface{}{query}
	sqlQuery, args = applyFilter(sqlQuery, args, filter)

	sqlQuery += fmt.Sprintf(" ORDER BY rank DESC LIMIT $%d", len(args)+1)
	args = append(args, topK)

	rows, err := r.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("repository.LexicalSearch: %w", err)
	}
	defer rows.Close()

	var chunks []model.Chunk
	var scores []float64
	for rows.Next() {
		var c model.Chunk
		var score float64
		if err := rows.Scan(&c.ID, &c.PaperRef, &c.ArxivID, &c.PaperTitle, &c.ChunkIndex, &c.Text,
			&c.SectionName, &c.PageNumber, &c.WordCount, &score); err != nil {
			return nil, nil, fmt.Errorf("repository.LexicalSearch: scan: %w", err)
		}
		chunks = append(chunks, c)
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("repository.LexicalSearch: rows: %w", err)
	}

	slog.Debug("[DEBUG-REPO] lexical search complete", "results", len(chunks), "top_k", topK)
	return chunks, scores, nil
}
