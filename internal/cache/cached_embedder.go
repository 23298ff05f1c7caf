package cache

import (
	"context"
	"time"
)

// Embedder is the subset of llm.Embedder this package depends on, kept
// narrow to avoid an import cycle with the llm package.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// CachedEmbedder wraps an Embedder with a Redis-backed cache, checking each
// text's normalized hash before delegating misses to the underlying
// embedder in one batch.
type CachedEmbedder struct {
	Embedder Embedder
	Cache    *EmbeddingCache
}

// NewCachedEmbedder creates a CachedEmbedder backed by embedder and cache.
func NewCachedEmbedder(embedder Embedder, cache *EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{Embedder: embedder, Cache: cache}
}

// NewTTL converts seconds into a time.Duration, used by callers constructing
// an EmbeddingCache from config.
func NewTTL(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Embed returns embeddings for texts, serving cached entries directly and
// batching the rest through the underlying embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	hashes := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		hash := EmbeddingQueryHash(t)
		hashes[i] = hash
		if vec, ok := c.Cache.Get(ctx, hash); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.Embedder.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIdx {
		out[idx] = vecs[j]
		c.Cache.Set(ctx, hashes[idx], vecs[j])
	}

	return out, nil
}
