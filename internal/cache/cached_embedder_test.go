package cache

import (
	"context"
	"testing"
	"time"
)

type fakeUnderlyingEmbedder struct {
	calls [][]string
	vecs  map[string][]float32
}

func (f *fakeUnderlyingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vecs[t]
	}
	return out, nil
}

func TestCachedEmbedder_MissesThenHits(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewEmbeddingCache(client, time.Minute)
	underlying := &fakeUnderlyingEmbedder{vecs: map[string][]float32{
		"what is attention": {0.1, 0.2, 0.3},
	}}
	ce := NewCachedEmbedder(underlying, cache)
	ctx := context.Background()

	vecs, err := ce.Embed(ctx, []string{"what is attention"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vecs) != 1 || len(vecs[0]) != 3 {
		t.Fatalf("vecs = %v, want one 3-dim vector", vecs)
	}
	if len(underlying.calls) != 1 {
		t.Fatalf("underlying called %d times, want 1 (cache miss)", len(underlying.calls))
	}

	vecs2, err := ce.Embed(ctx, []string{"what is attention"})
	if err != nil {
		t.Fatalf("Embed() second call error: %v", err)
	}
	if len(vecs2) != 1 || len(vecs2[0]) != 3 {
		t.Fatalf("vecs2 = %v, want one 3-dim vector", vecs2)
	}
	if len(underlying.calls) != 1 {
		t.Errorf("underlying called %d times, want still 1 (second call should be a cache hit)", len(underlying.calls))
	}
}

func TestCachedEmbedder_BatchesOnlyMisses(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewEmbeddingCache(client, time.Minute)
	underlying := &fakeUnderlyingEmbedder{vecs: map[string][]float32{
		"already cached": {1, 1},
		"not cached yet": {2, 2},
	}}
	ce := NewCachedEmbedder(underlying, cache)
	ctx := context.Background()

	cache.Set(ctx, EmbeddingQueryHash("already cached"), []float32{9, 9})

	vecs, err := ce.Embed(ctx, []string{"already cached", "not cached yet"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if vecs[0][0] != 9 {
		t.Errorf("vecs[0] = %v, want the pre-cached vector [9 9]", vecs[0])
	}
	if vecs[1][0] != 2 {
		t.Errorf("vecs[1] = %v, want the underlying vector [2 2]", vecs[1])
	}
	if len(underlying.calls) != 1 || len(underlying.calls[0]) != 1 {
		t.Fatalf("expected exactly one underlying call batching just the miss, got %v", underlying.calls)
	}
}
