// Package cache provides caching for the retrieval pipeline.
//
// EmbeddingCache stores query→vector mappings in Redis to avoid redundant
// embedding-service calls for repeated or similar queries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// EmbeddingCache caches query embedding vectors in Redis, keyed by
// normalized query hash. Entries auto-expire via Redis TTL.
type EmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEmbeddingCache creates an EmbeddingCache backed by client.
func NewEmbeddingCache(client *redis.Client, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{client: client, ttl: ttl}
}

// Get returns a cached embedding vector if present.
func (c *EmbeddingCache) Get(ctx context.Context, queryHash string) ([]float32, bool) {
	raw, err := c.client.Get(ctx, queryHash).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("[EMBED-CACHE] get failed", "error", err, "query_hash", queryHash)
		}
		return nil, false
	}

	vec, err := decodeVector(raw)
	if err != nil {
		slog.Warn("[EMBED-CACHE] corrupt entry", "error", err, "query_hash", queryHash)
		return nil, false
	}

	slog.Info("[EMBED-CACHE] hit", "query_hash", queryHash)
	return vec, true
}

// Set stores an embedding vector in the cache with the configured TTL.
func (c *EmbeddingCache) Set(ctx context.Context, queryHash string, vec []float32) {
	if err := c.client.Set(ctx, queryHash, encodeVector(vec), c.ttl).Err(); err != nil {
		slog.Warn("[EMBED-CACHE] set failed", "error", err, "query_hash", queryHash)
		return
	}
	slog.Info("[EMBED-CACHE] set", "query_hash", queryHash, "vec_dim", len(vec), "ttl_s", int(c.ttl.Seconds()))
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("cache.decodeVector: buffer length %d not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

// EmbeddingQueryHash returns a deterministic cache key for a query string.
// Normalizes by lowercasing and trimming whitespace before hashing.
func EmbeddingQueryHash(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("emb:%x", h[:16])
}
