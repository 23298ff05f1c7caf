package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestPool connects to DATABASE_URL and applies the schema migration,
// retrying briefly in case the test database is still coming up. Tests using
// this helper are skipped when DATABASE_URL is unset.
func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, dbURL, 5)
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}

	schema, err := os.ReadFile("../../migrations/001_initial_schema.up.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	var applyErr error
	for attempt := 0; attempt < 3; attempt++ {
		if _, applyErr = pool.Exec(ctx, string(schema)); applyErr == nil {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if applyErr != nil {
		t.Fatalf("apply schema: %v", applyErr)
	}

	t.Cleanup(func() {
		pool.Exec(context.Background(), "TRUNCATE conversations, papers CASCADE")
		pool.Close()
	})

	return pool
}
