package testhelper

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frankbria/auto-author/internal/domain"
)

// SeedBook inserts a book at version 1 holding toc and returns its id.
func SeedBook(t *testing.T, pool *pgxpool.Pool, toc domain.TableOfContents) uuid.UUID {
	t.Helper()

	raw, err := json.Marshal(toc)
	if err != nil {
		t.Fatalf("SeedBook: marshal toc: %v", err)
	}

	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err = pool.Exec(context.Background(),
		`INSERT INTO books (id, owner_id, title, toc, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 1, $5, $5)`,
		id, "owner-"+id.String()[:8], "Seed Book", raw, now,
	)
	if err != nil {
		t.Fatalf("SeedBook: %v", err)
	}
	return id
}
