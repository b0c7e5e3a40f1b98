// Package audit implements the TOC audit log using PostgreSQL.
// It provides append-only operations for audit records.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	postgres "github.com/frankbria/auto-author/internal/adapter/postgres"
	"github.com/frankbria/auto-author/internal/domain"
)

const table = "toc_audit_log"

var columns = []string{
	"id", "book_id", "actor_id", "action", "chapter_id",
	"before", "after", "outcome", "error", "version", "created_at",
}

// Repo provides audit log persistence backed by PostgreSQL.
type Repo struct {
	db   postgres.Querier
	psql squirrel.StatementBuilderType
}

// New creates a new audit repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db, psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Log appends an audit record. Inside RunInTx it joins the transaction.
func (r *Repo) Log(ctx context.Context, record domain.AuditRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	before, err := marshalSnapshot(record.Before)
	if err != nil {
		return fmt.Errorf("audit_record %s marshal before: %w", record.ID, err)
	}
	after, err := marshalSnapshot(record.After)
	if err != nil {
		return fmt.Errorf("audit_record %s marshal after: %w", record.ID, err)
	}

	query, args, err := r.psql.Insert(table).
		Columns(columns...).
		Values(
			record.ID, record.BookID, record.ActorID, string(record.Action), record.ChapterID,
			before, after, string(record.Outcome), record.Error, record.Version, record.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit_record: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "audit_log", true, record.ID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// ListByBook returns the newest audit records of a book first.
// A non-positive limit returns all records.
func (r *Repo) ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]domain.AuditRecord, error) {
	builder := r.psql.Select(columns...).
		From(table).
		Where("book_id = ?", bookID).
		OrderBy("seq DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select audit_records: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "audit_list", false, bookID)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var (
			rec             domain.AuditRecord
			action, outcome string
			before, after   []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.BookID, &rec.ActorID, &action, &rec.ChapterID,
			&before, &after, &outcome, &rec.Error, &rec.Version, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit_record: %w", err)
		}
		rec.Action = domain.AuditAction(action)
		rec.Outcome = domain.AuditOutcome(outcome)
		if rec.Before, err = unmarshalSnapshot(before); err != nil {
			return nil, fmt.Errorf("audit_record %s unmarshal before: %w", rec.ID, err)
		}
		if rec.After, err = unmarshalSnapshot(after); err != nil {
			return nil, fmt.Errorf("audit_record %s unmarshal after: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "audit_list", false, bookID)
	}
	return records, nil
}

// ---------------------------------------------------------------------------
// JSONB helpers
// ---------------------------------------------------------------------------

// marshalSnapshot encodes a before/after map; nil stays SQL NULL.
func marshalSnapshot(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalSnapshot(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	m := make(map[string]any)
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
