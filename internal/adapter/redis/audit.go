package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/frankbria/auto-author/internal/domain"
)

// auditDoc is the JSON shape of an audit record in the stream.
type auditDoc struct {
	ID        uuid.UUID      `json:"id"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	BookID    uuid.UUID      `json:"book_id"`
	ChapterID *string        `json:"chapter_id,omitempty"`
	Before    map[string]any `json:"before,omitempty"`
	After     map[string]any `json:"after,omitempty"`
	Outcome   string         `json:"outcome"`
	Error     string         `json:"error,omitempty"`
	Version   int64          `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
}

// Log appends an audit record to the book's stream.
func (s *Store) Log(ctx context.Context, rec domain.AuditRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	raw, err := json.Marshal(auditDoc{
		ID:        rec.ID,
		ActorID:   rec.ActorID,
		Action:    string(rec.Action),
		BookID:    rec.BookID,
		ChapterID: rec.ChapterID,
		Before:    rec.Before,
		After:     rec.After,
		Outcome:   string(rec.Outcome),
		Error:     rec.Error,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("audit_record %s marshal: %w", rec.ID, err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: auditKey(rec.BookID),
		Values: map[string]any{"record": raw},
	}).Err()
	return mapError(err, "audit_log", true, rec.ID)
}

// ListByBook returns the newest audit records of a book first.
func (s *Store) ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]domain.AuditRecord, error) {
	var (
		msgs []redis.XMessage
		err  error
	)
	if limit > 0 {
		msgs, err = s.client.XRevRangeN(ctx, auditKey(bookID), "+", "-", int64(limit)).Result()
	} else {
		msgs, err = s.client.XRevRange(ctx, auditKey(bookID), "+", "-").Result()
	}
	if err != nil {
		return nil, mapError(err, "audit_list", false, bookID)
	}

	records := make([]domain.AuditRecord, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["record"].(string)
		if !ok {
			return nil, fmt.Errorf("audit entry %s: missing record field", msg.ID)
		}
		var doc auditDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("audit entry %s unmarshal: %w", msg.ID, err)
		}
		records = append(records, domain.AuditRecord{
			ID:        doc.ID,
			ActorID:   doc.ActorID,
			Action:    domain.AuditAction(doc.Action),
			BookID:    doc.BookID,
			ChapterID: doc.ChapterID,
			Before:    doc.Before,
			After:     doc.After,
			Outcome:   domain.AuditOutcome(doc.Outcome),
			Error:     doc.Error,
			Version:   doc.Version,
			CreatedAt: doc.CreatedAt,
		})
	}
	return records, nil
}
