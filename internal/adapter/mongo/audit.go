package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frankbria/auto-author/internal/domain"
)

// auditDoc is an audit record as stored. Seq orders records newest first.
type auditDoc struct {
	Seq       primitive.ObjectID `bson:"seq"`
	ID        string             `bson:"id"`
	ActorID   string             `bson:"actor_id"`
	Action    string             `bson:"action"`
	BookID    string             `bson:"book_id"`
	ChapterID *string            `bson:"chapter_id,omitempty"`
	Before    map[string]any     `bson:"before,omitempty"`
	After     map[string]any     `bson:"after,omitempty"`
	Outcome   string             `bson:"outcome"`
	Error     string             `bson:"error,omitempty"`
	Version   int64              `bson:"version"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Log appends an audit record. Inside RunInTx it joins the session.
func (s *Store) Log(ctx context.Context, rec domain.AuditRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := s.audit.InsertOne(ctx, auditDoc{
		Seq:       primitive.NewObjectID(),
		ID:        rec.ID.String(),
		ActorID:   rec.ActorID,
		Action:    string(rec.Action),
		BookID:    rec.BookID.String(),
		ChapterID: rec.ChapterID,
		Before:    rec.Before,
		After:     rec.After,
		Outcome:   string(rec.Outcome),
		Error:     rec.Error,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt,
	})
	return mapError(err, "audit_log", true, rec.ID)
}

// ListByBook returns the newest audit records of a book first.
func (s *Store) ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]domain.AuditRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.audit.Find(ctx, bson.D{{Key: "book_id", Value: bookID.String()}}, opts)
	if err != nil {
		return nil, mapError(err, "audit_list", false, bookID)
	}
	defer cur.Close(ctx)

	var docs []auditDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapError(err, "audit_list", false, bookID)
	}

	records := make([]domain.AuditRecord, 0, len(docs))
	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("audit_record %q parse id: %w", d.ID, err)
		}
		records = append(records, domain.AuditRecord{
			ID:        id,
			ActorID:   d.ActorID,
			Action:    domain.AuditAction(d.Action),
			BookID:    bookID,
			ChapterID: d.ChapterID,
			Before:    d.Before,
			After:     d.After,
			Outcome:   domain.AuditOutcome(d.Outcome),
			Error:     d.Error,
			Version:   d.Version,
			CreatedAt: d.CreatedAt,
		})
	}
	return records, nil
}
