package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord logs one attempted TOC mutation. Records are append-only.
// Version is the version produced by the mutation, 0 when it failed.
type AuditRecord struct {
	ID        uuid.UUID
	ActorID   string
	Action    AuditAction
	BookID    uuid.UUID
	ChapterID *string
	Before    map[string]any
	After     map[string]any
	Outcome   AuditOutcome
	Error     string
	Version   int64
	CreatedAt time.Time
}
