package domain

import (
	"time"

	"github.com/google/uuid"
)

// TOCChange announces a committed TOC mutation to other services.
type TOCChange struct {
	BookID     uuid.UUID   `json:"book_id"`
	Version    int64       `json:"version"`
	Action     AuditAction `json:"action"`
	ChapterID  *string     `json:"chapter_id,omitempty"`
	ActorID    string      `json:"actor_id"`
	OccurredAt time.Time   `json:"occurred_at"`
}
