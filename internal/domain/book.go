package domain

import (
	"time"

	"github.com/google/uuid"
)

// Book owns exactly one table of contents. Version starts at 1 and grows by
// one for every committed TOC mutation.
type Book struct {
	ID        uuid.UUID
	OwnerID   string
	Title     string
	TOC       TableOfContents
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableOfContents is the nested chapter tree of a book.
type TableOfContents struct {
	Chapters      []Chapter  `json:"chapters" bson:"chapters"`
	TotalChapters int        `json:"total_chapters" bson:"total_chapters"`
	GeneratedAt   *time.Time `json:"generated_at,omitempty" bson:"generated_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
	Status        string     `json:"status,omitempty" bson:"status,omitempty"`
}

// BookSnapshot is the result of a versioned read: the TOC and the version it carried.
type BookSnapshot struct {
	BookID  uuid.UUID
	TOC     TableOfContents
	Version int64
}

// StoreCapabilities describes what a document store backend supports.
type StoreCapabilities struct {
	Transactions bool
}
