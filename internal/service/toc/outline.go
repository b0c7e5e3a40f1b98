package toc

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/service/toc/tree"
	"github.com/frankbria/auto-author/pkg/ctxutil"
)

// OutlineResult is a flattened, depth-annotated view of a TOC.
type OutlineResult struct {
	BookID        uuid.UUID
	Version       int64
	TotalChapters int
	Status        string
	Nodes         []tree.FlatNode
}

// Outline returns the TOC of a book in display order. Soft-deleted chapters
// are left out unless includeDeleted is set.
func (s *Service) Outline(ctx context.Context, bookID uuid.UUID, includeDeleted bool) (OutlineResult, error) {
	if _, ok := ctxutil.ActorIDFromCtx(ctx); !ok {
		return OutlineResult{}, domain.ErrUnauthorized
	}
	if bookID == uuid.Nil {
		return OutlineResult{}, domain.NewValidationError("book_id", "required")
	}

	snap, err := s.read(ctx, bookID)
	if err != nil {
		return OutlineResult{}, fmt.Errorf("outline: %w", err)
	}

	nodes := tree.Flatten(snap.TOC.Chapters)
	if !includeDeleted {
		live := nodes[:0]
		for _, n := range nodes {
			if !n.Chapter.IsDeleted {
				live = append(live, n)
			}
		}
		nodes = live
	}

	return OutlineResult{
		BookID:        bookID,
		Version:       snap.Version,
		TotalChapters: tree.Count(snap.TOC.Chapters, includeDeleted),
		Status:        snap.TOC.Status,
		Nodes:         nodes,
	}, nil
}

// History returns the most recent audit records of a book, newest first.
func (s *Service) History(ctx context.Context, bookID uuid.UUID, limit int) ([]domain.AuditRecord, error) {
	if _, ok := ctxutil.ActorIDFromCtx(ctx); !ok {
		return nil, domain.ErrUnauthorized
	}
	if bookID == uuid.Nil {
		return nil, domain.NewValidationError("book_id", "required")
	}

	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	records, err := s.history.ListByBook(ctx, bookID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return records, nil
}
