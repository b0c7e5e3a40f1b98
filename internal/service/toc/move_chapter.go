package toc

import (
	"context"

	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/service/toc/tree"
	"github.com/frankbria/auto-author/pkg/ctxutil"
)

// MoveChapter re-attaches a chapter with its whole subtree under NewParentID
// at Position. The old sibling list is compacted; levels are re-derived.
// Position 0 appends to a new parent and keeps the place under the same parent.
func (s *Service) MoveChapter(ctx context.Context, input MoveChapterInput) (int64, error) {
	actorID, ok := ctxutil.ActorIDFromCtx(ctx)
	if !ok {
		return 0, domain.ErrUnauthorized
	}

	input = input.normalize()
	if err := input.Validate(); err != nil {
		return 0, err
	}

	res, err := s.mutate(ctx, mutationRequest{
		bookID:  input.BookID,
		actorID: actorID,
		action:  domain.AuditActionMoveChapter,
		target:  &input.ChapterID,
		apply: func(st *mutationState) error {
			return applyMove(st, input)
		},
	})
	if err != nil {
		return 0, err
	}
	return res.Version, nil
}

func applyMove(st *mutationState, input MoveChapterInput) error {
	ch, ok := tree.FindByID(st.toc.Chapters, input.ChapterID)
	if !ok {
		return domain.ErrChapterNotFound
	}
	if input.NewParentID != nil {
		if tree.Contains(*ch, *input.NewParentID) {
			return domain.ErrInvalidMove
		}
		parent, ok := tree.FindByID(st.toc.Chapters, *input.NewParentID)
		if !ok {
			return domain.ErrParentNotFound
		}
		if parent.IsDeleted {
			return domain.ErrChapterDeleted
		}
	}

	if equalPtr(ch.ParentID, input.NewParentID) && (input.Position == 0 || input.Position == ch.Order) {
		st.noop = true
		return nil
	}
	st.before = ch.Summary()

	moved := tree.Clone([]domain.Chapter{*ch})[0]
	moved.LastModified = st.now

	oldList, _ := tree.ContainingList(&st.toc.Chapters, input.ChapterID)
	*oldList, _ = tree.RemoveAndRenumber(*oldList, input.ChapterID, true)

	// Resolve the destination after removal; pointers into the old list are stale.
	newList, err := tree.SiblingsOf(&st.toc.Chapters, input.NewParentID)
	if err != nil {
		return err
	}
	*newList = tree.InsertSibling(*newList, moved, input.Position)
	return nil
}
