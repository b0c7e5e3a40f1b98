package toc

import (
	"context"

	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/service/toc/tree"
	"github.com/frankbria/auto-author/pkg/ctxutil"
)

// DeleteChapter soft-deletes a chapter. Subchapters are not deleted with it.
// Deleting an already deleted chapter returns the current version without writing.
func (s *Service) DeleteChapter(ctx context.Context, input DeleteChapterInput) (int64, error) {
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
		action:  domain.AuditActionDeleteChapter,
		target:  &input.ChapterID,
		apply: func(st *mutationState) error {
			ch, ok := tree.FindByID(st.toc.Chapters, input.ChapterID)
			if !ok {
				return domain.ErrChapterNotFound
			}
			st.before = ch.Summary()
			if ch.IsDeleted {
				st.noop = true
				return nil
			}

			prev := ch.Status
			ch.IsDeleted = true
			ch.DeletedAt = ptr(st.now)
			ch.DeletedBy = ptr(st.actorID)
			ch.StatusBeforeDelete = &prev
			ch.Status = domain.ChapterStatusDeleted
			ch.LastModified = st.now
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return res.Version, nil
}
