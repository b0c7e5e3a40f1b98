package toc

import (
	"context"

	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/service/toc/tree"
	"github.com/frankbria/auto-author/pkg/ctxutil"
)

// RestoreChapter clears the soft-delete markers of a chapter and puts it back
// in draft. Restoring a live chapter returns the current version without writing.
func (s *Service) RestoreChapter(ctx context.Context, input RestoreChapterInput) (int64, error) {
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
		action:  domain.AuditActionRestoreChapter,
		target:  &input.ChapterID,
		apply: func(st *mutationState) error {
			ch, ok := tree.FindByID(st.toc.Chapters, input.ChapterID)
			if !ok {
				return domain.ErrChapterNotFound
			}
			st.before = ch.Summary()
			if !ch.IsDeleted {
				st.noop = true
				return nil
			}

			ch.IsDeleted = false
			ch.DeletedAt = nil
			ch.DeletedBy = nil
			ch.StatusBeforeDelete = nil
			if ch.Status == domain.ChapterStatusDeleted {
				ch.Status = domain.ChapterStatusDraft
			}
			ch.LastModified = st.now
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return res.Version, nil
}
