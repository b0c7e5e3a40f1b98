package toc

import (
	"context"

	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/service/toc/tree"
	"github.com/frankbria/auto-author/pkg/ctxutil"
)

// AddChapterResult is returned by AddChapter.
type AddChapterResult struct {
	ChapterID string
	Version   int64
}

// AddChapter inserts a new draft chapter under ParentID (top level when nil)
// at the requested position, shifting colliding siblings.
func (s *Service) AddChapter(ctx context.Context, input AddChapterInput) (AddChapterResult, error) {
	actorID, ok := ctxutil.ActorIDFromCtx(ctx)
	if !ok {
		return AddChapterResult{}, domain.ErrUnauthorized
	}

	input = input.normalize()
	if err := input.Validate(); err != nil {
		return AddChapterResult{}, err
	}

	res, err := s.mutate(ctx, mutationRequest{
		bookID:  input.BookID,
		actorID: actorID,
		action:  domain.AuditActionAddChapter,
		apply: func(st *mutationState) error {
			return s.applyAddChapter(st, input)
		},
	})
	if err != nil {
		return AddChapterResult{}, err
	}

	return AddChapterResult{ChapterID: *res.State.target, Version: res.Version}, nil
}

func (s *Service) applyAddChapter(st *mutationState, input AddChapterInput) error {
	siblings, err := tree.SiblingsOf(&st.toc.Chapters, input.ParentID)
	if err != nil {
		return err
	}

	level := 1
	if input.ParentID != nil {
		parent, _ := tree.FindByID(st.toc.Chapters, *input.ParentID)
		if parent.IsDeleted {
			return domain.ErrChapterDeleted
		}
		level = parent.Level + 1
	}

	// Chapter ids are unique across the whole tree.
	id := s.newID()
	for {
		if _, taken := tree.FindByID(st.toc.Chapters, id); !taken {
			break
		}
		id = s.newID()
	}

	ch := domain.Chapter{
		ID:           id,
		Title:        input.Title,
		Description:  input.Description,
		Level:        level,
		ParentID:     input.ParentID,
		Status:       domain.ChapterStatusDraft,
		LastModified: st.now,
	}
	*siblings = tree.InsertSibling(*siblings, ch, input.Position)
	st.target = &id
	return nil
}
