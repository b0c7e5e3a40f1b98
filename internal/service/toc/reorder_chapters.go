package toc

import (
	"context"
	"fmt"

	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/service/toc/tree"
	"github.com/frankbria/auto-author/pkg/ctxutil"
)

// ReorderChapters assigns orders 1..n to the children of ParentID following
// OrderedIDs. The ids must be exactly the current sibling set.
func (s *Service) ReorderChapters(ctx context.Context, input ReorderChaptersInput) (int64, error) {
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
		action:  domain.AuditActionReorder,
		target:  input.ParentID,
		apply: func(st *mutationState) error {
			return applyReorder(st, input)
		},
	})
	if err != nil {
		return 0, err
	}
	return res.Version, nil
}

func applyReorder(st *mutationState, input ReorderChaptersInput) error {
	siblings, err := tree.SiblingsOf(&st.toc.Chapters, input.ParentID)
	if err != nil {
		return err
	}
	list := *siblings

	if err := sameIDSet(list, input.OrderedIDs); err != nil {
		return err
	}

	tree.SortByOrder(list)
	st.before = map[string]any{"order": idsOf(list)}

	position := make(map[string]int, len(input.OrderedIDs))
	for n, id := range input.OrderedIDs {
		position[id] = n + 1
	}

	changed := false
	for i := range list {
		if want := position[list[i].ID]; list[i].Order != want {
			list[i].Order = want
			list[i].LastModified = st.now
			changed = true
		}
	}
	if !changed {
		st.noop = true
		return nil
	}

	tree.SortByOrder(list)
	st.after = map[string]any{"order": idsOf(list)}
	return nil
}

// sameIDSet rejects additions, removals and duplicates.
func sameIDSet(list []domain.Chapter, ids []string) error {
	if len(ids) != len(list) {
		return fmt.Errorf("%w: got %d ids, have %d siblings", domain.ErrReorderSetMismatch, len(ids), len(list))
	}

	current := make(map[string]struct{}, len(list))
	for i := range list {
		current[list[i].ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := current[id]; !ok {
			return fmt.Errorf("%w: %s is not a sibling", domain.ErrReorderSetMismatch, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s listed twice", domain.ErrReorderSetMismatch, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func idsOf(list []domain.Chapter) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = list[i].ID
	}
	return out
}
