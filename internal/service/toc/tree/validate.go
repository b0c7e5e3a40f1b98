package tree

import (
	"fmt"

	"github.com/frankbria/auto-author/internal/domain"
)

// Validate checks the structural invariants of a tree: ids are non-empty and
// unique across all levels, orders are unique among siblings, ParentID matches
// the enclosing node and Level equals the parent level plus one.
// All violations wrap domain.ErrTreeInvariant.
func Validate(chapters []domain.Chapter) error {
	seen := make(map[string]struct{})
	return validate(chapters, nil, 1, seen)
}

func validate(chapters []domain.Chapter, parentID *string, level int, seen map[string]struct{}) error {
	orders := make(map[int]string, len(chapters))

	for i := range chapters {
		ch := &chapters[i]

		if ch.ID == "" {
			return fmt.Errorf("%w: chapter without id at level %d", domain.ErrTreeInvariant, level)
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("%w: duplicate chapter id %s", domain.ErrTreeInvariant, ch.ID)
		}
		seen[ch.ID] = struct{}{}

		if other, dup := orders[ch.Order]; dup {
			return fmt.Errorf("%w: chapters %s and %s share order %d", domain.ErrTreeInvariant, other, ch.ID, ch.Order)
		}
		orders[ch.Order] = ch.ID

		if ch.Level != level {
			return fmt.Errorf("%w: chapter %s has level %d, want %d", domain.ErrTreeInvariant, ch.ID, ch.Level, level)
		}
		if !samePtr(ch.ParentID, parentID) {
			return fmt.Errorf("%w: chapter %s has stale parent id", domain.ErrTreeInvariant, ch.ID)
		}

		id := ch.ID
		if err := validate(ch.Subchapters, &id, level+1, seen); err != nil {
			return err
		}
	}
	return nil
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
