package tree

import (
	"slices"

	"github.com/frankbria/auto-author/internal/domain"
)

// InsertSibling returns a copy of list with ch inserted and sorted by order.
// atOrder <= 0 appends after the current maximum. When atOrder is already
// taken, every sibling with order >= atOrder shifts up by one.
func InsertSibling(list []domain.Chapter, ch domain.Chapter, atOrder int) []domain.Chapter {
	out := make([]domain.Chapter, 0, len(list)+1)
	out = append(out, list...)

	if atOrder <= 0 {
		ch.Order = MaxOrder(out) + 1
	} else {
		ch.Order = atOrder
		if hasOrder(out, atOrder) {
			for i := range out {
				if out[i].Order >= atOrder {
					out[i].Order++
				}
			}
		}
	}

	out = append(out, ch)
	SortByOrder(out)
	return out
}

func hasOrder(list []domain.Chapter, order int) bool {
	return slices.ContainsFunc(list, func(c domain.Chapter) bool { return c.Order == order })
}

// RemoveAndRenumber returns a copy of list without the chapter id. With compact
// the survivors are renumbered 1..n in their current order.
func RemoveAndRenumber(list []domain.Chapter, id string, compact bool) ([]domain.Chapter, bool) {
	idx := slices.IndexFunc(list, func(c domain.Chapter) bool { return c.ID == id })
	if idx < 0 {
		return list, false
	}

	out := make([]domain.Chapter, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	if compact {
		Renumber(out)
	}
	return out, true
}

// Renumber sorts list by order and assigns orders 1..n in place.
func Renumber(list []domain.Chapter) {
	SortByOrder(list)
	for i := range list {
		list[i].Order = i + 1
	}
}

// RecomputeLevels re-derives Level and ParentID of every node from its
// physical position, in place.
func RecomputeLevels(chapters []domain.Chapter) {
	recompute(chapters, nil, 1)
}

func recompute(chapters []domain.Chapter, parentID *string, level int) {
	for i := range chapters {
		chapters[i].Level = level
		chapters[i].ParentID = clonePtr(parentID)
		id := chapters[i].ID
		recompute(chapters[i].Subchapters, &id, level+1)
	}
}
