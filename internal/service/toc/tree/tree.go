// Package tree implements pure operations over a nested chapter tree.
//
// Functions never rely on hidden state. Those that take a slice and return a
// slice leave the argument untouched; those documented as "in place" edit the
// value they are given, so callers operate on a Clone of any tree they do not own.
package tree

import (
	"cmp"
	"slices"

	"github.com/frankbria/auto-author/internal/domain"
)

// FlatNode is one entry of a flattened tree. Depth is 1 for top-level chapters.
type FlatNode struct {
	Chapter domain.Chapter
	Depth   int
}

// FindByID locates the chapter with id anywhere in the tree. The returned
// pointer aliases the element inside chapters.
func FindByID(chapters []domain.Chapter, id string) (*domain.Chapter, bool) {
	for i := range chapters {
		if chapters[i].ID == id {
			return &chapters[i], true
		}
		if ch, ok := FindByID(chapters[i].Subchapters, id); ok {
			return ch, true
		}
	}
	return nil, false
}

// FindParent locates the immediate parent of id. A nil parent with found=true
// means id is a top-level chapter.
func FindParent(chapters []domain.Chapter, id string) (*domain.Chapter, bool) {
	for i := range chapters {
		if chapters[i].ID == id {
			return nil, true
		}
	}
	return findParent(chapters, id)
}

func findParent(chapters []domain.Chapter, id string) (*domain.Chapter, bool) {
	for i := range chapters {
		for j := range chapters[i].Subchapters {
			if chapters[i].Subchapters[j].ID == id {
				return &chapters[i], true
			}
		}
		if p, ok := findParent(chapters[i].Subchapters, id); ok {
			return p, true
		}
	}
	return nil, false
}

// SiblingsOf returns the child list owned by parentID, or the root list when
// parentID is nil. Returns domain.ErrParentNotFound if parentID is absent.
func SiblingsOf(root *[]domain.Chapter, parentID *string) (*[]domain.Chapter, error) {
	if parentID == nil {
		return root, nil
	}
	parent, ok := FindByID(*root, *parentID)
	if !ok {
		return nil, domain.ErrParentNotFound
	}
	return &parent.Subchapters, nil
}

// ContainingList returns the sibling list that holds id.
func ContainingList(root *[]domain.Chapter, id string) (*[]domain.Chapter, bool) {
	parent, ok := FindParent(*root, id)
	if !ok {
		return nil, false
	}
	if parent == nil {
		return root, true
	}
	return &parent.Subchapters, true
}

// Contains reports whether id is ch itself or any of its descendants.
func Contains(ch domain.Chapter, id string) bool {
	if ch.ID == id {
		return true
	}
	_, ok := FindByID(ch.Subchapters, id)
	return ok
}

// Walk visits every chapter depth-first in pre-order, siblings in stored order.
// Walk stops as soon as fn returns false.
func Walk(chapters []domain.Chapter, fn func(ch *domain.Chapter, depth int) bool) {
	walk(chapters, 1, fn)
}

func walk(chapters []domain.Chapter, depth int, fn func(ch *domain.Chapter, depth int) bool) bool {
	for i := range chapters {
		if !fn(&chapters[i], depth) {
			return false
		}
		if !walk(chapters[i].Subchapters, depth+1, fn) {
			return false
		}
	}
	return true
}

// Count returns the number of chapters at all levels.
func Count(chapters []domain.Chapter, includeDeleted bool) int {
	n := 0
	Walk(chapters, func(ch *domain.Chapter, _ int) bool {
		if includeDeleted || !ch.IsDeleted {
			n++
		}
		return true
	})
	return n
}

// Flatten produces a depth-annotated, depth-first pre-order sequence with
// siblings sorted by order. Returned chapters carry no Subchapters.
func Flatten(chapters []domain.Chapter) []FlatNode {
	out := make([]FlatNode, 0, Count(chapters, true))
	return flatten(chapters, 1, out)
}

func flatten(chapters []domain.Chapter, depth int, out []FlatNode) []FlatNode {
	sorted := slices.Clone(chapters)
	SortByOrder(sorted)
	for _, ch := range sorted {
		children := ch.Subchapters
		node := cloneChapter(ch)
		node.Subchapters = nil
		out = append(out, FlatNode{Chapter: node, Depth: depth})
		out = flatten(children, depth+1, out)
	}
	return out
}

// SortByOrder sorts list in place by Order, keeping the relative position of equal orders.
func SortByOrder(list []domain.Chapter) {
	slices.SortStableFunc(list, func(a, b domain.Chapter) int {
		return cmp.Compare(a.Order, b.Order)
	})
}

// MaxOrder returns the highest order in list, 0 when empty.
func MaxOrder(list []domain.Chapter) int {
	m := 0
	for i := range list {
		m = max(m, list[i].Order)
	}
	return m
}

// Clone deep-copies a tree including pointer fields and metadata.
func Clone(chapters []domain.Chapter) []domain.Chapter {
	if chapters == nil {
		return nil
	}
	out := make([]domain.Chapter, len(chapters))
	for i := range chapters {
		out[i] = cloneChapter(chapters[i])
	}
	return out
}

// CloneTOC deep-copies a table of contents.
func CloneTOC(toc domain.TableOfContents) domain.TableOfContents {
	out := toc
	out.Chapters = Clone(toc.Chapters)
	if toc.GeneratedAt != nil {
		t := *toc.GeneratedAt
		out.GeneratedAt = &t
	}
	return out
}

func cloneChapter(c domain.Chapter) domain.Chapter {
	out := c
	out.ParentID = clonePtr(c.ParentID)
	out.ContentID = clonePtr(c.ContentID)
	out.Content = clonePtr(c.Content)
	out.DeletedAt = clonePtr(c.DeletedAt)
	out.DeletedBy = clonePtr(c.DeletedBy)
	out.StatusBeforeDelete = clonePtr(c.StatusBeforeDelete)
	if c.Metadata != nil {
		out.Metadata = cloneMap(c.Metadata)
	}
	out.Subchapters = Clone(c.Subchapters)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
