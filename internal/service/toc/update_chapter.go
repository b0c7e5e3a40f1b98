package toc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/service/toc/tree"
	"github.com/frankbria/auto-author/pkg/ctxutil"
)

// UpdateChapter applies field changes to a chapter anywhere in the tree.
// A request that changes nothing, such as a same-state status transition,
// succeeds without writing and returns the current version.
func (s *Service) UpdateChapter(ctx context.Context, input UpdateChapterInput) (int64, error) {
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
		action:  domain.AuditActionUpdateChapter,
		target:  &input.ChapterID,
		apply: func(st *mutationState) error {
			return applyUpdateChapter(st, input)
		},
	})
	if err != nil {
		return 0, err
	}
	return res.Version, nil
}

func applyUpdateChapter(st *mutationState, input UpdateChapterInput) error {
	ch, ok := tree.FindByID(st.toc.Chapters, input.ChapterID)
	if !ok {
		return domain.ErrChapterNotFound
	}
	if ch.IsDeleted {
		return domain.ErrChapterDeleted
	}
	st.before = ch.Summary()

	if input.Status != nil && !ch.Status.CanTransitionTo(*input.Status) {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidStatusTransition, ch.Status, *input.Status)
	}

	changed := false
	if input.Title != nil && *input.Title != ch.Title {
		ch.Title = *input.Title
		changed = true
	}
	if input.Description != nil && *input.Description != ch.Description {
		ch.Description = *input.Description
		changed = true
	}
	if input.ContentID != nil {
		next := trimOrNil(input.ContentID)
		if !equalPtr(next, ch.ContentID) {
			ch.ContentID = next
			changed = true
		}
	}
	if input.Content != nil && !equalPtr(input.Content, ch.Content) {
		ch.SetContent(ptr(*input.Content))
		changed = true
	}
	if input.Status != nil && *input.Status != ch.Status {
		ch.Status = *input.Status
		changed = true
	}
	if mergeMetadata(ch, input.Metadata) {
		changed = true
	}

	if !changed {
		st.noop = true
		return nil
	}
	ch.LastModified = st.now
	return nil
}

// mergeMetadata applies patch to ch.Metadata; nil values delete keys.
func mergeMetadata(ch *domain.Chapter, patch map[string]any) bool {
	changed := false
	for k, v := range patch {
		old, exists := ch.Metadata[k]
		if v == nil {
			if exists {
				delete(ch.Metadata, k)
				changed = true
			}
			continue
		}
		if exists && sameMetadataValue(old, v) {
			continue
		}
		if ch.Metadata == nil {
			ch.Metadata = make(map[string]any, len(patch))
		}
		ch.Metadata[k] = v
		changed = true
	}
	return changed
}

// sameMetadataValue compares values by their JSON encoding as well, since
// stores hand numbers back as float64 or int32/int64 after a round trip.
func sameMetadataValue(stored, patch any) bool {
	if reflect.DeepEqual(stored, patch) {
		return true
	}
	a, err := json.Marshal(stored)
	if err != nil {
		return false
	}
	b, err := json.Marshal(patch)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
