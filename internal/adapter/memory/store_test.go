package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankbria/auto-author/internal/domain"
)

func TestStore_CreateAndRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	book, err := s.CreateBook(ctx, domain.Book{OwnerID: "u1", Title: "Novel", TOC: domain.TableOfContents{
		Chapters: []domain.Chapter{{ID: "c1", Title: "One", Level: 1, Order: 1}},
	}})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, book.ID)
	assert.Equal(t, int64(1), book.Version)

	snap, err := s.ReadTOC(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
	require.Len(t, snap.TOC.Chapters, 1)

	snap.TOC.Chapters[0].Title = "mutated"
	again, err := s.ReadTOC(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "One", again.TOC.Chapters[0].Title, "reads must return copies")

	_, err = s.CreateBook(ctx, domain.Book{ID: book.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestStore_ReadUnknownBook(t *testing.T) {
	t.Parallel()

	_, err := New().ReadTOC(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestStore_ConditionalWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	book, err := s.CreateBook(ctx, domain.Book{})
	require.NoError(t, err)

	toc := domain.TableOfContents{Chapters: []domain.Chapter{{ID: "c1", Level: 1, Order: 1}}}

	ok, err := s.ConditionalWriteTOC(ctx, book.ID, 1, toc, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ConditionalWriteTOC(ctx, book.ID, 1, toc, 2)
	require.NoError(t, err, "version mismatch is not an error")
	assert.False(t, ok)

	snap, err := s.ReadTOC(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Version)

	_, err = s.ConditionalWriteTOC(ctx, uuid.New(), 1, toc, 2)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestStore_CancelledContext(t *testing.T) {
	t.Parallel()
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ReadTOC(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Faults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	book, err := s.CreateBook(ctx, domain.Book{})
	require.NoError(t, err)

	boom := errors.New("boom")
	s.SetFaults(Faults{BeforeWrite: func(uuid.UUID, int64) error { return boom }})

	_, err = s.ConditionalWriteTOC(ctx, book.ID, 1, domain.TableOfContents{}, 2)
	assert.ErrorIs(t, err, boom)

	snap, err := s.ReadTOC(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version, "failed write must not change state")
}

func TestStore_AuditNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	bookID := uuid.New()

	for v := int64(1); v <= 3; v++ {
		require.NoError(t, s.Log(ctx, domain.AuditRecord{BookID: bookID, Version: v}))
	}
	require.NoError(t, s.Log(ctx, domain.AuditRecord{BookID: uuid.New(), Version: 99}))

	recs, err := s.ListByBook(ctx, bookID, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(3), recs[0].Version)
	assert.Equal(t, int64(2), recs[1].Version)
	assert.NotEqual(t, uuid.Nil, recs[0].ID)
}

func TestStore_ListBookIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	for range 5 {
		_, err := s.CreateBook(ctx, domain.Book{})
		require.NoError(t, err)
	}

	first, err := s.ListBookIDs(ctx, uuid.Nil, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	rest, err := s.ListBookIDs(ctx, first[2], 3)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
	for _, id := range rest {
		assert.NotContains(t, first, id)
	}
}

func TestStore_Capabilities(t *testing.T) {
	t.Parallel()

	caps, err := New().Capabilities(context.Background())
	require.NoError(t, err)
	assert.False(t, caps.Transactions)
}
