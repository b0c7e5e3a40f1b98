package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/frankbria/auto-author/internal/domain"
)

func newMockT(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func booksNS(mt *mtest.T) string { return mt.DB.Name() + "." + booksCollection }
func auditNS(mt *mtest.T) string { return mt.DB.Name() + "." + auditCollection }

func TestStore_ReadTOC(t *testing.T) {
	mt := newMockT(t)

	mt.Run("found", func(mt *mtest.T) {
		s := New(mt.DB)
		bookID := uuid.New()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, booksNS(mt), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: bookID.String()},
			{Key: "version", Value: int64(4)},
			{Key: "toc", Value: bson.D{
				{Key: "chapters", Value: bson.A{
					bson.D{{Key: "id", Value: "c1"}, {Key: "title", Value: "One"}, {Key: "level", Value: 1}, {Key: "order", Value: 1}, {Key: "status", Value: "draft"}},
				}},
				{Key: "total_chapters", Value: 1},
			}},
		}))

		snap, err := s.ReadTOC(context.Background(), bookID)
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), snap.Version)
		require.Len(mt, snap.TOC.Chapters, 1)
		assert.Equal(mt, "One", snap.TOC.Chapters[0].Title)
		assert.Equal(mt, domain.ChapterStatusDraft, snap.TOC.Chapters[0].Status)
	})

	mt.Run("not found", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, booksNS(mt), mtest.FirstBatch))

		_, err := s.ReadTOC(context.Background(), uuid.New())
		assert.ErrorIs(mt, err, domain.ErrBookNotFound)
	})
}

func TestStore_ConditionalWriteTOC(t *testing.T) {
	mt := newMockT(t)
	toc := domain.TableOfContents{Chapters: []domain.Chapter{{ID: "c1", Level: 1, Order: 1}}, TotalChapters: 1}

	mt.Run("applied", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		ok, err := s.ConditionalWriteTOC(context.Background(), uuid.New(), 1, toc, 2)
		require.NoError(mt, err)
		assert.True(mt, ok)
	})

	mt.Run("version moved", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, booksNS(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		ok, err := s.ConditionalWriteTOC(context.Background(), uuid.New(), 1, toc, 2)
		require.NoError(mt, err, "a version mismatch is not an error")
		assert.False(mt, ok)
	})

	mt.Run("book gone", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, booksNS(mt), mtest.FirstBatch),
		)

		_, err := s.ConditionalWriteTOC(context.Background(), uuid.New(), 1, toc, 2)
		assert.ErrorIs(mt, err, domain.ErrBookNotFound)
	})
}

func TestStore_CreateBook(t *testing.T) {
	mt := newMockT(t)

	mt.Run("inserted", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		book, err := s.CreateBook(context.Background(), domain.Book{OwnerID: "u1", Title: "Novel"})
		require.NoError(mt, err)
		assert.NotEqual(mt, uuid.Nil, book.ID)
		assert.Equal(mt, int64(1), book.Version)
	})

	mt.Run("duplicate", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))

		_, err := s.CreateBook(context.Background(), domain.Book{ID: uuid.New()})
		assert.ErrorIs(mt, err, domain.ErrAlreadyExists)
	})
}

func TestStore_ListBookIDs(t *testing.T) {
	mt := newMockT(t)

	mt.Run("page", func(mt *mtest.T) {
		s := New(mt.DB)
		a, b := uuid.New(), uuid.New()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, booksNS(mt), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: a.String()}},
			bson.D{{Key: "_id", Value: b.String()}},
		))

		ids, err := s.ListBookIDs(context.Background(), uuid.Nil, 2)
		require.NoError(mt, err)
		assert.Equal(mt, []uuid.UUID{a, b}, ids)
	})
}

func TestStore_Capabilities(t *testing.T) {
	mt := newMockT(t)

	mt.Run("replica set", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "setName", Value: "rs0"}))

		caps, err := s.Capabilities(context.Background())
		require.NoError(mt, err)
		assert.True(mt, caps.Transactions)

		// Cached: no second hello.
		caps, err = s.Capabilities(context.Background())
		require.NoError(mt, err)
		assert.True(mt, caps.Transactions)
	})

	mt.Run("standalone", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "isWritablePrimary", Value: true}))

		caps, err := s.Capabilities(context.Background())
		require.NoError(mt, err)
		assert.False(mt, caps.Transactions)
	})
}

func TestStore_AuditLogAndList(t *testing.T) {
	mt := newMockT(t)

	mt.Run("log", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := s.Log(context.Background(), domain.AuditRecord{BookID: uuid.New(), Action: domain.AuditActionAddChapter, Outcome: domain.AuditOutcomeSuccess})
		require.NoError(mt, err)
	})

	mt.Run("list newest first", func(mt *mtest.T) {
		s := New(mt.DB)
		bookID := uuid.New()
		recID := uuid.New()
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, auditNS(mt), mtest.FirstBatch, bson.D{
			{Key: "seq", Value: primitive.NewObjectID()},
			{Key: "id", Value: recID.String()},
			{Key: "actor_id", Value: "user-1"},
			{Key: "action", Value: "MOVE_CHAPTER"},
			{Key: "book_id", Value: bookID.String()},
			{Key: "chapter_id", Value: "c9"},
			{Key: "outcome", Value: "SUCCESS"},
			{Key: "version", Value: int64(8)},
			{Key: "created_at", Value: now},
		}))

		recs, err := s.ListByBook(context.Background(), bookID, 5)
		require.NoError(mt, err)
		require.Len(mt, recs, 1)
		assert.Equal(mt, recID, recs[0].ID)
		assert.Equal(mt, domain.AuditActionMoveChapter, recs[0].Action)
		require.NotNil(mt, recs[0].ChapterID)
		assert.Equal(mt, "c9", *recs[0].ChapterID)
		assert.Equal(mt, int64(8), recs[0].Version)
	})
}

func TestMapError(t *testing.T) {
	t.Parallel()
	id := uuid.New()

	assert.NoError(t, mapError(nil, "read_toc", false, id))
	assert.ErrorIs(t, mapError(mongo.ErrNoDocuments, "read_toc", false, id), domain.ErrNotFound)

	err := mapError(context.DeadlineExceeded, "conditional_write", true, id)
	assert.ErrorIs(t, err, domain.ErrOutcomeUncertain)

	err = mapError(context.Canceled, "read_toc", false, id)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, errors.Is(err, domain.ErrOutcomeUncertain))

	kept := domain.NewStoreError("read_toc", false, context.Canceled)
	assert.Same(t, kept, mapError(kept, "other", true, id))
}
