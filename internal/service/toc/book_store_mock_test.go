package toc

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/domain"
)

var _ bookStore = &bookStoreMock{}

type bookStoreMock struct {
	ReadTOCFunc             func(ctx context.Context, bookID uuid.UUID) (domain.BookSnapshot, error)
	ConditionalWriteTOCFunc func(ctx context.Context, bookID uuid.UUID, expected int64, toc domain.TableOfContents, next int64) (bool, error)

	calls struct {
		ReadTOC []struct {
			Ctx    context.Context
			BookID uuid.UUID
		}
		ConditionalWriteTOC []struct {
			Ctx      context.Context
			BookID   uuid.UUID
			Expected int64
			TOC      domain.TableOfContents
			Next     int64
		}
	}
	lockReadTOC             sync.RWMutex
	lockConditionalWriteTOC sync.RWMutex
}

func (mock *bookStoreMock) ReadTOC(ctx context.Context, bookID uuid.UUID) (domain.BookSnapshot, error) {
	if mock.ReadTOCFunc == nil {
		panic("bookStoreMock.ReadTOCFunc: method is nil but bookStore.ReadTOC was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		BookID uuid.UUID
	}{Ctx: ctx, BookID: bookID}
	mock.lockReadTOC.Lock()
	mock.calls.ReadTOC = append(mock.calls.ReadTOC, callInfo)
	mock.lockReadTOC.Unlock()
	return mock.ReadTOCFunc(ctx, bookID)
}

func (mock *bookStoreMock) ReadTOCCalls() []struct {
	Ctx    context.Context
	BookID uuid.UUID
} {
	mock.lockReadTOC.RLock()
	calls := mock.calls.ReadTOC
	mock.lockReadTOC.RUnlock()
	return calls
}

func (mock *bookStoreMock) ConditionalWriteTOC(ctx context.Context, bookID uuid.UUID, expected int64, toc domain.TableOfContents, next int64) (bool, error) {
	if mock.ConditionalWriteTOCFunc == nil {
		panic("bookStoreMock.ConditionalWriteTOCFunc: method is nil but bookStore.ConditionalWriteTOC was just called")
	}
	callInfo := struct {
		Ctx      context.Context
		BookID   uuid.UUID
		Expected int64
		TOC      domain.TableOfContents
		Next     int64
	}{Ctx: ctx, BookID: bookID, Expected: expected, TOC: toc, Next: next}
	mock.lockConditionalWriteTOC.Lock()
	mock.calls.ConditionalWriteTOC = append(mock.calls.ConditionalWriteTOC, callInfo)
	mock.lockConditionalWriteTOC.Unlock()
	return mock.ConditionalWriteTOCFunc(ctx, bookID, expected, toc, next)
}

func (mock *bookStoreMock) ConditionalWriteTOCCalls() []struct {
	Ctx      context.Context
	BookID   uuid.UUID
	Expected int64
	TOC      domain.TableOfContents
	Next     int64
} {
	mock.lockConditionalWriteTOC.RLock()
	calls := mock.calls.ConditionalWriteTOC
	mock.lockConditionalWriteTOC.RUnlock()
	return calls
}
