package toc

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/domain"
)

var _ auditLogger = &auditLoggerMock{}

type auditLoggerMock struct {
	LogFunc func(ctx context.Context, record domain.AuditRecord) error

	calls struct {
		Log []struct {
			Ctx    context.Context
			Record domain.AuditRecord
		}
	}
	lockLog sync.RWMutex
}

func (mock *auditLoggerMock) Log(ctx context.Context, record domain.AuditRecord) error {
	if mock.LogFunc == nil {
		panic("auditLoggerMock.LogFunc: method is nil but auditLogger.Log was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		Record domain.AuditRecord
	}{Ctx: ctx, Record: record}
	mock.lockLog.Lock()
	mock.calls.Log = append(mock.calls.Log, callInfo)
	mock.lockLog.Unlock()
	return mock.LogFunc(ctx, record)
}

func (mock *auditLoggerMock) LogCalls() []struct {
	Ctx    context.Context
	Record domain.AuditRecord
} {
	mock.lockLog.RLock()
	calls := mock.calls.Log
	mock.lockLog.RUnlock()
	return calls
}

var _ auditReader = &auditReaderMock{}

type auditReaderMock struct {
	ListByBookFunc func(ctx context.Context, bookID uuid.UUID, limit int) ([]domain.AuditRecord, error)

	calls struct {
		ListByBook []struct {
			Ctx    context.Context
			BookID uuid.UUID
			Limit  int
		}
	}
	lockListByBook sync.RWMutex
}

func (mock *auditReaderMock) ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]domain.AuditRecord, error) {
	if mock.ListByBookFunc == nil {
		panic("auditReaderMock.ListByBookFunc: method is nil but auditReader.ListByBook was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		BookID uuid.UUID
		Limit  int
	}{Ctx: ctx, BookID: bookID, Limit: limit}
	mock.lockListByBook.Lock()
	mock.calls.ListByBook = append(mock.calls.ListByBook, callInfo)
	mock.lockListByBook.Unlock()
	return mock.ListByBookFunc(ctx, bookID, limit)
}

func (mock *auditReaderMock) ListByBookCalls() []struct {
	Ctx    context.Context
	BookID uuid.UUID
	Limit  int
} {
	mock.lockListByBook.RLock()
	calls := mock.calls.ListByBook
	mock.lockListByBook.RUnlock()
	return calls
}
