package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/domain"
)

// BookStore is the store surface the TOC service uses.
type BookStore interface {
	ReadTOC(ctx context.Context, bookID uuid.UUID) (domain.BookSnapshot, error)
	ConditionalWriteTOC(ctx context.Context, bookID uuid.UUID, expected int64, toc domain.TableOfContents, next int64) (bool, error)
}

// InstrumentedStore times every call of the wrapped store. A lost
// compare-and-set is reported with status "ok"; it is not a store failure.
type InstrumentedStore struct {
	next BookStore
	m    *Metrics
}

// InstrumentStore wraps next.
func InstrumentStore(next BookStore, m *Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, m: m}
}

func (s *InstrumentedStore) ReadTOC(ctx context.Context, bookID uuid.UUID) (domain.BookSnapshot, error) {
	started := time.Now()
	snap, err := s.next.ReadTOC(ctx, bookID)
	s.m.ObserveStore("read_toc", started, err)
	return snap, err
}

func (s *InstrumentedStore) ConditionalWriteTOC(ctx context.Context, bookID uuid.UUID, expected int64, toc domain.TableOfContents, next int64) (bool, error) {
	started := time.Now()
	ok, err := s.next.ConditionalWriteTOC(ctx, bookID, expected, toc, next)
	s.m.ObserveStore("conditional_write_toc", started, err)
	return ok, err
}
