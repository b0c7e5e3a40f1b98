// Package memory provides an in-process book store for development and tests.
// It has no multi-document transactions, so the service runs best-effort on it.
package memory

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/service/toc/tree"
)

// Faults lets tests inject store failures. A non-nil error returned by a hook
// is returned by the corresponding operation without touching state.
type Faults struct {
	BeforeRead  func(bookID uuid.UUID) error
	BeforeWrite func(bookID uuid.UUID, expected int64) error
	BeforeAudit func(rec domain.AuditRecord) error
}

// Store keeps books and audit records in maps guarded by a single mutex.
type Store struct {
	mu     sync.RWMutex
	books  map[uuid.UUID]*domain.Book
	audit  map[uuid.UUID][]domain.AuditRecord
	faults Faults
	now    func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		books: make(map[uuid.UUID]*domain.Book),
		audit: make(map[uuid.UUID][]domain.AuditRecord),
		now:   time.Now,
	}
}

// SetFaults replaces the fault hooks.
func (s *Store) SetFaults(f Faults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = f
}

// Capabilities reports that the memory store has no transactions.
func (s *Store) Capabilities(context.Context) (domain.StoreCapabilities, error) {
	return domain.StoreCapabilities{Transactions: false}, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// CreateBook stores a new book at version 1. A nil ID is generated.
func (s *Store) CreateBook(ctx context.Context, book domain.Book) (domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return domain.Book{}, domain.NewStoreError("create_book", false, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	if _, exists := s.books[book.ID]; exists {
		return domain.Book{}, domain.ErrAlreadyExists
	}

	now := s.now().UTC()
	book.Version = 1
	book.CreatedAt = now
	book.UpdatedAt = now
	book.TOC = tree.CloneTOC(book.TOC)
	if book.TOC.UpdatedAt.IsZero() {
		book.TOC.UpdatedAt = now
	}

	stored := book
	stored.TOC = tree.CloneTOC(book.TOC)
	s.books[book.ID] = &stored
	return book, nil
}

// ReadTOC returns a deep copy of the book's TOC with its version.
func (s *Store) ReadTOC(ctx context.Context, bookID uuid.UUID) (domain.BookSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.BookSnapshot{}, domain.NewStoreError("read", false, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.faults.BeforeRead != nil {
		if err := s.faults.BeforeRead(bookID); err != nil {
			return domain.BookSnapshot{}, err
		}
	}

	b, ok := s.books[bookID]
	if !ok {
		return domain.BookSnapshot{}, domain.ErrBookNotFound
	}
	return domain.BookSnapshot{BookID: bookID, TOC: tree.CloneTOC(b.TOC), Version: b.Version}, nil
}

// ConditionalWriteTOC replaces the TOC only if the stored version equals expected.
func (s *Store) ConditionalWriteTOC(ctx context.Context, bookID uuid.UUID, expected int64, toc domain.TableOfContents, next int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.NewStoreError("conditional_write", false, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faults.BeforeWrite != nil {
		if err := s.faults.BeforeWrite(bookID, expected); err != nil {
			return false, err
		}
	}

	b, ok := s.books[bookID]
	if !ok {
		return false, domain.ErrBookNotFound
	}
	if b.Version != expected {
		return false, nil
	}

	b.TOC = tree.CloneTOC(toc)
	b.Version = next
	b.UpdatedAt = s.now().UTC()
	return true, nil
}

// ListBookIDs returns up to limit book ids greater than after, ascending.
func (s *Store) ListBookIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("list_books", false, err)
	}

	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.books))
	for id := range s.books {
		if bytes.Compare(id[:], after[:]) > 0 {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Log appends an audit record.
func (s *Store) Log(ctx context.Context, rec domain.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("audit_log", false, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faults.BeforeAudit != nil {
		if err := s.faults.BeforeAudit(rec); err != nil {
			return err
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.audit[rec.BookID] = append(s.audit[rec.BookID], rec)
	return nil
}

// ListByBook returns the newest audit records of a book first.
func (s *Store) ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]domain.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("audit_list", false, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.audit[bookID]
	out := make([]domain.AuditRecord, 0, min(len(records), max(limit, 0)))
	for i := len(records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, records[i])
	}
	return out, nil
}
