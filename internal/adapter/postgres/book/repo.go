// Package book implements the versioned TOC document store on PostgreSQL.
// The TOC lives in a JSONB column next to an integer version; writes are
// conditioned on that version.
package book

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	postgres "github.com/frankbria/auto-author/internal/adapter/postgres"
	"github.com/frankbria/auto-author/internal/domain"
)

const table = "books"

// Repo provides book persistence backed by PostgreSQL.
type Repo struct {
	db   postgres.Querier
	psql squirrel.StatementBuilderType
	now  func() time.Time
}

// New creates a new book repository.
func New(db postgres.Querier) *Repo {
	return &Repo{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:  time.Now,
	}
}

// Capabilities reports transaction support. Postgres always has it.
func (r *Repo) Capabilities(context.Context) (domain.StoreCapabilities, error) {
	return domain.StoreCapabilities{Transactions: true}, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// CreateBook inserts a book at version 1. A nil ID is generated.
func (r *Repo) CreateBook(ctx context.Context, book domain.Book) (domain.Book, error) {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	now := r.now().UTC().Truncate(time.Microsecond)
	book.Version = 1
	book.CreatedAt = now
	book.UpdatedAt = now
	if book.TOC.UpdatedAt.IsZero() {
		book.TOC.UpdatedAt = now
	}

	tocJSON, err := json.Marshal(book.TOC)
	if err != nil {
		return domain.Book{}, fmt.Errorf("book %s marshal toc: %w", book.ID, err)
	}

	query, args, err := r.psql.Insert(table).
		Columns("id", "owner_id", "title", "toc", "version", "created_at", "updated_at").
		Values(book.ID, book.OwnerID, book.Title, tocJSON, book.Version, book.CreatedAt, book.UpdatedAt).
		ToSql()
	if err != nil {
		return domain.Book{}, fmt.Errorf("build insert book: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...); err != nil {
		return domain.Book{}, postgres.MapError(err, "create_book", true, book.ID)
	}
	return book, nil
}

// ConditionalWriteTOC replaces the TOC only if the stored version equals
// expected. A version mismatch reports false without error.
func (r *Repo) ConditionalWriteTOC(ctx context.Context, bookID uuid.UUID, expected int64, toc domain.TableOfContents, next int64) (bool, error) {
	tocJSON, err := json.Marshal(toc)
	if err != nil {
		return false, fmt.Errorf("book %s marshal toc: %w", bookID, err)
	}

	query, args, err := r.psql.Update(table).
		Set("toc", tocJSON).
		Set("version", next).
		Set("updated_at", r.now().UTC()).
		Where("id = ? AND version = ?", bookID, expected).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update toc: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.db)
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return false, postgres.MapError(err, "conditional_write", true, bookID)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Zero rows: either the version moved or the book is gone.
	if _, err := r.version(ctx, q, bookID); err != nil {
		return false, err
	}
	return false, nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// ReadTOC returns the TOC with the version it carried.
func (r *Repo) ReadTOC(ctx context.Context, bookID uuid.UUID) (domain.BookSnapshot, error) {
	query, args, err := r.psql.Select("toc", "version").
		From(table).
		Where("id = ?", bookID).
		ToSql()
	if err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("build select toc: %w", err)
	}

	var (
		raw     []byte
		version int64
	)
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(&raw, &version); err != nil {
		return domain.BookSnapshot{}, notFoundAsBook(postgres.MapError(err, "read_toc", false, bookID), bookID)
	}

	var toc domain.TableOfContents
	if err := json.Unmarshal(raw, &toc); err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("book %s unmarshal toc: %w", bookID, err)
	}
	return domain.BookSnapshot{BookID: bookID, TOC: toc, Version: version}, nil
}

// ListBookIDs returns up to limit book ids greater than after, ascending.
func (r *Repo) ListBookIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	builder := r.psql.Select("id").
		From(table).
		Where("id > ?", after).
		OrderBy("id ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list books: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "list_books", false, after)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan book id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "list_books", false, after)
	}
	return ids, nil
}

func (r *Repo) version(ctx context.Context, q postgres.Querier, bookID uuid.UUID) (int64, error) {
	query, args, err := r.psql.Select("version").From(table).Where("id = ?", bookID).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build select version: %w", err)
	}
	var v int64
	if err := q.QueryRow(ctx, query, args...).Scan(&v); err != nil {
		return 0, notFoundAsBook(postgres.MapError(err, "read_version", false, bookID), bookID)
	}
	return v, nil
}

// notFoundAsBook narrows a generic not-found to the book-specific sentinel.
func notFoundAsBook(err error, bookID uuid.UUID) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("book %s: %w", bookID, domain.ErrBookNotFound)
	}
	return err
}
