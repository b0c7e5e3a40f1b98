// Package redis implements the versioned TOC document store on Redis.
//
// Each book is a hash holding the TOC as JSON next to its version. The
// compare-and-set write runs as a Lua script so the version check and the
// update happen atomically on the server. Audit records go to a stream per
// book. Redis has no isolation spanning a read, a client-side computation and
// a write, so the store reports no transaction support.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/frankbria/auto-author/internal/config"
	"github.com/frankbria/auto-author/internal/domain"
)

const (
	bookPrefix  = "toc:book:"
	auditPrefix = "toc:audit:"
	bookIndex   = "toc:books"
)

func bookKey(id uuid.UUID) string  { return bookPrefix + id.String() }
func auditKey(id uuid.UUID) string { return auditPrefix + id.String() }

// casScript replaces the TOC only if the stored version equals ARGV[1].
// Returns -1 if the book is missing, 0 on a version mismatch, 1 when applied.
var casScript = redis.NewScript(`
	local v = redis.call("HGET", KEYS[1], "version")
	if not v then
		return -1
	end
	if tonumber(v) ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call("HSET", KEYS[1], "toc", ARGV[3], "version", ARGV[2], "updated_at", ARGV[4])
	return 1
`)

// createScript inserts a book hash and indexes its id. Returns 0 if it exists.
var createScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 1 then
		return 0
	end
	redis.call("HSET", KEYS[1], "owner_id", ARGV[2], "title", ARGV[3], "toc", ARGV[4],
		"version", "1", "created_at", ARGV[5], "updated_at", ARGV[5])
	redis.call("ZADD", KEYS[2], 0, ARGV[1])
	return 1
`)

// Store provides book and audit persistence backed by Redis.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

// New creates a Store on an existing client.
func New(client *redis.Client) *Store {
	return &Store{client: client, now: time.Now}
}

// NewClient connects to Redis and pings it for fail-fast validation.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Capabilities reports that Redis runs best-effort.
func (s *Store) Capabilities(context.Context) (domain.StoreCapabilities, error) {
	return domain.StoreCapabilities{Transactions: false}, nil
}

// Ping checks if the Redis backend is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// CreateBook stores a new book at version 1. A nil ID is generated.
func (s *Store) CreateBook(ctx context.Context, book domain.Book) (domain.Book, error) {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	now := s.now().UTC()
	book.Version = 1
	book.CreatedAt = now
	book.UpdatedAt = now
	if book.TOC.UpdatedAt.IsZero() {
		book.TOC.UpdatedAt = now
	}

	raw, err := json.Marshal(book.TOC)
	if err != nil {
		return domain.Book{}, fmt.Errorf("book %s marshal toc: %w", book.ID, err)
	}

	res, err := createScript.Run(ctx, s.client, []string{bookKey(book.ID), bookIndex},
		book.ID.String(), book.OwnerID, book.Title, raw, now.Format(time.RFC3339Nano)).Int64()
	if err != nil {
		return domain.Book{}, mapError(err, "create_book", true, book.ID)
	}
	if res == 0 {
		return domain.Book{}, fmt.Errorf("book %s: %w", book.ID, domain.ErrAlreadyExists)
	}
	return book, nil
}

// ReadTOC returns the TOC with the version it carried.
func (s *Store) ReadTOC(ctx context.Context, bookID uuid.UUID) (domain.BookSnapshot, error) {
	vals, err := s.client.HMGet(ctx, bookKey(bookID), "toc", "version").Result()
	if err != nil {
		return domain.BookSnapshot{}, mapError(err, "read_toc", false, bookID)
	}
	rawTOC, ok1 := vals[0].(string)
	rawVersion, ok2 := vals[1].(string)
	if !ok1 || !ok2 {
		return domain.BookSnapshot{}, fmt.Errorf("book %s: %w", bookID, domain.ErrBookNotFound)
	}

	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("book %s parse version: %w", bookID, err)
	}
	var toc domain.TableOfContents
	if err := json.Unmarshal([]byte(rawTOC), &toc); err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("book %s unmarshal toc: %w", bookID, err)
	}
	return domain.BookSnapshot{BookID: bookID, TOC: toc, Version: version}, nil
}

// ConditionalWriteTOC replaces the TOC only if the stored version equals expected.
func (s *Store) ConditionalWriteTOC(ctx context.Context, bookID uuid.UUID, expected int64, toc domain.TableOfContents, next int64) (bool, error) {
	raw, err := json.Marshal(toc)
	if err != nil {
		return false, fmt.Errorf("book %s marshal toc: %w", bookID, err)
	}

	res, err := casScript.Run(ctx, s.client, []string{bookKey(bookID)},
		expected, next, raw, s.now().UTC().Format(time.RFC3339Nano)).Int64()
	if err != nil {
		return false, mapError(err, "conditional_write", true, bookID)
	}
	switch res {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("book %s: %w", bookID, domain.ErrBookNotFound)
	}
}

// ListBookIDs returns up to limit book ids greater than after, ascending.
// Canonical uuid strings sort like their bytes, so the lexical index matches
// the ordering of the other stores.
func (s *Store) ListBookIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	rng := &redis.ZRangeBy{Min: "(" + after.String(), Max: "+"}
	if after == uuid.Nil {
		rng.Min = "-"
	}
	if limit > 0 {
		rng.Count = int64(limit)
	}

	members, err := s.client.ZRangeByLex(ctx, bookIndex, rng).Result()
	if err != nil {
		return nil, mapError(err, "list_books", false, after)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("parse indexed book id %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// mapError converts go-redis errors into domain errors.
func mapError(err error, op string, write bool, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s %s: %w", op, id, domain.ErrNotFound)
	}

	var netErr net.Error
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) {
		return domain.NewStoreError(op, write, err)
	}

	// Server replies such as script errors are definite answers.
	return fmt.Errorf("%s %s: %w", op, id, err)
}
