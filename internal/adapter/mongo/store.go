// Package mongo implements the versioned TOC document store on MongoDB.
//
// A book is one document with the TOC embedded next to an integer version;
// writes are UpdateOne calls filtered on that version. Multi-document
// transactions exist only on replica sets and sharded clusters, which
// Capabilities detects with the hello command.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/frankbria/auto-author/internal/config"
	"github.com/frankbria/auto-author/internal/domain"
)

const (
	booksCollection = "books"
	auditCollection = "toc_audit"
)

type bookDoc struct {
	ID        string                 `bson:"_id"`
	OwnerID   string                 `bson:"owner_id"`
	Title     string                 `bson:"title"`
	TOC       domain.TableOfContents `bson:"toc"`
	Version   int64                  `bson:"version"`
	CreatedAt time.Time              `bson:"created_at"`
	UpdatedAt time.Time              `bson:"updated_at"`
}

// Store provides book and audit persistence backed by MongoDB.
type Store struct {
	db    *mongo.Database
	books *mongo.Collection
	audit *mongo.Collection
	now   func() time.Time

	capsMu sync.Mutex
	caps   *domain.StoreCapabilities
}

// New creates a Store on db.
func New(db *mongo.Database) *Store {
	return &Store{
		db:    db,
		books: db.Collection(booksCollection),
		audit: db.Collection(auditCollection),
		now:   time.Now,
	}
}

// Connect opens a client from MongoConfig and pings the primary.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.audit.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "book_id", Value: 1}, {Key: "seq", Value: -1}},
			Options: options.Index().SetName("idx_book_seq"),
		},
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("uniq_id").SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create audit indexes: %w", err)
	}
	return nil
}

// Capabilities reports transaction support, detected via hello and cached
// after the first successful call.
func (s *Store) Capabilities(ctx context.Context) (domain.StoreCapabilities, error) {
	s.capsMu.Lock()
	defer s.capsMu.Unlock()
	if s.caps != nil {
		return *s.caps, nil
	}

	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := s.db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return domain.StoreCapabilities{}, mapError(err, "hello", false, uuid.Nil)
	}
	// Standalone servers answer without setName; mongos answers isdbgrid.
	s.caps = &domain.StoreCapabilities{Transactions: hello.SetName != "" || hello.Msg == "isdbgrid"}
	return *s.caps, nil
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

// CreateBook stores a new book at version 1. A nil ID is generated.
func (s *Store) CreateBook(ctx context.Context, book domain.Book) (domain.Book, error) {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	book.Version = 1
	book.CreatedAt = now
	book.UpdatedAt = now
	if book.TOC.UpdatedAt.IsZero() {
		book.TOC.UpdatedAt = now
	}

	_, err := s.books.InsertOne(ctx, bookDoc{
		ID:        book.ID.String(),
		OwnerID:   book.OwnerID,
		Title:     book.Title,
		TOC:       book.TOC,
		Version:   book.Version,
		CreatedAt: book.CreatedAt,
		UpdatedAt: book.UpdatedAt,
	})
	if err != nil {
		return domain.Book{}, mapError(err, "create_book", true, book.ID)
	}
	return book, nil
}

// ReadTOC returns the TOC with the version it carried. Inside RunInTx the
// read joins the session.
func (s *Store) ReadTOC(ctx context.Context, bookID uuid.UUID) (domain.BookSnapshot, error) {
	var doc bookDoc
	err := s.books.FindOne(ctx, bson.D{{Key: "_id", Value: bookID.String()}},
		options.FindOne().SetProjection(bson.D{{Key: "toc", Value: 1}, {Key: "version", Value: 1}}),
	).Decode(&doc)
	if err != nil {
		return domain.BookSnapshot{}, notFoundAsBook(mapError(err, "read_toc", false, bookID), bookID)
	}
	return domain.BookSnapshot{BookID: bookID, TOC: doc.TOC, Version: doc.Version}, nil
}

// ConditionalWriteTOC replaces the TOC only if the stored version equals expected.
func (s *Store) ConditionalWriteTOC(ctx context.Context, bookID uuid.UUID, expected int64, toc domain.TableOfContents, next int64) (bool, error) {
	res, err := s.books.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: bookID.String()}, {Key: "version", Value: expected}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "toc", Value: toc},
			{Key: "version", Value: next},
			{Key: "updated_at", Value: s.now().UTC()},
		}}},
	)
	if err != nil {
		return false, mapError(err, "conditional_write", true, bookID)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	n, err := s.books.CountDocuments(ctx, bson.D{{Key: "_id", Value: bookID.String()}}, options.Count().SetLimit(1))
	if err != nil {
		return false, mapError(err, "read_version", false, bookID)
	}
	if n == 0 {
		return false, fmt.Errorf("book %s: %w", bookID, domain.ErrBookNotFound)
	}
	return false, nil
}

// ListBookIDs returns up to limit book ids greater than after, ascending.
func (s *Store) ListBookIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.books.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$gt", Value: after.String()}}}}, opts)
	if err != nil {
		return nil, mapError(err, "list_books", false, after)
	}
	defer cur.Close(ctx)

	var ids []uuid.UUID
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode book id: %w", err)
		}
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("parse book id %q: %w", doc.ID, err)
		}
		ids = append(ids, id)
	}
	if err := cur.Err(); err != nil {
		return nil, mapError(err, "list_books", false, after)
	}
	return ids, nil
}

// mapError converts mongo-driver errors into domain errors.
func mapError(err error, op string, write bool, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", op, id, domain.ErrNotFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s: %w", op, id, domain.ErrAlreadyExists)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		mongo.IsTimeout(err) || mongo.IsNetworkError(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return domain.NewStoreError(op, write, err)
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

func notFoundAsBook(err error, bookID uuid.UUID) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("book %s: %w", bookID, domain.ErrBookNotFound)
	}
	return err
}
