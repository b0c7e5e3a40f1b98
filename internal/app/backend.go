package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/adapter/memory"
	mongostore "github.com/frankbria/auto-author/internal/adapter/mongo"
	"github.com/frankbria/auto-author/internal/adapter/postgres"
	"github.com/frankbria/auto-author/internal/adapter/postgres/audit"
	"github.com/frankbria/auto-author/internal/adapter/postgres/book"
	redisstore "github.com/frankbria/auto-author/internal/adapter/redis"
	"github.com/frankbria/auto-author/internal/config"
	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/transport/rest"
)

type tocStore interface {
	CreateBook(ctx context.Context, book domain.Book) (domain.Book, error)
	ReadTOC(ctx context.Context, bookID uuid.UUID) (domain.BookSnapshot, error)
	ConditionalWriteTOC(ctx context.Context, bookID uuid.UUID, expected int64, toc domain.TableOfContents, next int64) (bool, error)
	ListBookIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	Capabilities(ctx context.Context) (domain.StoreCapabilities, error)
}

type auditStore interface {
	Log(ctx context.Context, record domain.AuditRecord) error
	ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]domain.AuditRecord, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// backend is one opened document store. tx is nil when the store cannot run
// multi-document transactions.
type backend struct {
	name  string
	books tocStore
	audit auditStore
	tx    txRunner
	ping  rest.Pinger
	close func(context.Context) error
}

func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		return openPostgres(ctx, cfg, log)
	case config.BackendMongo:
		return openMongo(ctx, cfg, log)
	case config.BackendRedis:
		return openRedis(ctx, cfg, log)
	case config.BackendMemory:
		return openMemory(log), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openPostgres(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	log.Info("connected to postgres", slog.Int("max_conns", int(cfg.Database.MaxConns)))

	return &backend{
		name:  config.BackendPostgres,
		books: book.New(pool),
		audit: audit.New(pool),
		tx:    postgres.NewTxManager(pool, cfg.Store.TxMaxRetries),
		ping:  pool,
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func openMongo(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	client, err := mongostore.Connect(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	store := mongostore.New(client.Database(cfg.Mongo.Database))
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("connected to mongo", slog.String("database", cfg.Mongo.Database))

	return &backend{
		name:  config.BackendMongo,
		books: store,
		audit: store,
		tx:    mongostore.NewTxManager(client),
		ping:  store,
		close: client.Disconnect,
	}, nil
}

func openRedis(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	client, err := redisstore.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	store := redisstore.New(client)
	log.Info("connected to redis", slog.String("addr", cfg.Redis.Addr))

	return &backend{
		name:  config.BackendRedis,
		books: store,
		audit: store,
		ping:  store,
		close: func(context.Context) error { return client.Close() },
	}, nil
}

func openMemory(log *slog.Logger) *backend {
	log.Warn("using in-memory store, data is lost on exit")
	store := memory.New()
	return &backend{
		name:  config.BackendMemory,
		books: store,
		audit: store,
		ping:  store,
		close: func(context.Context) error { return nil },
	}
}
