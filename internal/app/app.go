package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/frankbria/auto-author/internal/config"
	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/event"
	"github.com/frankbria/auto-author/internal/metrics"
	"github.com/frankbria/auto-author/internal/service/retention"
	"github.com/frankbria/auto-author/internal/service/toc"
	"github.com/frankbria/auto-author/internal/telemetry"
	"github.com/frankbria/auto-author/internal/transport/rest"
)

// Runtime is the wired TOC engine for one process.
type Runtime struct {
	TOC       *toc.Service
	Retention *retention.Service
	Metrics   *metrics.Metrics
	Health    *rest.HealthHandler

	// Transactional reports which commit strategy was selected.
	Transactional bool

	store     tocStore
	publisher event.Publisher
	closers   []func(context.Context) error
}

// Build opens the configured store, detects its capabilities and wires the
// TOC service with the matching commit strategy.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*Runtime, error) {
	m := metrics.New()

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	rt := &Runtime{Metrics: m, store: b.books, closers: []func(context.Context) error{b.close}}

	caps, err := b.books.Capabilities(ctx)
	if err != nil {
		rt.Close(context.Background()) //nolint:errcheck
		return nil, fmt.Errorf("detect store capabilities: %w", err)
	}
	log.Info("store capabilities",
		slog.String("backend", b.name),
		slog.Bool("transactions", caps.Transactions),
		slog.String("mode", cfg.Store.Transactions),
	)

	store := metrics.InstrumentStore(b.books, m)
	recorder := toc.NewRecorder(log, b.audit, m)
	commit, err := toc.SelectCommitter(log, cfg.Store.Transactions, caps, store, b.tx, recorder)
	if err != nil {
		rt.Close(context.Background()) //nolint:errcheck
		return nil, err
	}
	rt.Transactional = commit.Transactional()

	publisher, err := event.Connect(log, cfg.Events, m)
	if err != nil {
		rt.Close(context.Background()) //nolint:errcheck
		return nil, err
	}
	rt.publisher = publisher
	rt.closers = append(rt.closers, func(context.Context) error { return publisher.Close() })

	rt.TOC = toc.NewService(log, store, commit, recorder, b.audit, tocConfig(cfg),
		toc.WithMetrics(m),
		toc.WithPublisher(publisher),
	)
	rt.Retention = retention.NewService(log, b.books, rt.TOC, cfg.Retention)

	components := []rest.Component{{Name: b.name, Pinger: b.ping}}
	if cfg.Events.NATSURL != "" {
		components = append(components, rest.Component{Name: "events", Pinger: publisher, Optional: true})
	}
	rt.Health = rest.NewHealthHandler(BuildVersion(), components...)

	return rt, nil
}

func tocConfig(cfg config.Config) toc.Config {
	return toc.Config{
		MaxAttempts:      cfg.TOC.MaxAttempts,
		InitialBackoff:   cfg.TOC.InitialBackoff,
		MaxBackoff:       cfg.TOC.MaxBackoff,
		Multiplier:       cfg.TOC.Multiplier,
		Jitter:           cfg.TOC.Jitter,
		OperationTimeout: cfg.Store.OperationTimeout,
	}
}

// CreateBook stores a new book at version 1.
func (rt *Runtime) CreateBook(ctx context.Context, b domain.Book) (domain.Book, error) {
	return rt.store.CreateBook(ctx, b)
}

// Close releases everything Build opened, newest first.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// Run is the tocd entry point: it serves the ops endpoints and runs the
// periodic retention sweep until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log, "tocd")
	logger.Info("starting tocd",
		slog.String("version", BuildVersion()),
		slog.String("backend", cfg.Store.Backend),
		slog.String("log_level", cfg.Log.Level),
	)

	shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry, Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Ops.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			logger.Error("shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	rt, err := Build(ctx, *cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Ops.ShutdownTimeout)
		defer cancel()
		if err := rt.Close(sctx); err != nil {
			logger.Error("close runtime", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Ops.Host, strconv.Itoa(cfg.Ops.Port)),
		Handler:      rest.NewOpsRouter(logger, rt.Health, rest.NewSweepHandler(rt.Retention, logger, cfg.Ops.SweepTimeout), rt.Metrics.Handler()),
		ReadTimeout:  cfg.Ops.ReadTimeout,
		WriteTimeout: cfg.Ops.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("ops server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("retention sweeper started",
			slog.Int("retention_days", cfg.Retention.Days),
			slog.Duration("interval", cfg.Retention.SweepInterval),
		)
		return rt.Retention.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Ops.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	logger.Info("tocd stopped")
	return err
}
