// Package retention hard-deletes expired soft-deleted chapters across all books.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/frankbria/auto-author/internal/config"
	"github.com/frankbria/auto-author/internal/service/toc"
	"github.com/frankbria/auto-author/pkg/ctxutil"
)

type bookLister interface {
	ListBookIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type purger interface {
	PurgeExpired(ctx context.Context, bookID uuid.UUID, retentionDays int) (toc.PurgeResult, error)
}

// BookFailure is a book the sweep could not purge.
type BookFailure struct {
	BookID uuid.UUID
	Err    error
}

// Report aggregates one sweep.
type Report struct {
	BooksScanned    int
	BooksChanged    int
	ChaptersPurged  int
	ChaptersSkipped int
	Failures        []BookFailure
	Duration        time.Duration
}

// Service runs retention sweeps.
type Service struct {
	books  bookLister
	purger purger
	cfg    config.RetentionConfig
	log    *slog.Logger
}

// NewService creates a retention service.
func NewService(log *slog.Logger, books bookLister, purger purger, cfg config.RetentionConfig) *Service {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 24 * time.Hour
	}
	return &Service{
		books:  books,
		purger: purger,
		cfg:    cfg,
		log:    log.With("service", "retention"),
	}
}

// Sweep pages through every book and purges chapters deleted more than
// cfg.Days ago. A failing book is recorded and the sweep moves on; only
// listing errors and cancellation stop it. Without an actor in ctx the
// purges are attributed to toc.SystemActor.
func (s *Service) Sweep(ctx context.Context) (Report, error) {
	started := time.Now()
	if _, ok := ctxutil.ActorIDFromCtx(ctx); !ok {
		ctx = ctxutil.WithActorID(ctx, toc.SystemActor)
	}

	var (
		mu     sync.Mutex
		report Report
		after  = uuid.Nil
	)

	for {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(started)
			return report, err
		}

		ids, err := s.books.ListBookIDs(ctx, after, s.cfg.BatchSize)
		if err != nil {
			report.Duration = time.Since(started)
			return report, fmt.Errorf("list books after %s: %w", after, err)
		}
		if len(ids) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(s.cfg.Concurrency)
		for _, id := range ids {
			g.Go(func() error {
				res, err := s.purger.PurgeExpired(ctx, id, s.cfg.Days)

				mu.Lock()
				defer mu.Unlock()
				report.BooksScanned++
				if err != nil {
					report.Failures = append(report.Failures, BookFailure{BookID: id, Err: err})
					s.log.WarnContext(ctx, "purge book failed",
						slog.String("book_id", id.String()),
						slog.String("error", err.Error()),
					)
					return nil
				}
				if len(res.Purged) > 0 {
					report.BooksChanged++
				}
				report.ChaptersPurged += len(res.Purged)
				report.ChaptersSkipped += len(res.Skipped)
				return nil
			})
		}
		_ = g.Wait()

		after = ids[len(ids)-1]
		if len(ids) < s.cfg.BatchSize {
			break
		}
	}

	report.Duration = time.Since(started)
	s.log.InfoContext(ctx, "retention sweep finished",
		slog.Int("books_scanned", report.BooksScanned),
		slog.Int("books_changed", report.BooksChanged),
		slog.Int("chapters_purged", report.ChaptersPurged),
		slog.Int("chapters_skipped", report.ChaptersSkipped),
		slog.Int("failures", len(report.Failures)),
		slog.Duration("duration", report.Duration),
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// Run sweeps every cfg.SweepInterval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.ErrorContext(ctx, "retention sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
