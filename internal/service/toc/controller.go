package toc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/service/toc/tree"
)

var tracer = otel.Tracer("toc")

// errVersionConflict is the only error the retry loop retries on.
var errVersionConflict = errors.New("version conflict")

// Mutation outcome labels.
const (
	outcomeSuccess  = "success"
	outcomeNoop     = "noop"
	outcomeConflict = "conflict"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// mutationState is the private working copy of one attempt.
type mutationState struct {
	actorID string
	now     time.Time
	toc     domain.TableOfContents

	target *string
	before map[string]any
	after  map[string]any

	// noop ends the attempt successfully without writing or bumping the version.
	noop bool
}

// mutation edits st.toc in place. A returned error aborts the request without retry.
type mutation func(st *mutationState) error

type mutationResult struct {
	Version int64
	State   *mutationState
	Noop    bool
}

type mutationRequest struct {
	bookID  uuid.UUID
	actorID string
	action  domain.AuditAction
	target  *string
	apply   mutation
}

// mutate runs READ → APPLY → CONDITIONAL_WRITE, re-reading and re-applying
// on every version conflict until the attempt bound is reached.
func (s *Service) mutate(ctx context.Context, req mutationRequest) (mutationResult, error) {
	action := req.action.String()
	ctx, span := tracer.Start(ctx, "toc."+strings.ToLower(action),
		trace.WithAttributes(
			attribute.String("toc.book_id", req.bookID.String()),
			attribute.String("toc.action", action),
		))
	defer span.End()

	var (
		result    mutationResult
		lastState *mutationState
		attempts  int
		rejected  bool
	)

	op := func() error {
		attempts++
		span.AddEvent("attempt", trace.WithAttributes(attribute.Int("toc.attempt", attempts)))

		snap, err := s.read(ctx, req.bookID)
		if err != nil {
			return backoff.Permanent(err)
		}

		st := &mutationState{
			actorID: req.actorID,
			now:     s.now().UTC(),
			toc:     tree.CloneTOC(snap.TOC),
			target:  req.target,
		}
		lastState = st

		if err := req.apply(st); err != nil {
			rejected = true
			return backoff.Permanent(err)
		}
		if st.noop {
			result = mutationResult{Version: snap.Version, State: st, Noop: true}
			return nil
		}
		if err := finalize(st); err != nil {
			rejected = true
			return backoff.Permanent(err)
		}

		next := snap.Version + 1
		written, err := s.write(ctx, CommitRequest{
			BookID:   req.bookID,
			Expected: snap.Version,
			TOC:      st.toc,
			Audit:    st.auditRecord(req.bookID, req.action, domain.AuditOutcomeSuccess, next),
		})
		if err != nil {
			return backoff.Permanent(err)
		}
		if !written {
			s.metrics.IncConflict(action)
			s.log.DebugContext(ctx, "toc version conflict",
				slog.String("book_id", req.bookID.String()),
				slog.String("action", action),
				slog.Int64("expected_version", snap.Version),
				slog.Int("attempt", attempts),
			)
			return errVersionConflict
		}

		result = mutationResult{Version: next, State: st}
		return nil
	}

	err := backoff.Retry(op, s.newBackOff(ctx))
	if err != nil {
		outcome := outcomeError
		switch {
		case errors.Is(err, errVersionConflict):
			outcome = outcomeConflict
			err = domain.ErrConcurrencyConflict
			s.log.WarnContext(ctx, "toc mutation exhausted retries",
				slog.String("book_id", req.bookID.String()),
				slog.String("action", action),
				slog.Int("attempts", attempts),
			)
		case rejected:
			outcome = outcomeRejected
		}

		if lastState != nil && (rejected || outcome == outcomeConflict) {
			s.recorder.RecordFailure(ctx, lastState.auditRecord(req.bookID, req.action, domain.AuditOutcomeFailure, 0), err)
		}

		s.metrics.ObserveMutation(action, outcome, attempts)
		span.SetStatus(codes.Error, err.Error())
		return mutationResult{}, fmt.Errorf("%s: %w", strings.ToLower(action), err)
	}

	if result.Noop {
		s.metrics.ObserveMutation(action, outcomeNoop, attempts)
		return result, nil
	}

	s.metrics.ObserveMutation(action, outcomeSuccess, attempts)
	span.SetAttributes(attribute.Int64("toc.version", result.Version))
	s.publish(ctx, domain.TOCChange{
		BookID:     req.bookID,
		Version:    result.Version,
		Action:     req.action,
		ChapterID:  result.State.target,
		ActorID:    req.actorID,
		OccurredAt: result.State.now,
	})

	s.log.InfoContext(ctx, "toc updated",
		slog.String("book_id", req.bookID.String()),
		slog.String("action", action),
		slog.Int64("version", result.Version),
		slog.Int("attempts", attempts),
	)
	return result, nil
}

func (s *Service) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialBackoff
	b.MaxInterval = s.cfg.MaxBackoff
	b.Multiplier = s.cfg.Multiplier
	b.RandomizationFactor = s.cfg.Jitter
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.MaxAttempts-1)), ctx)
}

func (s *Service) read(ctx context.Context, bookID uuid.UUID) (domain.BookSnapshot, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	snap, err := s.store.ReadTOC(opCtx, bookID)
	if err != nil {
		return domain.BookSnapshot{}, storeFailure("read", false, err)
	}
	return snap, nil
}

func (s *Service) write(ctx context.Context, req CommitRequest) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	written, err := s.commit.Commit(opCtx, req)
	if err != nil {
		return false, storeFailure("conditional_write", true, err)
	}
	return written, nil
}

// storeFailure turns bare context errors into store errors. A deadline hit
// during a write leaves the outcome uncertain.
func storeFailure(op string, uncertain bool, err error) error {
	var se *domain.StoreError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewStoreError(op, uncertain, err)
	}
	return err
}

func (s *Service) publish(ctx context.Context, change domain.TOCChange) {
	if err := s.publisher.PublishTOCChanged(ctx, change); err != nil {
		s.log.WarnContext(ctx, "publish toc change",
			slog.String("book_id", change.BookID.String()),
			slog.Int64("version", change.Version),
			slog.String("error", err.Error()),
		)
	}
}

// finalize re-derives cached fields and checks tree invariants before writing.
func finalize(st *mutationState) error {
	tree.RecomputeLevels(st.toc.Chapters)
	if err := tree.Validate(st.toc.Chapters); err != nil {
		return err
	}
	st.toc.TotalChapters = tree.Count(st.toc.Chapters, false)
	st.toc.UpdatedAt = st.now
	st.toc.Status = domain.TOCStatusEdited

	if st.after == nil && st.target != nil {
		if ch, ok := tree.FindByID(st.toc.Chapters, *st.target); ok {
			st.after = ch.Summary()
		}
	}
	return nil
}

func (st *mutationState) auditRecord(bookID uuid.UUID, action domain.AuditAction, outcome domain.AuditOutcome, version int64) domain.AuditRecord {
	return domain.AuditRecord{
		ActorID:   st.actorID,
		Action:    action,
		BookID:    bookID,
		ChapterID: st.target,
		Before:    st.before,
		After:     st.after,
		Outcome:   outcome,
		Version:   version,
		CreatedAt: st.now,
	}
}
