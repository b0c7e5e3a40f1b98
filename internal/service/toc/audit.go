package toc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/domain"
)

// failureAuditTimeout bounds the detached write of a FAILURE record.
const failureAuditTimeout = 2 * time.Second

// Recorder appends audit records to an append-only sink.
type Recorder struct {
	sink    auditLogger
	metrics metricsRecorder
	log     *slog.Logger
	now     func() time.Time
}

// NewRecorder creates a Recorder writing to sink. metrics may be nil.
func NewRecorder(log *slog.Logger, sink auditLogger, metrics metricsRecorder) *Recorder {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Recorder{
		sink:    sink,
		metrics: metrics,
		log:     log.With("component", "audit"),
		now:     time.Now,
	}
}

// Record appends rec. A failed append is logged and swallowed.
func (r *Recorder) Record(ctx context.Context, rec domain.AuditRecord) {
	if err := r.RecordStrict(ctx, rec); err != nil {
		r.metrics.IncAuditDropped()
		r.log.ErrorContext(ctx, "audit record dropped",
			slog.String("action", rec.Action.String()),
			slog.String("book_id", rec.BookID.String()),
			slog.String("outcome", rec.Outcome.String()),
			slog.String("error", err.Error()),
		)
	}
}

// RecordStrict appends rec and reports the failure to the caller. Used inside
// a transaction, where a failed append must roll the mutation back.
func (r *Recorder) RecordStrict(ctx context.Context, rec domain.AuditRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	if err := r.sink.Log(ctx, rec); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAuditFailed, err)
	}
	return nil
}

// RecordFailure writes a FAILURE record for a rejected mutation. It runs
// detached from ctx cancellation so a cancelled request still leaves a trace.
func (r *Recorder) RecordFailure(ctx context.Context, rec domain.AuditRecord, cause error) {
	rec.Outcome = domain.AuditOutcomeFailure
	rec.Version = 0
	rec.Error = cause.Error()

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureAuditTimeout)
	defer cancel()
	r.Record(detached, rec)
}
