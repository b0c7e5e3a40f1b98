package toc

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/pkg/ctxutil"
)

// PurgeFailure describes a chapter the purge could not process.
type PurgeFailure struct {
	ChapterID string
	Reason    string
}

// PurgeReport lists what one purge pass did. Skipped chapters are expired but
// still hold surviving subchapters.
type PurgeReport struct {
	Purged   []string
	Skipped  []string
	Failures []PurgeFailure
}

// PurgeResult is returned by PurgeExpired. Version is the book version after the
// purge, unchanged when nothing was removed.
type PurgeResult struct {
	PurgeReport
	Version int64
}

// PurgeExpired permanently removes chapters soft-deleted more than
// retentionDays ago. Children are processed before their parent, and a parent
// is only removed once none of its children survive.
func (s *Service) PurgeExpired(ctx context.Context, bookID uuid.UUID, retentionDays int) (PurgeResult, error) {
	if bookID == uuid.Nil {
		return PurgeResult{}, domain.NewValidationError("book_id", "required")
	}
	if retentionDays < 0 {
		return PurgeResult{}, domain.NewValidationError("retention_days", "must be no less than 0")
	}

	actorID, ok := ctxutil.ActorIDFromCtx(ctx)
	if !ok {
		actorID = SystemActor
	}

	var report PurgeReport
	res, err := s.mutate(ctx, mutationRequest{
		bookID:  bookID,
		actorID: actorID,
		action:  domain.AuditActionPurge,
		apply: func(st *mutationState) error {
			cutoff := st.now.Add(-time.Duration(retentionDays) * 24 * time.Hour)
			report = PurgeReport{}
			st.toc.Chapters = purgeList(st.toc.Chapters, cutoff, &report)
			if len(report.Purged) == 0 {
				st.noop = true
				return nil
			}
			st.before = map[string]any{"retention_days": retentionDays}
			st.after = map[string]any{"purged": report.Purged}
			return nil
		},
	})
	if err != nil {
		return PurgeResult{}, err
	}

	for _, f := range report.Failures {
		s.log.WarnContext(ctx, "purge skipped chapter",
			slog.String("book_id", bookID.String()),
			slog.String("chapter_id", f.ChapterID),
			slog.String("reason", f.Reason),
		)
	}
	if !res.Noop {
		s.metrics.AddPurged(len(report.Purged))
	}

	return PurgeResult{PurgeReport: report, Version: res.Version}, nil
}

// purgeList returns list without expired deleted leaves, recursing first.
func purgeList(list []domain.Chapter, cutoff time.Time, report *PurgeReport) []domain.Chapter {
	if len(list) == 0 {
		return list
	}

	out := make([]domain.Chapter, 0, len(list))
	for _, ch := range list {
		ch.Subchapters = purgeList(ch.Subchapters, cutoff, report)

		switch {
		case !ch.IsDeleted:
		case ch.DeletedAt == nil:
			report.Failures = append(report.Failures, PurgeFailure{
				ChapterID: ch.ID,
				Reason:    "deleted chapter has no deletion time",
			})
		case !ch.DeletedAt.Before(cutoff):
		case len(ch.Subchapters) > 0:
			report.Skipped = append(report.Skipped, ch.ID)
		default:
			report.Purged = append(report.Purged, ch.ID)
			continue
		}
		out = append(out, ch)
	}
	return out
}
