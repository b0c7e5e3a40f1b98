package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/frankbria/auto-author/internal/service/retention"
)

// DefaultSweepTimeout bounds a manual sweep when no timeout is configured.
const DefaultSweepTimeout = 10 * time.Minute

// writeGrace leaves room to encode the report after the sweep deadline.
const writeGrace = 5 * time.Second

type sweeper interface {
	Sweep(ctx context.Context) (retention.Report, error)
}

// SweepHandler lets an operator start a retention sweep by hand.
type SweepHandler struct {
	sweeper sweeper
	log     *slog.Logger
	timeout time.Duration
	running sync.Mutex
}

// NewSweepHandler creates a SweepHandler. A sweep runs for at most timeout,
// independent of the server's WriteTimeout. Zero means DefaultSweepTimeout.
func NewSweepHandler(s sweeper, logger *slog.Logger, timeout time.Duration) *SweepHandler {
	if timeout <= 0 {
		timeout = DefaultSweepTimeout
	}
	return &SweepHandler{sweeper: s, log: logger.With("handler", "sweep"), timeout: timeout}
}

// SweepResponse summarizes a finished sweep.
type SweepResponse struct {
	BooksScanned    int            `json:"books_scanned"`
	BooksChanged    int            `json:"books_changed"`
	ChaptersPurged  int            `json:"chapters_purged"`
	ChaptersSkipped int            `json:"chapters_skipped"`
	Failures        []SweepFailure `json:"failures,omitempty"`
	Duration        string         `json:"duration"`
}

// SweepFailure is a book the sweep could not purge.
type SweepFailure struct {
	BookID string `json:"book_id"`
	Error  string `json:"error"`
}

// Sweep runs one sweep synchronously under the handler's own deadline.
// Only one sweep runs at a time.
// POST /admin/retention/sweep
func (h *SweepHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if !h.running.TryLock() {
		writeError(w, http.StatusConflict, "sweep already running")
		return
	}
	defer h.running.Unlock()

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(h.timeout + writeGrace)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.log.WarnContext(r.Context(), "extend write deadline", slog.String("error", err.Error()))
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.sweeper.Sweep(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.log.ErrorContext(r.Context(), "manual sweep", slog.String("error", err.Error()))
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, "sweep timed out")
			return
		}
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	resp := SweepResponse{
		BooksScanned:    report.BooksScanned,
		BooksChanged:    report.BooksChanged,
		ChaptersPurged:  report.ChaptersPurged,
		ChaptersSkipped: report.ChaptersSkipped,
		Duration:        report.Duration.String(),
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, SweepFailure{BookID: f.BookID.String(), Error: f.Err.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}
