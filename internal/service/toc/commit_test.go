package toc

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/domain"
)

type txKey struct{}

// txMockWithRollback runs fn in a marked context and reports whether it committed.
func txMockWithRollback(committed *bool) *txManagerMock {
	return &txManagerMock{
		RunInTxFunc: func(ctx context.Context, fn func(context.Context) error) error {
			if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
				return err
			}
			*committed = true
			return nil
		},
	}
}

func TestTxCommitter_WritesTOCAndAuditInOneTx(t *testing.T) {
	t.Parallel()

	store, doc := newFakeStore(nil, 1)
	inTx := false
	auditMock := &auditLoggerMock{
		LogFunc: func(ctx context.Context, record domain.AuditRecord) error {
			inTx = ctx.Value(txKey{}) == true
			return nil
		},
	}
	committed := false
	rec := NewRecorder(slog.Default(), auditMock, nil)
	c := NewTxCommitter(store, txMockWithRollback(&committed), rec)

	ok, err := c.Commit(context.Background(), CommitRequest{BookID: uuid.New(), Expected: 1, Audit: domain.AuditRecord{Action: domain.AuditActionAddChapter}})
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v", ok, err)
	}
	if !committed || !inTx {
		t.Errorf("committed=%v auditInTx=%v", committed, inTx)
	}
	if _, v := doc.snapshot(); v != 2 {
		t.Errorf("version: got %d, want 2", v)
	}
	if got := auditMock.LogCalls()[0].Record; got.ID == uuid.Nil || got.CreatedAt.IsZero() {
		t.Errorf("recorder should stamp id and time: %+v", got)
	}
	if !c.Transactional() {
		t.Error("Transactional() = false")
	}
}

func TestTxCommitter_StaleVersionRollsBack(t *testing.T) {
	t.Parallel()

	store, _ := newFakeStore(nil, 5)
	auditMock := defaultAuditMock()
	committed := false
	c := NewTxCommitter(store, txMockWithRollback(&committed), NewRecorder(slog.Default(), auditMock, nil))

	ok, err := c.Commit(context.Background(), CommitRequest{BookID: uuid.New(), Expected: 1})
	if err != nil {
		t.Fatalf("a version mismatch is not an error: %v", err)
	}
	if ok || committed {
		t.Errorf("ok=%v committed=%v, want both false", ok, committed)
	}
	if len(auditMock.LogCalls()) != 0 {
		t.Error("no audit expected on mismatch")
	}
}

func TestTxCommitter_AuditFailureAbortsMutation(t *testing.T) {
	t.Parallel()

	store, _ := newFakeStore(nil, 1)
	auditMock := &auditLoggerMock{
		LogFunc: func(ctx context.Context, record domain.AuditRecord) error {
			return errors.New("audit table locked")
		},
	}
	committed := false
	rec := NewRecorder(slog.Default(), auditMock, nil)
	svc := NewService(slog.Default(), store, NewTxCommitter(store, txMockWithRollback(&committed), rec), rec, &auditReaderMock{}, testConfig())

	_, err := svc.AddChapter(actorCtx(), AddChapterInput{BookID: uuid.New(), Title: "X"})
	if !errors.Is(err, domain.ErrAuditFailed) {
		t.Fatalf("expected ErrAuditFailed, got: %v", err)
	}
	if committed {
		t.Error("transaction must roll back when audit fails")
	}
}

func TestBestEffortCommitter_AuditFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	store, doc := newFakeStore(nil, 1)
	auditMock := &auditLoggerMock{
		LogFunc: func(ctx context.Context, record domain.AuditRecord) error {
			return errors.New("collection unavailable")
		},
	}
	metrics := &recordingMetrics{}
	rec := NewRecorder(slog.Default(), auditMock, metrics)
	svc := NewService(slog.Default(), store, NewBestEffortCommitter(store, rec), rec, &auditReaderMock{}, testConfig())

	res, err := svc.AddChapter(actorCtx(), AddChapterInput{BookID: uuid.New(), Title: "X"})
	if err != nil {
		t.Fatalf("audit failure must not fail a best-effort mutation: %v", err)
	}
	if _, v := doc.snapshot(); v != 2 || res.Version != 2 {
		t.Errorf("TOC write should stand, version %d", v)
	}
	if metrics.dropped != 1 {
		t.Errorf("dropped audit metric: got %d, want 1", metrics.dropped)
	}
}

func TestSelectCommitter(t *testing.T) {
	t.Parallel()

	store := &bookStoreMock{}
	tx := &txManagerMock{}
	rec := NewRecorder(slog.Default(), defaultAuditMock(), nil)
	withTx := domain.StoreCapabilities{Transactions: true}
	noTx := domain.StoreCapabilities{}

	tests := []struct {
		name    string
		mode    string
		caps    domain.StoreCapabilities
		tx      txManager
		wantTx  bool
		wantErr bool
	}{
		{"auto with tx", TxModeAuto, withTx, tx, true, false},
		{"auto without tx", TxModeAuto, noTx, nil, false, false},
		{"empty mode is auto", "", withTx, tx, true, false},
		{"off forces best effort", TxModeOff, withTx, tx, false, false},
		{"on with tx", TxModeOn, withTx, tx, true, false},
		{"on without tx", TxModeOn, noTx, nil, false, true},
		{"unknown mode", "sometimes", withTx, tx, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := SelectCommitter(slog.Default(), tt.mode, tt.caps, store, tt.tx, rec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Transactional() != tt.wantTx {
				t.Errorf("Transactional() = %v, want %v", c.Transactional(), tt.wantTx)
			}
		})
	}
}

func TestRecorder_RecordFailureSurvivesCancelledContext(t *testing.T) {
	t.Parallel()

	var sawCancelled bool
	auditMock := &auditLoggerMock{
		LogFunc: func(ctx context.Context, record domain.AuditRecord) error {
			sawCancelled = ctx.Err() != nil
			return nil
		},
	}
	rec := NewRecorder(slog.Default(), auditMock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.RecordFailure(ctx, domain.AuditRecord{Action: domain.AuditActionDeleteChapter, Version: 4}, domain.ErrChapterNotFound)

	calls := auditMock.LogCalls()
	if len(calls) != 1 {
		t.Fatalf("audit calls: got %d, want 1", len(calls))
	}
	got := calls[0].Record
	if got.Outcome != domain.AuditOutcomeFailure || got.Version != 0 || got.Error != domain.ErrChapterNotFound.Error() {
		t.Errorf("unexpected record: %+v", got)
	}
	if sawCancelled {
		t.Error("failure audit should run detached from caller cancellation")
	}
}
