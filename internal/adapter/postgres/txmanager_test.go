package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/frankbria/auto-author/internal/adapter/postgres"
	"github.com/frankbria/auto-author/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func execTouch(ctx context.Context, db postgres.Querier) error {
	_, err := postgres.QuerierFromCtx(ctx, db).Exec(ctx, "UPDATE books SET title = $1", "t")
	return err
}

func TestRunInTx_Commit(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	tm := postgres.NewTxManager(mock, 3)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE books").WithArgs("t").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	if err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return execTouch(ctx, mock)
	}); err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	tm := postgres.NewTxManager(mock, 3)
	sentinel := errors.New("business logic error")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRunInTx_ReplaysSerializationFailure(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	tm := postgres.NewTxManager(mock, 3)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE books").WithArgs("t").WillReturnError(&pgconn.PgError{Code: "40001"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE books").WithArgs("t").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	calls := 0
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		calls++
		return execTouch(ctx, mock)
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("fn calls: got %d, want 2", calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRunInTx_TransientRetriesAreBounded(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	tm := postgres.NewTxManager(mock, 1)

	for range 2 {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	calls := 0
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "40P01" {
		t.Fatalf("expected the deadlock error, got: %v", err)
	}
	if calls != 2 {
		t.Errorf("fn calls: got %d, want 2", calls)
	}
}

func TestRunInTx_BeginFailureIsStoreError(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	tm := postgres.NewTxManager(mock, 0)

	mock.ExpectBegin().WillReturnError(context.DeadlineExceeded)

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn must not run without a transaction")
		return nil
	})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got: %v", err)
	}
	if errors.Is(err, domain.ErrOutcomeUncertain) {
		t.Error("a failed BEGIN cannot leave an uncertain outcome")
	}
}

func TestRunInTx_CommitFailureIsUncertain(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	tm := postgres.NewTxManager(mock, 0)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(context.DeadlineExceeded)

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, domain.ErrOutcomeUncertain) {
		t.Fatalf("expected ErrOutcomeUncertain, got: %v", err)
	}
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	tm := postgres.NewTxManager(mock, 3)

	mock.ExpectBegin()
	mock.ExpectRollback()

	defer func() {
		if r := recover(); r != "test panic" {
			t.Fatalf("expected panic value %q, got %v", "test panic", r)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	}()

	_ = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		panic("test panic")
	})
}

func TestQuerierFromCtx_OutsideTxReturnsDB(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	if got := postgres.QuerierFromCtx(context.Background(), mock); got != postgres.Querier(mock) {
		t.Error("expected the db itself outside a transaction")
	}
}
