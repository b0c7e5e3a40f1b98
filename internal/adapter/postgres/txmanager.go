package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// TxManager manages database transactions using the context pattern.
// Nested RunInTx calls are NOT supported: calling RunInTx inside a RunInTx
// callback opens a second independent transaction.
type TxManager struct {
	db         DB
	maxRetries uint64
}

// NewTxManager creates a new TxManager. maxRetries bounds how many times a
// transaction aborted by a serialization failure or deadlock is replayed.
func NewTxManager(db DB, maxRetries int) *TxManager {
	return &TxManager{db: db, maxRetries: uint64(max(maxRetries, 0))}
}

// RunInTx executes fn within a database transaction.
// Isolation level: Read Committed (PostgreSQL default).
// On success: commits.
// On error from fn: rolls back and returns the error.
// On serialization failure or deadlock: rolls back and replays fn.
// On panic from fn: rolls back and re-panics.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.Retry(func() error {
		err := m.runOnce(ctx, fn)
		if err == nil || isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, m.maxRetries), ctx))
}

func (m *TxManager) runOnce(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", MapError(err, "begin", false, uuid.Nil))
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, context.Canceled) {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isTransient(err) {
			return err
		}
		return fmt.Errorf("commit transaction: %w", MapError(err, "commit", true, uuid.Nil))
	}

	return nil
}
