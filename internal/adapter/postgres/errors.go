package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/frankbria/auto-author/internal/domain"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
)

// MapError converts pgx/pgconn errors to domain errors.
//
// Answers from the server map to domain sentinels. Everything else (context
// deadlines, dropped connections, dial failures) becomes a *domain.StoreError.
// For writes the outcome is uncertain unless pgconn reports the statement was
// never sent.
func MapError(err error, op string, write bool, id uuid.UUID) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", op, id, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s %s: %w", op, id, domain.ErrAlreadyExists)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s %s: %w", op, id, domain.ErrNotFound)
		case codeCheckViolation:
			return fmt.Errorf("%s %s: %w", op, id, domain.ErrValidation)
		case codeQueryCanceled:
			// statement_timeout fired; the statement did not commit.
			return domain.NewStoreError(op, false, err)
		}
		return fmt.Errorf("%s %s: %w", op, id, err)
	}

	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		return err
	}

	uncertain := write && !pgconn.SafeToRetry(err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return domain.NewStoreError(op, uncertain, err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return domain.NewStoreError(op, false, err)
	}

	return domain.NewStoreError(op, uncertain, err)
}

// isTransient reports whether a transaction failed on a serialization
// conflict or deadlock and can be replayed as a whole.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}
