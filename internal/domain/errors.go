package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
)

// TOC engine error kinds. Each wraps one of the generic sentinels above so
// callers can match either the precise kind or its category.
var (
	ErrBookNotFound            = fmt.Errorf("book %w", ErrNotFound)
	ErrChapterNotFound         = fmt.Errorf("chapter %w", ErrNotFound)
	ErrParentNotFound          = fmt.Errorf("parent chapter %w", ErrNotFound)
	ErrInvalidStatusTransition = fmt.Errorf("invalid status transition: %w", ErrValidation)
	ErrReorderSetMismatch      = fmt.Errorf("reorder ids do not match current siblings: %w", ErrValidation)
	ErrInvalidMove             = fmt.Errorf("chapter cannot be moved into its own subtree: %w", ErrValidation)
	ErrChapterDeleted          = fmt.Errorf("chapter is deleted: %w", ErrValidation)
	ErrTreeInvariant           = errors.New("table of contents invariant violated")

	// ErrConcurrencyConflict is returned once the optimistic retry bound is
	// exhausted. The caller may retry the whole request.
	ErrConcurrencyConflict = fmt.Errorf("concurrent modification: %w", ErrConflict)

	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrOutcomeUncertain marks a store failure during a write where the
	// store may have applied the change. Reconcile by reading.
	ErrOutcomeUncertain = errors.New("write outcome uncertain")

	// ErrAuditFailed aborts a mutation only when audit and TOC share a transaction.
	ErrAuditFailed = errors.New("audit write failed")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// StoreError reports a connection or timeout failure of the document store.
// It matches ErrStoreUnavailable, and ErrOutcomeUncertain when Uncertain is set.
type StoreError struct {
	Op        string
	Uncertain bool
	Err       error
}

// NewStoreError wraps err as a store failure of op.
func NewStoreError(op string, uncertain bool, err error) *StoreError {
	return &StoreError{Op: op, Uncertain: uncertain, Err: err}
}

func (e *StoreError) Error() string {
	if e.Uncertain {
		return fmt.Sprintf("store %s: outcome uncertain: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s: unavailable: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	if target == ErrStoreUnavailable {
		return true
	}
	return e.Uncertain && target == ErrOutcomeUncertain
}

// ErrorCode returns a stable machine-readable code for err, for the endpoint layer.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBookNotFound):
		return "BOOK_NOT_FOUND"
	case errors.Is(err, ErrChapterNotFound):
		return "CHAPTER_NOT_FOUND"
	case errors.Is(err, ErrParentNotFound):
		return "PARENT_NOT_FOUND"
	case errors.Is(err, ErrInvalidStatusTransition):
		return "INVALID_STATUS_TRANSITION"
	case errors.Is(err, ErrReorderSetMismatch):
		return "REORDER_SET_MISMATCH"
	case errors.Is(err, ErrInvalidMove):
		return "INVALID_MOVE"
	case errors.Is(err, ErrChapterDeleted):
		return "CHAPTER_DELETED"
	case errors.Is(err, ErrConcurrencyConflict):
		return "CONCURRENCY_CONFLICT"
	case errors.Is(err, ErrOutcomeUncertain):
		return "OUTCOME_UNCERTAIN"
	case errors.Is(err, ErrStoreUnavailable):
		return "STORE_UNAVAILABLE"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrValidation):
		return "VALIDATION"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus maps err to the status code the endpoint layer should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidStatusTransition),
		errors.Is(err, ErrReorderSetMismatch),
		errors.Is(err, ErrInvalidMove),
		errors.Is(err, ErrChapterDeleted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
