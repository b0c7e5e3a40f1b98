package toc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/domain"
)

// CommitStrategy persists one computed TOC together with its audit record.
// Commit reports false without error when the expected version no longer matches.
type CommitStrategy interface {
	Commit(ctx context.Context, req CommitRequest) (bool, error)
	Transactional() bool
}

// CommitRequest is the output of one mutation attempt.
type CommitRequest struct {
	BookID   uuid.UUID
	Expected int64
	TOC      domain.TableOfContents
	Audit    domain.AuditRecord
}

// errStaleVersion rolls a transaction back when the conditional write misses.
var errStaleVersion = errors.New("stale version")

// TxCommitter writes the TOC and the audit record in one transaction.
type TxCommitter struct {
	store    bookStore
	tx       txManager
	recorder *Recorder
}

// NewTxCommitter creates a transactional commit strategy.
func NewTxCommitter(store bookStore, tx txManager, recorder *Recorder) *TxCommitter {
	return &TxCommitter{store: store, tx: tx, recorder: recorder}
}

func (c *TxCommitter) Transactional() bool { return true }

func (c *TxCommitter) Commit(ctx context.Context, req CommitRequest) (bool, error) {
	err := c.tx.RunInTx(ctx, func(txCtx context.Context) error {
		written, err := c.store.ConditionalWriteTOC(txCtx, req.BookID, req.Expected, req.TOC, req.Expected+1)
		if err != nil {
			return fmt.Errorf("conditional write: %w", err)
		}
		if !written {
			return errStaleVersion
		}
		return c.recorder.RecordStrict(txCtx, req.Audit)
	})
	if errors.Is(err, errStaleVersion) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BestEffortCommitter writes the TOC first and the audit record second.
// A failed audit append does not undo the TOC write.
type BestEffortCommitter struct {
	store    bookStore
	recorder *Recorder
}

// NewBestEffortCommitter creates a commit strategy for stores without transactions.
func NewBestEffortCommitter(store bookStore, recorder *Recorder) *BestEffortCommitter {
	return &BestEffortCommitter{store: store, recorder: recorder}
}

func (c *BestEffortCommitter) Transactional() bool { return false }

func (c *BestEffortCommitter) Commit(ctx context.Context, req CommitRequest) (bool, error) {
	written, err := c.store.ConditionalWriteTOC(ctx, req.BookID, req.Expected, req.TOC, req.Expected+1)
	if err != nil {
		return false, fmt.Errorf("conditional write: %w", err)
	}
	if !written {
		return false, nil
	}
	c.recorder.Record(ctx, req.Audit)
	return true, nil
}

// Transaction modes accepted by SelectCommitter.
const (
	TxModeAuto = "auto"
	TxModeOn   = "on"
	TxModeOff  = "off"
)

// SelectCommitter picks the commit strategy for a store from its detected
// capabilities. Mode "on" fails when the store has no transactions.
func SelectCommitter(
	log *slog.Logger,
	mode string,
	caps domain.StoreCapabilities,
	store bookStore,
	tx txManager,
	recorder *Recorder,
) (CommitStrategy, error) {
	useTx := false
	switch mode {
	case TxModeOn:
		if !caps.Transactions || tx == nil {
			return nil, fmt.Errorf("transactions required but not supported by store")
		}
		useTx = true
	case TxModeAuto, "":
		useTx = caps.Transactions && tx != nil
	case TxModeOff:
	default:
		return nil, fmt.Errorf("unknown transaction mode %q", mode)
	}

	if useTx {
		log.Info("commit strategy selected", slog.String("strategy", "transactional"))
		return NewTxCommitter(store, tx, recorder), nil
	}
	log.Info("commit strategy selected", slog.String("strategy", "best_effort"))
	return NewBestEffortCommitter(store, recorder), nil
}
