package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frankbria/auto-author/internal/domain"
)

// TxManager runs callbacks inside a multi-document transaction. The session
// context passed to fn makes every store call issued with it join the
// transaction. WithTransaction replays fn on TransientTransactionError and
// retries the commit on UnknownTransactionCommitResult.
type TxManager struct {
	client *mongo.Client
}

// NewTxManager creates a TxManager on client.
func NewTxManager(client *mongo.Client) *TxManager {
	return &TxManager{client: client}
}

// RunInTx executes fn within a transaction. Nested calls are not supported.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	var storeErr *domain.StoreError
	if err != nil && !errors.As(err, &storeErr) && (mongo.IsNetworkError(err) || mongo.IsTimeout(err)) {
		// The failure hit the commit: the transaction may have applied.
		return domain.NewStoreError("commit_tx", true, err)
	}
	return err
}
