package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dairyline/milk-distributor/internal/db"
)

// withTx runs fn in a transaction, rolling back when fn fails. Errors from fn
// are returned as is so operational errors reach the caller unchanged.
func withTx(ctx context.Context, database db.DB, logger *zap.Logger, fn func(tx db.Tx) error) error {
	tx, err := database.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.Warn("failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
