// Package inventory maintains the stock accumulation register: append-only
// movements plus a materialized per-branch balance.
package inventory

import (
	"context"

	"reverso/internal/core/entity"
	"reverso/internal/core/id"
)

// BalanceFilter narrows balance queries.
type BalanceFilter struct {
	BranchID  *string
	ProductID *id.ID
}

// Repository is the storage contract for the stock register.
type Repository interface {
	// CreateMovements appends movements and updates the balance rows in the
	// same transaction.
	CreateMovements(ctx context.Context, movements []entity.StockMovement) error

	// GetMovementsByRecorder returns all movements a document produced,
	// finalize and void actions included.
	GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error)

	// GetBalance returns the current balance for one dimension tuple.
	// Missing rows come back as a zero balance.
	GetBalance(ctx context.Context, branchID string, productID id.ID, variationID *id.ID) (entity.StockBalance, error)

	// ListBalances returns balances matching the filter.
	ListBalances(ctx context.Context, filter BalanceFilter) ([]entity.StockBalance, error)
}
