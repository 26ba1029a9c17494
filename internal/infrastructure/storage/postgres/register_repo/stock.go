// Package register_repo provides PostgreSQL implementations for register
// repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"reverso/internal/core/entity"
	"reverso/internal/core/id"
	"reverso/internal/domain/inventory"
	"reverso/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "reg_stock_movements"
	stockBalancesTable  = "reg_stock_balances"
)

var movementColumns = []string{
	"line_id", "recorder_id", "recorder_type", "action",
	"period", "record_type",
	"branch_id", "product_id", "variation_id", "quantity", "created_at",
}

// StockRepo implements inventory.Repository on the stock register tables.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ inventory.Repository = (*StockRepo)(nil)

// CreateMovements appends movements and folds them into the balance table.
// Runs in a transaction so a movement never lands without its balance
// update; a nested call reuses the caller's transaction.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.builder.Insert(stockMovementsTable).Columns(movementColumns...)
		for i := range movements {
			m := &movements[i]
			q = q.Values(
				m.LineID, m.RecorderID, m.RecorderType, m.Action,
				m.Period, m.RecordType,
				m.BranchID, m.ProductID, m.VariationID, m.Quantity, m.CreatedAt,
			)
		}

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		querier := r.txManager.GetQuerier(ctx)
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert movements: %w", err)
		}

		for i := range movements {
			if err := r.applyToBalance(ctx, &movements[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// applyToBalance upserts one movement into the balance table. The unique
// index on (branch_id, product_id, variation_id) is declared NULLS NOT
// DISTINCT so variation-less products share one row.
func (r *StockRepo) applyToBalance(ctx context.Context, m *entity.StockMovement) error {
	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, `
		INSERT INTO reg_stock_balances (branch_id, product_id, variation_id, quantity, last_movement_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (branch_id, product_id, variation_id) DO UPDATE SET
			quantity = reg_stock_balances.quantity + $4,
			last_movement_at = GREATEST(reg_stock_balances.last_movement_at, $5),
			updated_at = NOW()
	`, m.BranchID, m.ProductID, m.VariationID, m.SignedQuantity(), m.Period)
	if err != nil {
		return fmt.Errorf("apply movement to balance: %w", err)
	}
	return nil
}

// GetMovementsByRecorder retrieves movements for a document.
func (r *StockRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

// GetBalance returns the current balance for one dimension tuple. A missing
// row is a zero balance, not an error.
func (r *StockRepo) GetBalance(ctx context.Context, branchID string, productID id.ID, variationID *id.ID) (entity.StockBalance, error) {
	var balance entity.StockBalance

	q := r.builder.Select(
		"branch_id", "product_id", "variation_id",
		"quantity", "last_movement_at", "updated_at",
	).From(stockBalancesTable).
		Where(squirrel.Eq{
			"branch_id":  branchID,
			"product_id": productID,
		}).
		Limit(1)
	if variationID != nil {
		q = q.Where(squirrel.Eq{"variation_id": *variationID})
	} else {
		q = q.Where("variation_id IS NULL")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return balance, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity.StockBalance{
				BranchID:    branchID,
				ProductID:   productID,
				VariationID: variationID,
				Quantity:    0,
			}, nil
		}
		return balance, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// ListBalances returns balances matching the filter, zero rows excluded.
func (r *StockRepo) ListBalances(ctx context.Context, filter inventory.BalanceFilter) ([]entity.StockBalance, error) {
	q := r.builder.Select(
		"branch_id", "product_id", "variation_id",
		"quantity", "last_movement_at", "updated_at",
	).From(stockBalancesTable).
		Where(squirrel.NotEq{"quantity": int64(0)})

	if filter.BranchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *filter.BranchID})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}

	q = q.OrderBy("branch_id", "product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.StockBalance
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}
