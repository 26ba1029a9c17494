// Package sales_repo provides read-only PostgreSQL access to original
// sales. The sales subsystem owns these tables; the return engine only
// reads them.
package sales_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/domain/sales"
	"reverso/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "doc_sales"
	saleLinesTable = "doc_sale_lines"
)

// OriginalSaleRepo implements sales.Reader.
type OriginalSaleRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewOriginalSaleRepo creates the reader.
func NewOriginalSaleRepo(txManager *postgres.TxManager) *OriginalSaleRepo {
	return &OriginalSaleRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ sales.Reader = (*OriginalSaleRepo)(nil)

// GetSale retrieves a sale with its lines.
func (r *OriginalSaleRepo) GetSale(ctx context.Context, saleID id.ID) (*sales.OriginalSale, error) {
	sale := &sales.OriginalSale{}

	q := r.builder.Select(
		"id", "number", "customer_id", "customer_name",
		"branch_id", "company_id", "state",
	).From(salesTable).
		Where(squirrel.Eq{"id": saleID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, sale, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	lq := r.builder.Select(
		"line_id", "line_no", "product_id", "variation_id",
		"product_name", "sku", "quantity", "unit_price",
	).From(saleLinesTable).
		Where(squirrel.Eq{"document_id": saleID}).
		OrderBy("line_no")

	sql, args, err = lq.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &sale.Lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	return sale, nil
}
