// Package return_repo provides the PostgreSQL repository for sale return
// documents.
package return_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/domain"
	"reverso/internal/domain/salesreturn"
	"reverso/internal/infrastructure/storage/postgres"
)

const (
	returnsTable = "doc_sale_returns"
	linesTable   = "doc_sale_return_lines"
)

var lineColumns = []string{
	"document_id", "line_id", "line_no", "link_kind", "original_line_id",
	"product_id", "variation_id", "product_name", "sku",
	"quantity", "unit_price", "total",
}

// SaleReturnRepo implements salesreturn.Repository. Headers live in
// doc_sale_returns, lines in doc_sale_return_lines; every read returns the
// document with lines attached.
type SaleReturnRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewSaleReturnRepo creates the repository.
func NewSaleReturnRepo(txManager *postgres.TxManager) *SaleReturnRepo {
	return &SaleReturnRepo{
		txManager:  txManager,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		selectCols: postgres.ExtractDBColumns[salesreturn.SaleReturnDocument](),
	}
}

var _ salesreturn.Repository = (*SaleReturnRepo)(nil)

// Create inserts the header and lines in one transaction.
func (r *SaleReturnRepo) Create(ctx context.Context, doc *salesreturn.SaleReturnDocument) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		data := postgres.StructToMap(doc)
		if len(data) == 0 {
			return fmt.Errorf("no db tags found in document")
		}

		q := r.builder.Insert(returnsTable).SetMap(r.filterColumns(data))
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		querier := r.txManager.GetQuerier(ctx)
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert %s: %w", returnsTable, err)
		}

		return r.insertLines(ctx, doc)
	})
}

// Update writes the header with an optimistic version check and replaces
// the line set.
func (r *SaleReturnRepo) Update(ctx context.Context, doc *salesreturn.SaleReturnDocument) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		data := postgres.StructToMap(doc)

		filtered := r.filterColumns(data)
		// Immutable and repo-managed columns.
		delete(filtered, "id")
		delete(filtered, "created_at")
		delete(filtered, "created_by")
		delete(filtered, "version")
		delete(filtered, "updated_at")

		q := r.builder.Update(returnsTable).
			SetMap(filtered).
			Set("version", squirrel.Expr("version + 1")).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"id": doc.ID}).
			Where(squirrel.Eq{"version": doc.Version - 1})

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}

		querier := r.txManager.GetQuerier(ctx)
		result, err := querier.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("update %s: %w", returnsTable, err)
		}
		if result.RowsAffected() == 0 {
			return apperror.NewConcurrentModification(returnsTable, doc.ID)
		}

		if _, err := querier.Exec(ctx, "DELETE FROM "+linesTable+" WHERE document_id = $1", doc.ID); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		return r.insertLines(ctx, doc)
	})
}

// insertLines bulk-inserts the document's line set.
func (r *SaleReturnRepo) insertLines(ctx context.Context, doc *salesreturn.SaleReturnDocument) error {
	if len(doc.Lines) == 0 {
		return nil
	}

	q := r.builder.Insert(linesTable).Columns(lineColumns...)
	for i := range doc.Lines {
		line := &doc.Lines[i]
		q = q.Values(
			doc.ID, line.LineID, line.LineNo, line.LinkKind, line.OriginalLineID,
			line.ProductID, line.VariationID, line.ProductName, line.SKU,
			line.Quantity, line.UnitPrice, line.Total,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// Delete soft-deletes a document.
func (r *SaleReturnRepo) Delete(ctx context.Context, docID id.ID) error {
	q := r.builder.Update(returnsTable).
		Set("deletion_mark", true).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": docID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", returnsTable, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(returnsTable, docID.String())
	}
	return nil
}

// GetByID retrieves a document with lines.
func (r *SaleReturnRepo) GetByID(ctx context.Context, docID id.ID) (*salesreturn.SaleReturnDocument, error) {
	return r.getOne(ctx, squirrel.Eq{"id": docID}, docID.String(), false)
}

// GetByNumber retrieves a document by its number.
func (r *SaleReturnRepo) GetByNumber(ctx context.Context, number string) (*salesreturn.SaleReturnDocument, error) {
	return r.getOne(ctx, squirrel.Eq{"number": number}, number, false)
}

// GetForUpdate retrieves a document with a row lock. Must run inside a
// transaction.
func (r *SaleReturnRepo) GetForUpdate(ctx context.Context, docID id.ID) (*salesreturn.SaleReturnDocument, error) {
	return r.getOne(ctx, squirrel.Eq{"id": docID}, docID.String(), true)
}

func (r *SaleReturnRepo) getOne(ctx context.Context, where squirrel.Eq, ref string, forUpdate bool) (*salesreturn.SaleReturnDocument, error) {
	doc := &salesreturn.SaleReturnDocument{}

	q := r.builder.Select(r.selectCols...).From(returnsTable).Where(where)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale return", ref)
		}
		return nil, fmt.Errorf("get sale return: %w", err)
	}

	if err := r.attachLines(ctx, []*salesreturn.SaleReturnDocument{doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

// List retrieves documents with filtering and pagination, lines attached.
func (r *SaleReturnRepo) List(ctx context.Context, filter salesreturn.ListFilter) (domain.ListResult[*salesreturn.SaleReturnDocument], error) {
	result := domain.ListResult[*salesreturn.SaleReturnDocument]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.Select(r.selectCols...).From(returnsTable)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": "%" + filter.Search + "%"},
			squirrel.ILike{"customer_name": "%" + filter.Search + "%"},
		})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.OriginalSaleID != nil {
		q = q.Where(squirrel.Eq{"original_sale_id": *filter.OriginalSaleID})
	}
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.BranchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *filter.BranchID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.Lt{"date": *filter.DateTo})
	}

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list sale returns: %w", err)
	}

	if err := r.attachLines(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}

// ListActiveBySale returns all non-deleted Draft and Final returns
// referencing the sale, lines attached.
func (r *SaleReturnRepo) ListActiveBySale(ctx context.Context, saleID id.ID, excludeID *id.ID) ([]*salesreturn.SaleReturnDocument, error) {
	q := r.builder.Select(r.selectCols...).From(returnsTable).
		Where(squirrel.Eq{"original_sale_id": saleID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Eq{"status": []salesreturn.Status{salesreturn.StatusDraft, salesreturn.StatusFinal}})
	if excludeID != nil {
		q = q.Where(squirrel.NotEq{"id": *excludeID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var docs []*salesreturn.SaleReturnDocument
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("list returns by sale: %w", err)
	}

	if err := r.attachLines(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// LockOriginalSale takes a transaction-scoped advisory lock keyed on the
// sale id, serializing concurrent finalizations against the same sale.
// Released automatically at commit or rollback.
func (r *SaleReturnRepo) LockOriginalSale(ctx context.Context, saleID id.ID) error {
	if r.txManager.GetTx(ctx) == nil {
		return fmt.Errorf("advisory lock requires a transaction")
	}

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))", saleID)
	if err != nil {
		return fmt.Errorf("lock original sale: %w", err)
	}
	return nil
}

// lineRow joins a line with its owning document for batch loading.
type lineRow struct {
	DocumentID id.ID `db:"document_id"`
	salesreturn.SaleReturnLine
}

// attachLines loads and assigns line sets for the given documents.
func (r *SaleReturnRepo) attachLines(ctx context.Context, docs []*salesreturn.SaleReturnDocument) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]id.ID, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}

	q := r.builder.Select(lineColumns...).From(linesTable).
		Where(squirrel.Eq{"document_id": ids}).
		OrderBy("document_id", "line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build lines query: %w", err)
	}

	var rows []lineRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return fmt.Errorf("select lines: %w", err)
	}

	byDoc := make(map[id.ID][]salesreturn.SaleReturnLine, len(docs))
	for _, row := range rows {
		byDoc[row.DocumentID] = append(byDoc[row.DocumentID], row.SaleReturnLine)
	}
	for _, doc := range docs {
		doc.Lines = byDoc[doc.ID]
		if doc.Lines == nil {
			doc.Lines = make([]salesreturn.SaleReturnLine, 0)
		}
	}
	return nil
}

// filterColumns keeps only known table columns from a struct map.
func (r *SaleReturnRepo) filterColumns(data map[string]any) map[string]any {
	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	return filtered
}

func (r *SaleReturnRepo) parseOrderBy(orderBy string) (string, error) {
	allowed := make(map[string]struct{}, len(r.selectCols))
	for _, col := range r.selectCols {
		allowed[col] = struct{}{}
	}

	if strings.TrimSpace(orderBy) == "" {
		return "date DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}
	// Legacy "field DESC" form.
	if parts := strings.Fields(field); len(parts) == 2 {
		field = parts[0]
		if strings.EqualFold(parts[1], "DESC") {
			direction = "DESC"
		}
	}

	field = strings.TrimSpace(field)
	if _, ok := allowed[field]; !ok {
		return "", apperror.NewValidation("invalid orderBy").
			WithDetail("orderBy", orderBy).
			WithDetail("field", field)
	}
	return field + " " + direction, nil
}
