// Package ledger_repo provides the PostgreSQL repository for the
// accounting subsystem: settlement accounts and ledger entries.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/internal/domain/accounting"
	"reverso/internal/infrastructure/storage/postgres"
)

const (
	accountsTable = "acc_accounts"
	entriesTable  = "acc_entries"
)

var entryColumns = []string{
	"id", "debit_account_id", "credit_account_id",
	"amount", "description", "source_type", "source_ref",
	"metadata", "created_at",
}

// AccountingRepo implements accounting.Repository.
type AccountingRepo struct {
	txManager   *postgres.TxManager
	builder     squirrel.StatementBuilderType
	accountCols []string
}

// NewAccountingRepo creates the repository.
func NewAccountingRepo(txManager *postgres.TxManager) *AccountingRepo {
	return &AccountingRepo{
		txManager:   txManager,
		builder:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		accountCols: postgres.ExtractDBColumns[accounting.Account](),
	}
}

var _ accounting.Repository = (*AccountingRepo)(nil)

// CreateAccount inserts a new account.
func (r *AccountingRepo) CreateAccount(ctx context.Context, account *accounting.Account) error {
	data := postgres.StructToMap(account)
	filtered := make(map[string]any, len(r.accountCols))
	for _, col := range r.accountCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	q := r.builder.Insert(accountsTable).SetMap(filtered)
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccountByID retrieves one account.
func (r *AccountingRepo) GetAccountByID(ctx context.Context, accountID id.ID) (*accounting.Account, error) {
	return r.getAccount(ctx, squirrel.Eq{"id": accountID}, accountID.String())
}

// GetAccountByCode retrieves one account by its code.
func (r *AccountingRepo) GetAccountByCode(ctx context.Context, code string) (*accounting.Account, error) {
	return r.getAccount(ctx, squirrel.Eq{"code": code}, code)
}

func (r *AccountingRepo) getAccount(ctx context.Context, where squirrel.Eq, ref string) (*accounting.Account, error) {
	account := &accounting.Account{}

	q := r.builder.Select(r.accountCols...).From(accountsTable).Where(where)
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, account, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", ref)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// ListAccounts returns accounts matching the filter, ordered by code.
func (r *AccountingRepo) ListAccounts(ctx context.Context, filter accounting.AccountFilter) ([]accounting.Account, error) {
	q := r.builder.Select(r.accountCols...).From(accountsTable).
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"account_type": *filter.Type})
	}
	if filter.BranchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *filter.BranchID})
	}
	if filter.OnlyActive {
		q = q.Where(squirrel.Eq{"active": true})
	}

	q = q.OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var accounts []accounting.Account
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &accounts, sql, args...); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// CreateEntry appends one ledger entry. Entries are never updated.
func (r *AccountingRepo) CreateEntry(ctx context.Context, entry *accounting.Entry) error {
	q := r.builder.Insert(entriesTable).Columns(entryColumns...).Values(
		entry.ID, entry.DebitAccountID, entry.CreditAccountID,
		entry.Amount, entry.Description, entry.SourceType, entry.SourceRef,
		entry.Metadata, entry.CreatedAt,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// EntriesBySource returns entries created by one source document,
// oldest first.
func (r *AccountingRepo) EntriesBySource(ctx context.Context, sourceType, sourceRef string) ([]accounting.Entry, error) {
	q := r.builder.Select(entryColumns...).From(entriesTable).
		Where(squirrel.Eq{
			"source_type": sourceType,
			"source_ref":  sourceRef,
		}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []accounting.Entry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// AccountNet returns total debits minus total credits for one account.
func (r *AccountingRepo) AccountNet(ctx context.Context, accountID id.ID) (types.Money, error) {
	sql := `
		SELECT COALESCE(SUM(CASE WHEN debit_account_id = $1 THEN amount ELSE 0 END), 0)
		     - COALESCE(SUM(CASE WHEN credit_account_id = $1 THEN amount ELSE 0 END), 0)
		FROM acc_entries
		WHERE debit_account_id = $1 OR credit_account_id = $1
	`

	var net decimal.Decimal
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, accountID).Scan(&net); err != nil {
		return types.ZeroMoney(), fmt.Errorf("account net: %w", err)
	}
	return net, nil
}
