package accounting

import (
	"context"

	"reverso/internal/core/id"
	"reverso/internal/core/types"
)

// AccountFilter narrows account lookups.
type AccountFilter struct {
	Type       *AccountType
	BranchID   *string
	OnlyActive bool
}

// Repository is the storage contract for the accounting subsystem.
type Repository interface {
	// Accounts
	CreateAccount(ctx context.Context, account *Account) error
	GetAccountByID(ctx context.Context, accountID id.ID) (*Account, error)
	GetAccountByCode(ctx context.Context, code string) (*Account, error)
	ListAccounts(ctx context.Context, filter AccountFilter) ([]Account, error)

	// Entries (append-only)
	CreateEntry(ctx context.Context, entry *Entry) error
	EntriesBySource(ctx context.Context, sourceType, sourceRef string) ([]Entry, error)

	// AccountNet returns total debits minus total credits for an account.
	AccountNet(ctx context.Context, accountID id.ID) (types.Money, error)
}
