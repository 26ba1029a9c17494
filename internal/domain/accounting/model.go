// Package accounting provides the minimal ledger surface the return engine
// settles into: a chart of settlement accounts and double-sided entries.
package accounting

import (
	"context"
	"time"

	"reverso/internal/core/apperror"
	"reverso/internal/core/entity"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
)

// AccountType classifies a ledger account for settlement routing.
type AccountType string

const (
	AccountTypeCash       AccountType = "cash"
	AccountTypeBank       AccountType = "bank"
	AccountTypeReceivable AccountType = "receivable"
	AccountTypeRevenue    AccountType = "revenue"
)

// Known reports whether the type is one of the supported values.
func (t AccountType) Known() bool {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeReceivable, AccountTypeRevenue:
		return true
	}
	return false
}

/// Account is one ledger account. Accounts are reference data: created by
// back-office configuration, referenced by entries.
type Account struct {
	entity.BaseCatalog

	Code     string      `db:"code" json:"code"`
	Name     string      `db:"name" json:"name"`
	Type     AccountType `db:"account_type" json:"type"`
	BranchID string      `db:"branch_id" json:"branchId"`
	Active   bool        `db:"active" json:"active"`
}

// NewAccount creates an active account.
func NewAccount(code, name string, accountType AccountType, branchID string) *Account {
	return &Account{
		BaseCatalog: entity.NewBaseCatalog(),
		Code:        code,
		Name:        name,
		Type:        accountType,
		BranchID:    branchID,
		Active:      true,
	}
}

// Validate implements entity.Validatable.
func (a *Account) Validate(ctx context.Context) error {
	if a.Code == "" {
		return apperror.NewValidation("account code is required").
			WithDetail("field", "code")
	}
	if a.Name == "" {
		return apperror.NewValidation("account name is required").
			WithDetail("field", "name")
	}
	if !a.Type.Known() {
		return apperror.NewValidation("unknown account type").
			WithDetail("field", "type").
			WithDetail("type", string(a.Type))
	}
	return nil
}

// Entry is one immutable double-sided ledger record. Entries are only ever
// appended; corrections happen through new entries, never updates.
type Entry struct {
	ID id.ID `db:"id" json:"id"`

	DebitAccountID  id.ID `db:"debit_account_id" json:"debitAccountId"`
	CreditAccountID id.ID `db:"credit_account_id" json:"creditAccountId"`

	Amount      types.Money `db:"amount" json:"amount"`
	Description string      `db:"description" json:"description"`

	// Source document back-reference (e.g. "SaleReturn" + document id)
	SourceType string `db:"source_type" json:"sourceType"`
	SourceRef  string `db:"source_ref" json:"sourceRef"`

	Metadata entity.Attributes `db:"metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewEntry creates a ledger entry with generated id and timestamp.
func NewEntry(debitAccountID, creditAccountID id.ID, amount types.Money, description, sourceType, sourceRef string) Entry {
	return Entry{
		ID:              id.New(),
		DebitAccountID:  debitAccountID,
		CreditAccountID: creditAccountID,
		Amount:          amount,
		Description:     description,
		SourceType:      sourceType,
		SourceRef:       sourceRef,
		CreatedAt:       time.Now().UTC(),
	}
}

// Validate implements entity.Validatable.
func (e *Entry) Validate(ctx context.Context) error {
	if id.IsNil(e.DebitAccountID) {
		return apperror.NewValidation("debit account is required").
			WithDetail("field", "debitAccountId")
	}
	if id.IsNil(e.CreditAccountID) {
		return apperror.NewValidation("credit account is required").
			WithDetail("field", "creditAccountId")
	}
	if e.DebitAccountID == e.CreditAccountID {
		return apperror.NewValidation("debit and credit accounts must differ").
			WithDetail("field", "creditAccountId")
	}
	if e.Amount.IsNegative() {
		return apperror.NewValidation("entry amount cannot be negative").
			WithDetail("field", "amount")
	}
	return nil
}
