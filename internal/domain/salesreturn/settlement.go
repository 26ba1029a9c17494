package salesreturn

import (
	"context"
	"fmt"
	"strings"

	"reverso/internal/core/apperror"
	"reverso/internal/core/entity"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/internal/domain/accounting"
)

// AccountingLedger is the accounting surface the settlement router needs.
// Implemented by the accounting service; the engine owns the routing rules
// but not account data.
type AccountingLedger interface {
	CreateEntry(ctx context.Context, entry accounting.Entry) error
	GetAccountByID(ctx context.Context, accountID id.ID) (*accounting.Account, error)
	ResolveSettlementAccounts(ctx context.Context, accountType accounting.AccountType, branchID string) ([]accounting.Account, error)
	SalesRevenueAccount(ctx context.Context, branchID string) (*accounting.Account, error)
}

// AccountKind maps a settlement method to the ledger account type that
// serves it.
func (m SettlementMethod) AccountKind() accounting.AccountType {
	switch m {
	case SettlementCash:
		return accounting.AccountTypeCash
	case SettlementBank:
		return accounting.AccountTypeBank
	case SettlementCustomerAccount:
		return accounting.AccountTypeReceivable
	default:
		return ""
	}
}

// EntryPlan is a fully resolved settlement entry, ready to be written to
// the ledger. Every settlement variant collapses into the same pattern:
// debit Sales Revenue, credit the method's account.
type EntryPlan struct {
	DebitAccountID  id.ID
	CreditAccountID id.ID
	Amount          types.Money
	Description     string
	Metadata        entity.Attributes
}

// RouteSettlement resolves the document's settlement choice into an entry
// plan. Cash and bank use the explicitly chosen account; customer-account
// settlement resolves the branch's Accounts Receivable account from the
// chart of accounts.
//
// Stock movements are NOT part of the plan: the shelf effect of a return is
// the same whichever way money flows.
func RouteSettlement(ctx context.Context, doc *SaleReturnDocument, ledger AccountingLedger) (*EntryPlan, error) {
	choice := doc.Settlement()
	if choice == nil {
		return nil, apperror.NewValidation("settlement choice is required").
			WithDetail("field", "settlementMethod")
	}

	credit, err := resolveCreditAccount(ctx, doc, *choice, ledger)
	if err != nil {
		return nil, err
	}

	debit, err := ledger.SalesRevenueAccount(ctx, doc.BranchID)
	if err != nil {
		return nil, err
	}

	return &EntryPlan{
		DebitAccountID:  debit.ID,
		CreditAccountID: credit.ID,
		Amount:          types.NewMoneyFromMinorUnits(doc.AdjustedTotal, 2),
		Description:     settlementDescription(doc),
		Metadata: entity.Attributes{
			"return_id":         doc.ID.String(),
			"return_number":     doc.Number,
			"settlement_method": string(choice.Method),
		},
	}, nil
}

func resolveCreditAccount(ctx context.Context, doc *SaleReturnDocument, choice SettlementChoice, ledger AccountingLedger) (*accounting.Account, error) {
	if choice.Method.RequiresAccount() {
		if choice.AccountID == nil {
			return nil, apperror.NewMissingSettlementAccount(string(choice.Method))
		}
		account, err := ledger.GetAccountByID(ctx, *choice.AccountID)
		if err != nil {
			return nil, err
		}
		if account.Type != choice.Method.AccountKind() {
			return nil, apperror.NewValidation("settlement account type does not match method").
				WithDetail("field", "settlementAccountId").
				WithDetail("account_type", string(account.Type)).
				WithDetail("method", string(choice.Method))
		}
		return account, nil
	}

	// Customer-account settlement: first active receivable account of the
	// branch serves as the counter-account.
	candidates, err := ledger.ResolveSettlementAccounts(ctx, accounting.AccountTypeReceivable, doc.BranchID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperror.NewMissingSettlementAccount(string(choice.Method)).
			WithDetail("branch_id", doc.BranchID)
	}
	return &candidates[0], nil
}

// settlementDescription renders a human-readable entry description with the
// adjustment breakdown, only naming components that are non-zero.
func settlementDescription(doc *SaleReturnDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Refund for sale return %s", doc.Number)
	if doc.OriginalSaleNumber != "" {
		fmt.Fprintf(&b, " (sale %s)", doc.OriginalSaleNumber)
	}

	parts := make([]string, 0, 3)
	if !doc.DiscountAmount.IsZero() {
		parts = append(parts, fmt.Sprintf("discount %s", formatAmount(doc.DiscountAmount)))
	}
	if !doc.RestockingFee.IsZero() {
		parts = append(parts, fmt.Sprintf("restocking fee %s", formatAmount(doc.RestockingFee)))
	}
	if !doc.ManualAdjustment.IsZero() {
		parts = append(parts, fmt.Sprintf("manual adjustment %s", formatAmount(doc.ManualAdjustment)))
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, "; %s", strings.Join(parts, ", "))
	}

	return b.String()
}

func formatAmount(m types.MinorUnits) string {
	return fmt.Sprintf("%.2f", m.ToMajor(2))
}
