package salesreturn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/internal/domain/accounting"
)

func settlementFixture() (*memAccounting, *accounting.Account, *accounting.Account, *accounting.Account, *accounting.Account) {
	revenue := accounting.NewAccount("90.01", "Sales Revenue", accounting.AccountTypeRevenue, "branch-1")
	cash := accounting.NewAccount("50.01", "Main Register", accounting.AccountTypeCash, "branch-1")
	bank := accounting.NewAccount("51.01", "Operating Account", accounting.AccountTypeBank, "branch-1")
	receivable := accounting.NewAccount("62.01", "Accounts Receivable", accounting.AccountTypeReceivable, "branch-1")
	return newMemAccounting(revenue, cash, bank, receivable), revenue, cash, bank, receivable
}

func settlementDoc(method SettlementMethod, accountID *id.ID) *SaleReturnDocument {
	doc := NewSaleReturn("company-1", "branch-1")
	doc.Number = "SR-2026-00007"
	doc.appendLine(NewUnlinkedLine(id.New(), nil, "Widget", "SKU-100", qty(2), types.MinorUnits(1000)))
	doc.SetSettlement(SettlementChoice{Method: method, AccountID: accountID})
	return doc
}

func TestRouteSettlement_Cash(t *testing.T) {
	ledger, revenue, cash, _, _ := settlementFixture()
	doc := settlementDoc(SettlementCash, &cash.ID)

	plan, err := RouteSettlement(context.Background(), doc, ledger)
	require.NoError(t, err)

	assert.Equal(t, revenue.ID, plan.DebitAccountID)
	assert.Equal(t, cash.ID, plan.CreditAccountID)
	assert.True(t, plan.Amount.Equal(types.MustMoney("20.00")))
}

func TestRouteSettlement_Bank(t *testing.T) {
	ledger, revenue, _, bank, _ := settlementFixture()
	doc := settlementDoc(SettlementBank, &bank.ID)

	plan, err := RouteSettlement(context.Background(), doc, ledger)
	require.NoError(t, err)

	assert.Equal(t, revenue.ID, plan.DebitAccountID)
	assert.Equal(t, bank.ID, plan.CreditAccountID)
}

func TestRouteSettlement_CustomerAccountResolvesReceivable(t *testing.T) {
	ledger, revenue, _, _, receivable := settlementFixture()
	doc := settlementDoc(SettlementCustomerAccount, nil)

	plan, err := RouteSettlement(context.Background(), doc, ledger)
	require.NoError(t, err)

	assert.Equal(t, revenue.ID, plan.DebitAccountID)
	assert.Equal(t, receivable.ID, plan.CreditAccountID)
}

func TestRouteSettlement_CashWithoutAccount(t *testing.T) {
	ledger, _, _, _, _ := settlementFixture()
	doc := settlementDoc(SettlementCash, nil)

	_, err := RouteSettlement(context.Background(), doc, ledger)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingSettlementAccount))
}

func TestRouteSettlement_AccountTypeMismatch(t *testing.T) {
	ledger, _, _, bank, _ := settlementFixture()
	// Cash method pointed at a bank account.
	doc := settlementDoc(SettlementCash, &bank.ID)

	_, err := RouteSettlement(context.Background(), doc, ledger)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestRouteSettlement_NoReceivableConfigured(t *testing.T) {
	revenue := accounting.NewAccount("90.01", "Sales Revenue", accounting.AccountTypeRevenue, "branch-1")
	ledger := newMemAccounting(revenue)
	doc := settlementDoc(SettlementCustomerAccount, nil)

	_, err := RouteSettlement(context.Background(), doc, ledger)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingSettlementAccount))
}

func TestRouteSettlement_NoChoice(t *testing.T) {
	ledger, _, _, _, _ := settlementFixture()
	doc := NewSaleReturn("company-1", "branch-1")

	_, err := RouteSettlement(context.Background(), doc, ledger)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestSettlementDescription_Breakdown(t *testing.T) {
	ledger, _, cash, _, _ := settlementFixture()
	_ = ledger

	doc := settlementDoc(SettlementCash, &cash.ID)
	doc.OriginalSaleNumber = "INV-2026-00042"
	doc.setAdjustments(Adjustments{
		Discount:         types.MinorUnits(150),
		RestockingFee:    types.MinorUnits(500),
		ManualAdjustment: types.MinorUnits(-25),
	})

	got := settlementDescription(doc)
	assert.Contains(t, got, "SR-2026-00007")
	assert.Contains(t, got, "INV-2026-00042")
	assert.Contains(t, got, "discount 1.50")
	assert.Contains(t, got, "restocking fee 5.00")
	assert.Contains(t, got, "manual adjustment -0.25")
}

func TestSettlementDescription_OmitsZeroComponents(t *testing.T) {
	doc := settlementDoc(SettlementCash, nil)
	got := settlementDescription(doc)
	assert.NotContains(t, got, "discount")
	assert.NotContains(t, got, "restocking")
	assert.NotContains(t, got, "adjustment")
}

func TestAccountKind(t *testing.T) {
	assert.Equal(t, accounting.AccountTypeCash, SettlementCash.AccountKind())
	assert.Equal(t, accounting.AccountTypeBank, SettlementBank.AccountKind())
	assert.Equal(t, accounting.AccountTypeReceivable, SettlementCustomerAccount.AccountKind())
}
