package salesreturn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/internal/domain/accounting"
	"reverso/internal/domain/sales"
	"reverso/pkg/numerator"
)

type serviceFixture struct {
	svc        *Service
	repo       *memRepo
	inventory  *memInventory
	accounting *memAccounting
	sale       *sales.OriginalSale
	cash       *accounting.Account
}

func newServiceFixture(t *testing.T, sale *sales.OriginalSale) *serviceFixture {
	t.Helper()

	repo := newMemRepo()
	inventory := &memInventory{}
	acc, _, cash, _, _ := settlementFixture()

	readers := []*sales.OriginalSale{}
	if sale != nil {
		readers = append(readers, sale)
	}

	svc := NewService(ServiceConfig{
		Repo:       repo,
		Sales:      newMemSalesReader(readers...),
		Inventory:  inventory,
		Accounting: acc,
		Numerator:  &numerator.MockGenerator{},
		TxManager:  passthroughTx{},
	})

	return &serviceFixture{
		svc:        svc,
		repo:       repo,
		inventory:  inventory,
		accounting: acc,
		sale:       sale,
		cash:       cash,
	}
}

func (f *serviceFixture) draftSpec(quantity float64) DraftSpec {
	saleID := f.sale.ID
	lineID := f.sale.Lines[0].LineID
	cashID := f.cash.ID
	return DraftSpec{
		Header: DraftHeader{
			CompanyID:      "company-1",
			BranchID:       "branch-1",
			OriginalSaleID: &saleID,
		},
		Lines: []LineInput{
			{OriginalLineID: &lineID, Quantity: qty(quantity)},
		},
		Settlement: &SettlementChoice{Method: SettlementCash, AccountID: &cashID},
	}
}

func TestCreateDraft_NumbersAndStores(t *testing.T) {
	f := newServiceFixture(t, testSale(5))
	ctx := context.Background()

	doc, err := f.svc.CreateDraft(ctx, f.draftSpec(2))
	require.NoError(t, err)

	assert.Equal(t, "MOCK-2026-00001", doc.Number)
	assert.Equal(t, StatusDraft, doc.Status)

	stored, err := f.repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, stored.ID)

	// Draft has no effects.
	assert.Empty(t, f.inventory.reversed)
	assert.Empty(t, f.accounting.entries)
}

func TestCreateDraft_QuantityCheckAtEntry(t *testing.T) {
	f := newServiceFixture(t, testSale(5))

	_, err := f.svc.CreateDraft(context.Background(), f.draftSpec(6))
	require.Error(t, err)
	assert.True(t, apperror.IsQuantityExceeded(err))
}

func TestFinalize_HappyPath(t *testing.T) {
	f := newServiceFixture(t, testSale(5))
	ctx := context.Background()

	doc, err := f.svc.CreateDraft(ctx, f.draftSpec(2))
	require.NoError(t, err)

	result, err := f.svc.Finalize(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, StatusFinal, result.Document.Status)
	require.NotNil(t, result.Document.FinalizedAt)

	// Advisory lock taken on the original sale.
	require.Len(t, f.repo.lockedSales, 1)
	assert.Equal(t, f.sale.ID, f.repo.lockedSales[0])

	// Stock came back on the shelf.
	require.Len(t, f.inventory.reversed, 1)
	require.Len(t, f.inventory.reversed[0], 1)
	assert.Equal(t, qty(2), f.inventory.reversed[0][0].Quantity)

	// Settlement entry: debit revenue, credit cash, 20.00.
	require.Len(t, f.accounting.entries, 1)
	entry := f.accounting.entries[0]
	assert.Equal(t, f.cash.ID, entry.CreditAccountID)
	assert.True(t, entry.Amount.Equal(types.MustMoney("20.00")))
	assert.Equal(t, "SaleReturn", entry.SourceType)
	assert.Equal(t, doc.ID.String(), entry.SourceRef)
}

func TestFinalize_RechecksQuantitiesAgainstCurrentState(t *testing.T) {
	sale := testSale(5)
	f := newServiceFixture(t, sale)
	ctx := context.Background()

	first, err := f.svc.CreateDraft(ctx, f.draftSpec(3))
	require.NoError(t, err)

	// Bypass the builder to simulate a stale draft created before the
	// ledger moved (e.g. by a concurrent writer).
	saleID := sale.ID
	stale := NewSaleReturn("company-1", "branch-1")
	stale.OriginalSaleID = &saleID
	stale.Number = "SR-2026-09999"
	stale.appendLine(NewLinkedLine(sale.Lines[0], qty(3), 0))
	cashID := f.cash.ID
	stale.SetSettlement(SettlementChoice{Method: SettlementCash, AccountID: &cashID})
	require.NoError(t, f.repo.Create(ctx, stale))

	_, err = f.svc.Finalize(ctx, first.ID)
	// 3 (first) + 3 (stale draft) > 5: drafts hold quantity, so even the
	// first finalization fails until one of them shrinks or is deleted.
	require.Error(t, err)
	assert.True(t, apperror.IsQuantityExceeded(err))

	require.NoError(t, f.svc.DeleteDraft(ctx, stale.ID))

	result, err := f.svc.Finalize(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinal, result.Document.Status)
}

func TestFinalize_StandaloneSkipsReconciliation(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	cashID := f.cash.ID
	doc, err := f.svc.CreateDraft(ctx, DraftSpec{
		Header: DraftHeader{CompanyID: "company-1", BranchID: "branch-1", CustomerName: "Walk-in"},
		Lines: []LineInput{
			{ProductID: id.New(), ProductName: "Gadget", Quantity: qty(7), UnitPrice: types.MinorUnits(300)},
		},
		Settlement: &SettlementChoice{Method: SettlementCash, AccountID: &cashID},
	})
	require.NoError(t, err)

	result, err := f.svc.Finalize(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, f.repo.lockedSales, "standalone finalize must not lock any sale")
}

func TestFinalize_SideEffectFailureIsWarningNotRollback(t *testing.T) {
	f := newServiceFixture(t, testSale(5))
	ctx := context.Background()

	doc, err := f.svc.CreateDraft(ctx, f.draftSpec(2))
	require.NoError(t, err)

	f.inventory.reverseErr = errors.New("stock subsystem down")

	result, err := f.svc.Finalize(ctx, doc.ID)
	require.NoError(t, err, "document commit is authoritative")

	// Document is final despite the failed stock write.
	stored, err := f.repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinal, stored.Status)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, apperror.CodeSideEffectFailure, result.Warnings[0].Code)
	assert.Equal(t, "inventory", result.Warnings[0].Details["subsystem"])

	// The accounting effect still ran.
	assert.Len(t, f.accounting.entries, 1)
}

func TestFinalize_BothSideEffectsCanFail(t *testing.T) {
	f := newServiceFixture(t, testSale(5))
	ctx := context.Background()

	doc, err := f.svc.CreateDraft(ctx, f.draftSpec(2))
	require.NoError(t, err)

	f.inventory.reverseErr = errors.New("stock down")
	f.accounting.entryErr = errors.New("ledger down")

	result, err := f.svc.Finalize(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, result.Warnings, 2)
}

func TestFinalize_GuardFailureRollsEverythingBack(t *testing.T) {
	f := newServiceFixture(t, testSale(5))
	ctx := context.Background()

	spec := f.draftSpec(2)
	spec.Settlement = &SettlementChoice{Method: SettlementCash} // no account
	doc, err := f.svc.CreateDraft(ctx, spec)
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingSettlementAccount))

	stored, err := f.repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, stored.Status)
	assert.Empty(t, f.inventory.reversed)
	assert.Empty(t, f.accounting.entries)
}

func TestVoid_ReleasesQuantityAndReappliesStock(t *testing.T) {
	sale := testSale(5)
	f := newServiceFixture(t, sale)
	ctx := context.Background()

	doc, err := f.svc.CreateDraft(ctx, f.draftSpec(3))
	require.NoError(t, err)
	_, err = f.svc.Finalize(ctx, doc.ID)
	require.NoError(t, err)

	result, err := f.svc.Void(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusVoid, result.Document.Status)
	require.NotNil(t, result.Document.VoidedAt)

	// Stock removed again.
	require.Len(t, f.inventory.reapplied, 1)
	assert.Equal(t, qty(3), f.inventory.reapplied[0][0].Quantity)

	// No compensating accounting entry.
	assert.Len(t, f.accounting.entries, 1)

	// Full quantity returnable again.
	usages, err := f.svc.ReturnableForSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, qty(5), usages[0].Returnable)
}

func TestVoid_DraftRejected(t *testing.T) {
	f := newServiceFixture(t, testSale(5))
	ctx := context.Background()

	doc, err := f.svc.CreateDraft(ctx, f.draftSpec(1))
	require.NoError(t, err)

	_, err = f.svc.Void(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestDeleteDraft_OnlyDrafts(t *testing.T) {
	f := newServiceFixture(t, testSale(5))
	ctx := context.Background()

	doc, err := f.svc.CreateDraft(ctx, f.draftSpec(1))
	require.NoError(t, err)
	_, err = f.svc.Finalize(ctx, doc.ID)
	require.NoError(t, err)

	err = f.svc.DeleteDraft(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestReturnableForSale(t *testing.T) {
	sale := testSale(5, 2)
	f := newServiceFixture(t, sale)
	ctx := context.Background()

	_, err := f.svc.CreateDraft(ctx, f.draftSpec(2))
	require.NoError(t, err)

	usages, err := f.svc.ReturnableForSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, usages, 2)

	assert.Equal(t, qty(2), usages[0].ReturnedHeld)
	assert.Equal(t, qty(3), usages[0].Returnable)
	assert.Equal(t, qty(0), usages[1].ReturnedHeld)
	assert.Equal(t, qty(2), usages[1].Returnable)
}

func TestUpdateDraft_RebuildsAgainstLedger(t *testing.T) {
	sale := testSale(5)
	f := newServiceFixture(t, sale)
	ctx := context.Background()

	doc, err := f.svc.CreateDraft(ctx, f.draftSpec(2))
	require.NoError(t, err)

	updated, err := f.svc.UpdateDraft(ctx, doc.ID, f.draftSpec(5))
	require.NoError(t, err, "own holdings are excluded during re-validation")
	assert.Equal(t, doc.ID, updated.ID)
	assert.Equal(t, doc.Number, updated.Number)
	assert.Equal(t, qty(5), updated.Lines[0].Quantity)

	// Beyond the sold quantity still fails.
	_, err = f.svc.UpdateDraft(ctx, doc.ID, f.draftSpec(6))
	require.Error(t, err)
	assert.True(t, apperror.IsQuantityExceeded(err))
}
