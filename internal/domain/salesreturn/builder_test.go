package salesreturn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/internal/domain/sales"
)

func newTestBuilder(sale *sales.OriginalSale, repo *memRepo) *Builder {
	return NewBuilder(newMemSalesReader(sale), repo)
}

func TestStartDraft_LinkedDenormalizesSale(t *testing.T) {
	sale := testSale(5)
	b := newTestBuilder(sale, newMemRepo())

	saleID := sale.ID
	doc, err := b.StartDraft(context.Background(), DraftHeader{
		CompanyID:      "company-1",
		BranchID:       "branch-1",
		OriginalSaleID: &saleID,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, doc.Status)
	require.NotNil(t, doc.OriginalSaleID)
	assert.Equal(t, sale.ID, *doc.OriginalSaleID)
	assert.Equal(t, sale.Number, doc.OriginalSaleNumber)
	assert.Equal(t, sale.CustomerName, doc.CustomerName)
	assert.False(t, doc.IsStandalone())
}

func TestStartDraft_RejectsNonFinalSale(t *testing.T) {
	sale := testSale(5)
	sale.State = sales.SaleStateDraft
	b := newTestBuilder(sale, newMemRepo())

	saleID := sale.ID
	_, err := b.StartDraft(context.Background(), DraftHeader{
		CompanyID:      "company-1",
		BranchID:       "branch-1",
		OriginalSaleID: &saleID,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))
}

func TestStartDraft_Standalone(t *testing.T) {
	b := NewBuilder(newMemSalesReader(), newMemRepo())

	customerID := id.New()
	doc, err := b.StartDraft(context.Background(), DraftHeader{
		CompanyID:    "company-1",
		BranchID:     "branch-1",
		CustomerID:   &customerID,
		CustomerName: "Walk-in",
	})
	require.NoError(t, err)

	assert.True(t, doc.IsStandalone())
	assert.Equal(t, "Walk-in", doc.CustomerName)
}

func TestAddLine_WithinRemainder(t *testing.T) {
	sale := testSale(5)
	b := newTestBuilder(sale, newMemRepo())
	ctx := context.Background()

	saleID := sale.ID
	doc, err := b.StartDraft(ctx, DraftHeader{CompanyID: "company-1", BranchID: "branch-1", OriginalSaleID: &saleID})
	require.NoError(t, err)

	lineID := sale.Lines[0].LineID
	err = b.AddLine(ctx, doc, LineInput{OriginalLineID: &lineID, Quantity: qty(3)})
	require.NoError(t, err)

	require.Len(t, doc.Lines, 1)
	assert.Equal(t, LineLinked, doc.Lines[0].LinkKind)
	assert.Equal(t, sale.Lines[0].ProductID, doc.Lines[0].ProductID)
	// price denormalized from the original line
	assert.Equal(t, types.MinorUnits(1000), doc.Lines[0].UnitPrice)
	assert.Equal(t, types.MinorUnits(3000), doc.Lines[0].Total)
	assert.Equal(t, types.MinorUnits(3000), doc.Subtotal)
	assert.Equal(t, types.MinorUnits(3000), doc.AdjustedTotal)
}

func TestAddLine_ExceedsRemainderReportsMaximum(t *testing.T) {
	sale := testSale(5)
	repo := newMemRepo()
	ctx := context.Background()

	// A finalized return already holds 3 of 5.
	saleID := sale.ID
	prior := NewSaleReturn("company-1", "branch-1")
	prior.OriginalSaleID = &saleID
	prior.Status = StatusFinal
	prior.appendLine(NewLinkedLine(sale.Lines[0], qty(3), 0))
	require.NoError(t, repo.Create(ctx, prior))

	b := newTestBuilder(sale, repo)
	doc, err := b.StartDraft(ctx, DraftHeader{CompanyID: "company-1", BranchID: "branch-1", OriginalSaleID: &saleID})
	require.NoError(t, err)

	lineID := sale.Lines[0].LineID
	err = b.AddLine(ctx, doc, LineInput{OriginalLineID: &lineID, Quantity: qty(3)})
	require.Error(t, err)
	require.True(t, apperror.IsQuantityExceeded(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, 2.0, appErr.Details["max_allowed"])
	assert.Equal(t, 3.0, appErr.Details["requested"])
	assert.Empty(t, doc.Lines)
}

func TestAddLine_CountsOwnDraftLines(t *testing.T) {
	sale := testSale(5)
	b := newTestBuilder(sale, newMemRepo())
	ctx := context.Background()

	saleID := sale.ID
	doc, err := b.StartDraft(ctx, DraftHeader{CompanyID: "company-1", BranchID: "branch-1", OriginalSaleID: &saleID})
	require.NoError(t, err)

	lineID := sale.Lines[0].LineID
	require.NoError(t, b.AddLine(ctx, doc, LineInput{OriginalLineID: &lineID, Quantity: qty(4)}))

	err = b.AddLine(ctx, doc, LineInput{OriginalLineID: &lineID, Quantity: qty(2)})
	require.Error(t, err)
	assert.True(t, apperror.IsQuantityExceeded(err))
}

func TestAddLine_StandaloneSkipsQuantityChecks(t *testing.T) {
	b := NewBuilder(newMemSalesReader(), newMemRepo())
	ctx := context.Background()

	doc, err := b.StartDraft(ctx, DraftHeader{CompanyID: "company-1", BranchID: "branch-1"})
	require.NoError(t, err)

	err = b.AddLine(ctx, doc, LineInput{
		ProductID:   id.New(),
		ProductName: "Gadget",
		SKU:         "SKU-200",
		Quantity:    qty(100), // any quantity, nothing to reconcile against
		UnitPrice:   types.MinorUnits(250),
	})
	require.NoError(t, err)
	assert.Equal(t, LineUnlinked, doc.Lines[0].LinkKind)
	assert.Equal(t, types.MinorUnits(25000), doc.Subtotal)
}

func TestAddLine_StandaloneRejectsOriginalLineRef(t *testing.T) {
	b := NewBuilder(newMemSalesReader(), newMemRepo())
	ctx := context.Background()

	doc, err := b.StartDraft(ctx, DraftHeader{CompanyID: "company-1", BranchID: "branch-1"})
	require.NoError(t, err)

	lineID := id.New()
	err = b.AddLine(ctx, doc, LineInput{OriginalLineID: &lineID, ProductID: id.New(), Quantity: qty(1)})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestAddLine_UnlinkedLineOnLinkedDocument(t *testing.T) {
	sale := testSale(5)
	b := newTestBuilder(sale, newMemRepo())
	ctx := context.Background()

	saleID := sale.ID
	doc, err := b.StartDraft(ctx, DraftHeader{CompanyID: "company-1", BranchID: "branch-1", OriginalSaleID: &saleID})
	require.NoError(t, err)

	// Receipt lost, line rebuilt from secondary data: allowed, not counted.
	err = b.AddLine(ctx, doc, LineInput{
		ProductID:   id.New(),
		ProductName: "From paper receipt",
		Quantity:    qty(2),
		UnitPrice:   types.MinorUnits(500),
	})
	require.NoError(t, err)
	assert.Equal(t, LineUnlinked, doc.Lines[0].LinkKind)
}

func TestSetAdjustments_ClampsDiscount(t *testing.T) {
	sale := testSale(5)
	b := newTestBuilder(sale, newMemRepo())
	ctx := context.Background()

	saleID := sale.ID
	doc, err := b.StartDraft(ctx, DraftHeader{CompanyID: "company-1", BranchID: "branch-1", OriginalSaleID: &saleID})
	require.NoError(t, err)

	lineID := sale.Lines[0].LineID
	require.NoError(t, b.AddLine(ctx, doc, LineInput{OriginalLineID: &lineID, Quantity: qty(2)})) // subtotal 20.00

	// Discount above subtotal is clamped, not rejected.
	require.NoError(t, b.SetAdjustments(doc, types.MinorUnits(99999), 0, 0))
	assert.Equal(t, types.MinorUnits(2000), doc.DiscountAmount)
	assert.Equal(t, types.MinorUnits(0), doc.AdjustedTotal)
}

func TestSetAdjustments_RejectsNegativeRestockingFee(t *testing.T) {
	b := NewBuilder(newMemSalesReader(), newMemRepo())
	doc, err := b.StartDraft(context.Background(), DraftHeader{CompanyID: "company-1", BranchID: "branch-1"})
	require.NoError(t, err)

	err = b.SetAdjustments(doc, 0, types.MinorUnits(-100), 0)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestSetSettlement_StoresIncompleteChoice(t *testing.T) {
	b := NewBuilder(newMemSalesReader(), newMemRepo())
	doc, err := b.StartDraft(context.Background(), DraftHeader{CompanyID: "company-1", BranchID: "branch-1"})
	require.NoError(t, err)

	// Cash without an account is storable mid-edit; the finalization guard
	// is the one that insists on the account.
	require.NoError(t, b.SetSettlement(doc, SettlementChoice{Method: SettlementCash}))
	require.NotNil(t, doc.Settlement())
	assert.Equal(t, SettlementCash, doc.Settlement().Method)
	assert.Nil(t, doc.Settlement().AccountID)
}

func TestBuilder_RejectsEditsOnFinalDocument(t *testing.T) {
	b := NewBuilder(newMemSalesReader(), newMemRepo())
	doc, err := b.StartDraft(context.Background(), DraftHeader{CompanyID: "company-1", BranchID: "branch-1"})
	require.NoError(t, err)
	doc.Status = StatusFinal

	err = b.AddLine(context.Background(), doc, LineInput{ProductID: id.New(), Quantity: qty(1)})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))

	assert.Error(t, b.SetAdjustments(doc, 0, 0, 0))
	assert.Error(t, b.SetSettlement(doc, SettlementChoice{Method: SettlementCash}))
}
