package salesreturn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverso/internal/core/apperror"
)

func TestReconcile_NoReturns(t *testing.T) {
	sale := testSale(5, 3)

	rec, err := Reconcile(sale.Lines, nil)
	require.NoError(t, err)

	assert.Equal(t, qty(5), rec.Returnable(sale.Lines[0].LineID))
	assert.Equal(t, qty(3), rec.Returnable(sale.Lines[1].LineID))
}

func TestReconcile_DraftsHoldQuantityLikeFinals(t *testing.T) {
	sale := testSale(5)
	saleID := sale.ID

	draft := NewSaleReturn("company-1", "branch-1")
	draft.OriginalSaleID = &saleID
	draft.appendLine(NewLinkedLine(sale.Lines[0], qty(2), 0))

	final := NewSaleReturn("company-1", "branch-1")
	final.OriginalSaleID = &saleID
	final.Status = StatusFinal
	final.appendLine(NewLinkedLine(sale.Lines[0], qty(1), 0))

	rec, err := Reconcile(sale.Lines, []*SaleReturnDocument{draft, final})
	require.NoError(t, err)

	usage, ok := rec.Usage(sale.Lines[0].LineID)
	require.True(t, ok)
	assert.Equal(t, qty(3), usage.ReturnedHeld)
	assert.Equal(t, qty(2), usage.Returnable)
}

func TestReconcile_VoidReleasesQuantity(t *testing.T) {
	sale := testSale(5)
	saleID := sale.ID

	voided := NewSaleReturn("company-1", "branch-1")
	voided.OriginalSaleID = &saleID
	voided.Status = StatusVoid
	voided.appendLine(NewLinkedLine(sale.Lines[0], qty(4), 0))

	rec, err := Reconcile(sale.Lines, []*SaleReturnDocument{voided})
	require.NoError(t, err)

	assert.Equal(t, qty(5), rec.Returnable(sale.Lines[0].LineID))
}

func TestReconcile_UnlinkedLinesNotCounted(t *testing.T) {
	sale := testSale(5)
	saleID := sale.ID

	doc := NewSaleReturn("company-1", "branch-1")
	doc.OriginalSaleID = &saleID
	doc.appendLine(NewUnlinkedLine(sale.Lines[0].ProductID, nil, "Widget", "SKU-100", qty(3), 1000))

	rec, err := Reconcile(sale.Lines, []*SaleReturnDocument{doc})
	require.NoError(t, err)

	assert.Equal(t, qty(5), rec.Returnable(sale.Lines[0].LineID))
}

func TestReconcile_NegativeReturnableIsConsistencyFault(t *testing.T) {
	sale := testSale(2)
	saleID := sale.ID

	// Two finals totalling 3 against a sold quantity of 2: the invariant
	// was already broken elsewhere, reconciliation must refuse to clamp.
	a := NewSaleReturn("company-1", "branch-1")
	a.OriginalSaleID = &saleID
	a.Status = StatusFinal
	a.appendLine(NewLinkedLine(sale.Lines[0], qty(2), 0))

	b := NewSaleReturn("company-1", "branch-1")
	b.OriginalSaleID = &saleID
	b.Status = StatusFinal
	b.appendLine(NewLinkedLine(sale.Lines[0], qty(1), 0))

	_, err := Reconcile(sale.Lines, []*SaleReturnDocument{a, b})
	require.Error(t, err)
	assert.True(t, apperror.IsConsistencyFault(err))
}

func TestEnsureAccommodates_AggregatesPerOriginalLine(t *testing.T) {
	sale := testSale(5)
	saleID := sale.ID

	rec, err := Reconcile(sale.Lines, nil)
	require.NoError(t, err)

	// Two lines of the same document against the same original line compete
	// for the same remainder: 3 + 3 > 5.
	doc := NewSaleReturn("company-1", "branch-1")
	doc.OriginalSaleID = &saleID
	doc.appendLine(NewLinkedLine(sale.Lines[0], qty(3), 0))
	doc.appendLine(NewLinkedLine(sale.Lines[0], qty(3), 0))

	err = rec.EnsureAccommodates(doc.Lines)
	require.Error(t, err)
	assert.True(t, apperror.IsQuantityExceeded(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 5.0, appErr.Details["max_allowed"])
}

func TestEnsureAccommodates_ExactRemainderPasses(t *testing.T) {
	sale := testSale(5)
	saleID := sale.ID

	held := NewSaleReturn("company-1", "branch-1")
	held.OriginalSaleID = &saleID
	held.Status = StatusFinal
	held.appendLine(NewLinkedLine(sale.Lines[0], qty(2), 0))

	rec, err := Reconcile(sale.Lines, []*SaleReturnDocument{held})
	require.NoError(t, err)

	doc := NewSaleReturn("company-1", "branch-1")
	doc.OriginalSaleID = &saleID
	doc.appendLine(NewLinkedLine(sale.Lines[0], qty(3), 0))

	assert.NoError(t, rec.EnsureAccommodates(doc.Lines))
}
