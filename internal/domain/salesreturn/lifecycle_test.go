package salesreturn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
)

func draftWithLine() *SaleReturnDocument {
	doc := NewSaleReturn("company-1", "branch-1")
	doc.appendLine(NewUnlinkedLine(id.New(), nil, "Widget", "SKU-100", qty(1), types.MinorUnits(1000)))
	return doc
}

func settledDraft() *SaleReturnDocument {
	doc := draftWithLine()
	accountID := id.New()
	doc.SetSettlement(SettlementChoice{Method: SettlementCash, AccountID: &accountID})
	return doc
}

func TestMarkFinal_FromDraft(t *testing.T) {
	doc := settledDraft()
	now := time.Now().UTC()

	require.NoError(t, MarkFinal(doc, now))
	assert.Equal(t, StatusFinal, doc.Status)
	require.NotNil(t, doc.FinalizedAt)
	assert.Equal(t, now, *doc.FinalizedAt)
}

func TestMarkFinal_RequiresLines(t *testing.T) {
	doc := NewSaleReturn("company-1", "branch-1")
	accountID := id.New()
	doc.SetSettlement(SettlementChoice{Method: SettlementCash, AccountID: &accountID})

	err := MarkFinal(doc, time.Now().UTC())
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestMarkFinal_RequiresSettlementChoice(t *testing.T) {
	doc := draftWithLine()

	err := MarkFinal(doc, time.Now().UTC())
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestMarkFinal_CashWithoutAccount(t *testing.T) {
	doc := draftWithLine()
	doc.SetSettlement(SettlementChoice{Method: SettlementCash})

	err := MarkFinal(doc, time.Now().UTC())
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMissingSettlementAccount))
}

func TestMarkFinal_CustomerAccountNeedsNoAccount(t *testing.T) {
	doc := draftWithLine()
	doc.SetSettlement(SettlementChoice{Method: SettlementCustomerAccount})

	require.NoError(t, MarkFinal(doc, time.Now().UTC()))
}

func TestMarkVoid_FromFinal(t *testing.T) {
	doc := settledDraft()
	require.NoError(t, MarkFinal(doc, time.Now().UTC()))

	now := time.Now().UTC()
	require.NoError(t, MarkVoid(doc, now))
	assert.Equal(t, StatusVoid, doc.Status)
	require.NotNil(t, doc.VoidedAt)
	assert.Equal(t, now, *doc.VoidedAt)
}

func TestIllegalTransitions(t *testing.T) {
	t.Run("void a draft", func(t *testing.T) {
		doc := settledDraft()
		err := MarkVoid(doc, time.Now().UTC())
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidTransition(err))
	})

	t.Run("finalize twice", func(t *testing.T) {
		doc := settledDraft()
		require.NoError(t, MarkFinal(doc, time.Now().UTC()))
		err := MarkFinal(doc, time.Now().UTC())
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidTransition(err))
	})

	t.Run("void twice", func(t *testing.T) {
		doc := settledDraft()
		require.NoError(t, MarkFinal(doc, time.Now().UTC()))
		require.NoError(t, MarkVoid(doc, time.Now().UTC()))
		err := MarkVoid(doc, time.Now().UTC())
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidTransition(err))
	})

	t.Run("finalize a void", func(t *testing.T) {
		doc := settledDraft()
		require.NoError(t, MarkFinal(doc, time.Now().UTC()))
		require.NoError(t, MarkVoid(doc, time.Now().UTC()))
		err := MarkFinal(doc, time.Now().UTC())
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidTransition(err))
	})

	t.Run("delete a final", func(t *testing.T) {
		doc := settledDraft()
		require.NoError(t, MarkFinal(doc, time.Now().UTC()))
		err := EnsureCanDelete(doc)
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidTransition(err))
	})

	t.Run("delete a draft is fine", func(t *testing.T) {
		doc := settledDraft()
		assert.NoError(t, EnsureCanDelete(doc))
	})
}

func TestGenerateStockMovements(t *testing.T) {
	doc := settledDraft()
	doc.appendLine(NewUnlinkedLine(id.New(), nil, "Gadget", "SKU-200", qty(2), types.MinorUnits(500)))
	require.NoError(t, MarkFinal(doc, time.Now().UTC()))

	t.Run("finalize produces receipts", func(t *testing.T) {
		movements := doc.GenerateStockMovements("finalize")
		require.Len(t, movements, 2)
		for _, m := range movements {
			assert.Equal(t, doc.ID, m.RecorderID)
			assert.Equal(t, "SaleReturn", m.RecorderType)
			assert.Equal(t, "receipt", string(m.RecordType))
			assert.Equal(t, *doc.FinalizedAt, m.Period)
		}
	})

	t.Run("void produces expenses", func(t *testing.T) {
		require.NoError(t, MarkVoid(doc, time.Now().UTC()))
		movements := doc.GenerateStockMovements("void")
		require.Len(t, movements, 2)
		for _, m := range movements {
			assert.Equal(t, "expense", string(m.RecordType))
			assert.Equal(t, *doc.VoidedAt, m.Period)
		}
	})
}
