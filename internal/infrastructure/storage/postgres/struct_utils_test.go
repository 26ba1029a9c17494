package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverso/internal/domain/salesreturn"
)

func TestExtractDBColumns_SaleReturn(t *testing.T) {
	cols := ExtractDBColumns[salesreturn.SaleReturnDocument]()

	// Embedded Document/BaseDocument/BaseEntity fields are flattened in.
	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "version")
	assert.Contains(t, cols, "number")
	assert.Contains(t, cols, "date")
	assert.Contains(t, cols, "branch_id")

	// Own fields.
	assert.Contains(t, cols, "original_sale_id")
	assert.Contains(t, cols, "status")
	assert.Contains(t, cols, "adjusted_total")
	assert.Contains(t, cols, "settlement_method")
	assert.Contains(t, cols, "settlement_account_id")

	// Lines are tagged db:"-" and must not leak into the column list.
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "lines")
}

func TestStructToMap_SaleReturn(t *testing.T) {
	doc := salesreturn.NewSaleReturn("company-1", "branch-1")
	doc.Number = "SR-2026-00001"

	m := StructToMap(doc)
	require.NotNil(t, m)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, "SR-2026-00001", m["number"])
	assert.Equal(t, "branch-1", m["branch_id"])
	assert.Equal(t, doc.Status, m["status"])
	_, hasLines := m["lines"]
	assert.False(t, hasLines)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap("text"))
}
