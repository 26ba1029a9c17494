// Package sales provides the read-only view of original sales that the
// return engine reconciles against. The sales subsystem owns this data;
// nothing here is ever mutated by returns.
package sales

import (
	"context"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
)

// SaleState is the lifecycle state of an original sale, as reported by the
// sales subsystem.
type SaleState string

const (
	SaleStateDraft     SaleState = "draft"
	SaleStateFinal     SaleState = "final"
	SaleStateCancelled SaleState = "cancelled"
)

// OriginalSaleLine is an immutable record of one product/quantity/price sold
// on a prior invoice.
type OriginalSaleLine struct {
	LineID      id.ID            `db:"line_id" json:"lineId"`
	LineNo      int              `db:"line_no" json:"lineNo"`
	ProductID   id.ID            `db:"product_id" json:"productId"`
	VariationID *id.ID           `db:"variation_id" json:"variationId,omitempty"`
	ProductName string           `db:"product_name" json:"productName"`
	SKU         string           `db:"sku" json:"sku"`
	Quantity    types.Quantity   `db:"quantity" json:"quantity"`
	UnitPrice   types.MinorUnits `db:"unit_price" json:"unitPrice"`
}

// OriginalSale is the header plus lines of a previously recorded sale.
type OriginalSale struct {
	ID           id.ID     `db:"id" json:"id"`
	Number       string    `db:"number" json:"number"`
	CustomerID   *id.ID    `db:"customer_id" json:"customerId,omitempty"`
	CustomerName string    `db:"customer_name" json:"customerName,omitempty"`
	BranchID     string    `db:"branch_id" json:"branchId"`
	CompanyID    string    `db:"company_id" json:"companyId"`
	State        SaleState `db:"state" json:"state"`

	Lines []OriginalSaleLine `db:"-" json:"lines"`
}

// EnsureReturnable checks the sale is in a state that permits returns:
// finalized and not cancelled.
func (s *OriginalSale) EnsureReturnable() error {
	if s.State != SaleStateFinal {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"Only finalized sales can be returned",
		).WithDetail("sale_id", s.ID.String()).WithDetail("state", string(s.State))
	}
	return nil
}

// Line returns the line with the given id, or nil.
func (s *OriginalSale) Line(lineID id.ID) *OriginalSaleLine {
	for i := range s.Lines {
		if s.Lines[i].LineID == lineID {
			return &s.Lines[i]
		}
	}
	return nil
}

// Reader provides access to original sales. Implemented by the sales
// subsystem's storage; this engine only reads through it.
type Reader interface {
	// GetSale retrieves a sale with its lines.
	GetSale(ctx context.Context, saleID id.ID) (*OriginalSale, error)
}
