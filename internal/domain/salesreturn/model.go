// Package salesreturn provides the SaleReturn document and the settlement
// reconciliation engine around it: quantity reconciliation against the
// original sale, the draft/final/void lifecycle, settlement routing, and
// the finalization orchestration.
package salesreturn

import (
	"context"
	"time"

	"reverso/internal/core/apperror"
	"reverso/internal/core/entity"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/internal/domain/sales"
)

// Status is the lifecycle state of a sale return document.
type Status string

const (
	// StatusDraft: freely editable, no stock or accounting effects exist yet
	StatusDraft Status = "draft"
	// StatusFinal: effects applied, document immutable
	StatusFinal Status = "final"
	// StatusVoid: compensated after finalization, kept for audit
	StatusVoid Status = "void"
)

// SettlementMethod is how the refunded value is realized.
type SettlementMethod string

const (
	SettlementCash SettlementMethod = "cash"
	SettlementBank SettlementMethod = "bank"
	// SettlementCustomerAccount reduces the customer's outstanding receivable
	// balance instead of paying money out.
	SettlementCustomerAccount SettlementMethod = "customer_account"
)

// Known reports whether the method is one of the supported values.
func (m SettlementMethod) Known() bool {
	switch m {
	case SettlementCash, SettlementBank, SettlementCustomerAccount:
		return true
	}
	return false
}

// RequiresAccount reports whether the method needs an explicit account choice.
// Customer-account settlement resolves its counter-account (Accounts
// Receivable) from the chart of accounts instead.
func (m SettlementMethod) RequiresAccount() bool {
	return m == SettlementCash || m == SettlementBank
}

// SettlementChoice pairs a method with the chosen account, when one is needed.
type SettlementChoice struct {
	Method    SettlementMethod `json:"method"`
	AccountID *id.ID           `json:"accountId,omitempty"`
}

// LineLinkKind tags whether a return line participates in quantity
// reconciliation against an original sale line.
type LineLinkKind string

const (
	// LineLinked carries a back-reference to an original sale line and is
	// counted by the quantity ledger.
	LineLinked LineLinkKind = "linked"
	// LineUnlinked has no original-line back-reference: standalone returns,
	// or lines rebuilt from secondary data when the per-line record was
	// unavailable. Never counted by the quantity ledger.
	LineUnlinked LineLinkKind = "unlinked"
)

// SaleReturnLine is one returned product position.
type SaleReturnLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	LinkKind       LineLinkKind `db:"link_kind" json:"linkKind"`
	OriginalLineID *id.ID       `db:"original_line_id" json:"originalLineId,omitempty"`

	ProductID   id.ID  `db:"product_id" json:"productId"`
	VariationID *id.ID `db:"variation_id" json:"variationId,omitempty"`
	ProductName string `db:"product_name" json:"productName"`
	SKU         string `db:"sku" json:"sku"`

	Quantity  types.Quantity   `db:"quantity" json:"quantity"`
	UnitPrice types.MinorUnits `db:"unit_price" json:"unitPrice"`
	Total     types.MinorUnits `db:"total" json:"total"`
}

// Linked returns the original line id when the line participates in
// quantity reconciliation.
func (l *SaleReturnLine) Linked() (id.ID, bool) {
	if l.LinkKind == LineLinked && l.OriginalLineID != nil {
		return *l.OriginalLineID, true
	}
	return id.Nil(), false
}

func lineTotal(quantity types.Quantity, unitPrice types.MinorUnits) types.MinorUnits {
	// Quantity is scaled by 1e4; total stays in minor units.
	return types.MinorUnits((quantity.Int64Scaled() * int64(unitPrice)) / types.QuantityScale)
}

// NewLinkedLine builds a return line from an original sale line.
// A zero unitPrice falls back to the original sale price.
func NewLinkedLine(orig sales.OriginalSaleLine, quantity types.Quantity, unitPrice types.MinorUnits) SaleReturnLine {
	if unitPrice == 0 {
		unitPrice = orig.UnitPrice
	}
	origLineID := orig.LineID
	return SaleReturnLine{
		LineID:         id.New(),
		LinkKind:       LineLinked,
		OriginalLineID: &origLineID,
		ProductID:      orig.ProductID,
		VariationID:    orig.VariationID,
		ProductName:    orig.ProductName,
		SKU:            orig.SKU,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		Total:          lineTotal(quantity, unitPrice),
	}
}

// NewUnlinkedLine builds a return line with no original-line back-reference.
func NewUnlinkedLine(productID id.ID, variationID *id.ID, productName, sku string, quantity types.Quantity, unitPrice types.MinorUnits) SaleReturnLine {
	return SaleReturnLine{
		LineID:      id.New(),
		LinkKind:    LineUnlinked,
		ProductID:   productID,
		VariationID: variationID,
		ProductName: productName,
		SKU:         sku,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Total:       lineTotal(quantity, unitPrice),
	}
}

// SaleReturnDocument is the aggregate root for one sale return.
type SaleReturnDocument struct {
	entity.Document

	// OriginalSaleID is absent for standalone returns.
	OriginalSaleID     *id.ID `db:"original_sale_id" json:"originalSaleId,omitempty"`
	OriginalSaleNumber string `db:"original_sale_number" json:"originalSaleNumber,omitempty"`

	CustomerID   *id.ID `db:"customer_id" json:"customerId,omitempty"`
	CustomerName string `db:"customer_name" json:"customerName,omitempty"`

	Status Status `db:"status" json:"status"`

	// Totals (derived from lines and adjustments)
	Subtotal         types.MinorUnits `db:"subtotal" json:"subtotal"`
	DiscountAmount   types.MinorUnits `db:"discount_amount" json:"discountAmount"`
	RestockingFee    types.MinorUnits `db:"restocking_fee" json:"restockingFee"`
	ManualAdjustment types.MinorUnits `db:"manual_adjustment" json:"manualAdjustment"`
	AdjustedTotal    types.MinorUnits `db:"adjusted_total" json:"adjustedTotal"`

	// Settlement choice, set during drafting, acted upon at finalization.
	SettlementMethod    *SettlementMethod `db:"settlement_method" json:"settlementMethod,omitempty"`
	SettlementAccountID *id.ID            `db:"settlement_account_id" json:"settlementAccountId,omitempty"`

	FinalizedAt *time.Time `db:"finalized_at" json:"finalizedAt,omitempty"`
	VoidedAt    *time.Time `db:"voided_at" json:"voidedAt,omitempty"`

	// Table part: returned positions
	Lines []SaleReturnLine `db:"-" json:"lines"`
}

// NewSaleReturn creates a new return document in Draft.
func NewSaleReturn(companyID, branchID string) *SaleReturnDocument {
	return &SaleReturnDocument{
		Document: entity.NewDocument(companyID, branchID),
		Status:   StatusDraft,
		Lines:    make([]SaleReturnLine, 0),
	}
}

// DocumentType identifies this document type in registers and audit records.
func (d *SaleReturnDocument) DocumentType() string { return "SaleReturn" }

// IsStandalone reports whether the return is not linked to any original sale.
// Standalone returns skip quantity reconciliation entirely.
func (d *SaleReturnDocument) IsStandalone() bool {
	return d.OriginalSaleID == nil
}

// Settlement returns the stored settlement choice, or nil if none chosen yet.
func (d *SaleReturnDocument) Settlement() *SettlementChoice {
	if d.SettlementMethod == nil {
		return nil
	}
	return &SettlementChoice{Method: *d.SettlementMethod, AccountID: d.SettlementAccountID}
}

// SetSettlement stores the settlement choice. Not acted upon until finalization.
func (d *SaleReturnDocument) SetSettlement(choice SettlementChoice) {
	method := choice.Method
	d.SettlementMethod = &method
	d.SettlementAccountID = choice.AccountID
}

// CanModify checks if document can be modified.
// Finalized and voided returns are immutable.
func (d *SaleReturnDocument) CanModify() error {
	if d.Status != StatusDraft {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"Cannot modify a return that is no longer a draft",
		).WithDetail("document_id", d.ID.String()).WithDetail("status", string(d.Status))
	}
	return nil
}

// appendLine adds a prepared line and recalculates totals.
func (d *SaleReturnDocument) appendLine(line SaleReturnLine) {
	line.LineNo = len(d.Lines) + 1
	d.Lines = append(d.Lines, line)
	d.recalculateTotals()
}

// setAdjustments stores already-clamped adjustment inputs and re-derives the
// adjusted total. Clamping happens at the edit boundary (Builder), not here.
func (d *SaleReturnDocument) setAdjustments(adj Adjustments) {
	d.DiscountAmount = adj.Discount
	d.RestockingFee = adj.RestockingFee
	d.ManualAdjustment = adj.ManualAdjustment
	d.recalculateTotals()
}

func (d *SaleReturnDocument) recalculateTotals() {
	d.Subtotal = 0
	for _, line := range d.Lines {
		d.Subtotal += line.Total
	}
	d.AdjustedTotal = AdjustedTotal(d.Subtotal, Adjustments{
		Discount:         d.DiscountAmount,
		RestockingFee:    d.RestockingFee,
		ManualAdjustment: d.ManualAdjustment,
	})
}

// Validate implements entity.Validatable.
func (d *SaleReturnDocument) Validate(ctx context.Context) error {
	if err := d.Document.Validate(ctx); err != nil {
		return err
	}

	if len(d.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range d.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.LinkKind == LineLinked && line.OriginalLineID == nil {
			return apperror.NewValidation("linked line requires an original line reference").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if d.IsStandalone() && line.LinkKind == LineLinked {
			return apperror.NewValidation("standalone return cannot carry linked lines").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	if d.DiscountAmount.IsNegative() || d.DiscountAmount > d.Subtotal {
		return apperror.NewValidation("discount must be within [0, subtotal]").
			WithDetail("field", "discountAmount")
	}

	if d.RestockingFee.IsNegative() {
		return apperror.NewValidation("restocking fee cannot be negative").
			WithDetail("field", "restockingFee")
	}

	if d.SettlementMethod != nil && !d.SettlementMethod.Known() {
		return apperror.NewValidation("unknown settlement method").
			WithDetail("field", "settlementMethod")
	}

	return nil
}

// GenerateStockMovements builds the stock register movements for a lifecycle
// action. Finalization puts returned quantity back on the shelf (receipt);
// voiding takes it out again (expense). The stock effect is identical across
// settlement methods.
func (d *SaleReturnDocument) GenerateStockMovements(action entity.MovementAction) []entity.StockMovement {
	recordType := entity.RecordTypeReceipt
	period := d.Date
	switch action {
	case entity.ActionFinalize:
		if d.FinalizedAt != nil {
			period = *d.FinalizedAt
		}
	case entity.ActionVoid:
		recordType = entity.RecordTypeExpense
		if d.VoidedAt != nil {
			period = *d.VoidedAt
		}
	}

	movements := make([]entity.StockMovement, 0, len(d.Lines))
	for _, line := range d.Lines {
		movements = append(movements, entity.NewStockMovement(
			d.ID,
			d.DocumentType(),
			action,
			period,
			recordType,
			d.BranchID,
			line.ProductID,
			line.VariationID,
			line.Quantity,
		))
	}
	return movements
}
