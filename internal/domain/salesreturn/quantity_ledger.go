package salesreturn

import (
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/internal/domain/sales"
)

// LineUsage is the reconciliation state of one original sale line: how much
// was sold, how much is held by returns (drafts and finals alike), and how
// much remains returnable.
type LineUsage struct {
	OriginalLineID  id.ID            `json:"originalLineId"`
	LineNo          int              `json:"lineNo"`
	ProductID       id.ID            `json:"productId"`
	ProductName     string           `json:"productName"`
	SKU             string           `json:"sku"`
	SoldQuantity    types.Quantity   `json:"soldQuantity"`
	ReturnedHeld    types.Quantity   `json:"returnedHeld"`
	Returnable      types.Quantity   `json:"returnable"`
	UnitPrice       types.MinorUnits `json:"unitPrice"`
}

// Reconciliation is the derived per-line quantity ledger for one original
// sale. It is never stored: always recomputed from the original lines and
// the current set of non-void returns.
//
// Draft returns hold quantity exactly like finalized ones (optimistic
// reservation); voided returns release theirs entirely.
type Reconciliation struct {
	byLine map[id.ID]*LineUsage
	order  []id.ID
}

// Reconcile computes the ledger. The returns slice must contain every
// non-deleted Draft and Final return referencing the sale; Void documents
// are skipped here in case the caller includes them.
//
// A negative returnable balance means the invariant was already broken by
// some other write path: Reconcile refuses to clamp and reports a
// consistency fault instead.
func Reconcile(original []sales.OriginalSaleLine, returns []*SaleReturnDocument) (*Reconciliation, error) {
	rec := &Reconciliation{
		byLine: make(map[id.ID]*LineUsage, len(original)),
		order:  make([]id.ID, 0, len(original)),
	}

	for _, line := range original {
		rec.byLine[line.LineID] = &LineUsage{
			OriginalLineID: line.LineID,
			LineNo:         line.LineNo,
			ProductID:      line.ProductID,
			ProductName:    line.ProductName,
			SKU:            line.SKU,
			SoldQuantity:   line.Quantity,
			UnitPrice:      line.UnitPrice,
		}
		rec.order = append(rec.order, line.LineID)
	}

	for _, doc := range returns {
		if doc.Status == StatusVoid || doc.DeletionMark {
			continue
		}
		for i := range doc.Lines {
			origID, ok := doc.Lines[i].Linked()
			if !ok {
				// Unlinked lines never consume returnable quantity.
				continue
			}
			usage, known := rec.byLine[origID]
			if !known {
				// Reference to a line the sale does not carry; nothing to
				// allocate against, leave it to document validation.
				continue
			}
			usage.ReturnedHeld += doc.Lines[i].Quantity
		}
	}

	for _, lineID := range rec.order {
		usage := rec.byLine[lineID]
		usage.Returnable = usage.SoldQuantity - usage.ReturnedHeld
		if usage.Returnable.IsNegative() {
			return nil, errConsistencyFault(usage.OriginalLineID, usage.Returnable)
		}
	}

	return rec, nil
}

// Usage returns the reconciliation state for one original line.
func (r *Reconciliation) Usage(originalLineID id.ID) (LineUsage, bool) {
	usage, ok := r.byLine[originalLineID]
	if !ok {
		return LineUsage{}, false
	}
	return *usage, true
}

// Returnable returns the remaining returnable quantity for an original
// line, zero for unknown lines.
func (r *Reconciliation) Returnable(originalLineID id.ID) types.Quantity {
	if usage, ok := r.byLine[originalLineID]; ok {
		return usage.Returnable
	}
	return 0
}

// Usages returns per-line states in original line order.
func (r *Reconciliation) Usages() []LineUsage {
	out := make([]LineUsage, 0, len(r.order))
	for _, lineID := range r.order {
		out = append(out, *r.byLine[lineID])
	}
	return out
}

// EnsureAccommodates verifies that the given return lines fit into the
// remaining returnable quantities. Used at finalization, with the document
// under check excluded from the reconciliation input.
//
// Quantities are aggregated per original line first: two lines of the same
// document pointing at the same original line compete for the same
// remainder.
func (r *Reconciliation) EnsureAccommodates(lines []SaleReturnLine) error {
	requested := make(map[id.ID]types.Quantity)
	for i := range lines {
		if origID, ok := lines[i].Linked(); ok {
			requested[origID] += lines[i].Quantity
		}
	}

	for origID, qty := range requested {
		allowed := r.Returnable(origID)
		if qty > allowed {
			return errQuantityExceeded(origID, qty, allowed)
		}
	}
	return nil
}
