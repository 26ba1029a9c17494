package salesreturn

import (
	"context"
	"time"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/internal/domain/sales"
)

// Builder is the edit boundary for draft returns. All quantity checks,
// discount clamping and settlement validation happen here; the document
// itself only stores what the builder lets through.
type Builder struct {
	sales sales.Reader
	repo  Repository
}

// NewBuilder creates a draft builder.
func NewBuilder(salesReader sales.Reader, repo Repository) *Builder {
	return &Builder{sales: salesReader, repo: repo}
}

// DraftHeader carries the inputs for starting a new draft.
type DraftHeader struct {
	CompanyID string
	BranchID  string

	// OriginalSaleID is nil for standalone returns.
	OriginalSaleID *id.ID

	// Customer data for standalone returns; ignored for linked returns,
	// which denormalize the customer from the original sale.
	CustomerID   *id.ID
	CustomerName string

	ReturnDate time.Time
	Comment    string
}

// LineInput carries the inputs for adding one line to a draft.
type LineInput struct {
	// OriginalLineID links the line to an original sale line. When nil on a
	// linked return, the line is recorded unlinked (rebuilt from secondary
	// data) and skips quantity reconciliation.
	OriginalLineID *id.ID

	// Product data; for linked lines these default from the original line.
	ProductID   id.ID
	VariationID *id.ID
	ProductName string
	SKU         string

	Quantity types.Quantity

	// UnitPrice override; zero means "use the original sale price" for
	// linked lines.
	UnitPrice types.MinorUnits
}

// StartDraft creates a new draft document. For linked returns the original
// sale is loaded, checked for returnability, and its customer and number are
// denormalized onto the draft.
func (b *Builder) StartDraft(ctx context.Context, hdr DraftHeader) (*SaleReturnDocument, error) {
	doc := NewSaleReturn(hdr.CompanyID, hdr.BranchID)
	doc.Comment = hdr.Comment
	if !hdr.ReturnDate.IsZero() {
		doc.Date = hdr.ReturnDate
	}

	if hdr.OriginalSaleID != nil {
		sale, err := b.sales.GetSale(ctx, *hdr.OriginalSaleID)
		if err != nil {
			return nil, err
		}
		if err := sale.EnsureReturnable(); err != nil {
			return nil, err
		}

		saleID := sale.ID
		doc.OriginalSaleID = &saleID
		doc.OriginalSaleNumber = sale.Number
		doc.CustomerID = sale.CustomerID
		doc.CustomerName = sale.CustomerName
	} else {
		doc.CustomerID = hdr.CustomerID
		doc.CustomerName = hdr.CustomerName
	}

	return doc, nil
}

// AddLine validates and appends one line to a draft.
//
// For linked lines the requested quantity is checked against the returnable
// remainder: sold quantity minus everything held by other non-void returns
// minus what this draft already holds for the same original line. A request
// above the remainder is rejected with the actual maximum in the error.
func (b *Builder) AddLine(ctx context.Context, doc *SaleReturnDocument, in LineInput) error {
	if err := doc.CanModify(); err != nil {
		return err
	}
	if !in.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}

	if doc.IsStandalone() {
		if in.OriginalLineID != nil {
			return apperror.NewValidation("standalone return cannot reference original sale lines").
				WithDetail("field", "originalLineId")
		}
		return b.addUnlinkedLine(doc, in)
	}

	if in.OriginalLineID == nil {
		// Linked document, line rebuilt from secondary data.
		return b.addUnlinkedLine(doc, in)
	}

	sale, err := b.sales.GetSale(ctx, *doc.OriginalSaleID)
	if err != nil {
		return err
	}

	origLine := sale.Line(*in.OriginalLineID)
	if origLine == nil {
		return apperror.NewNotFound("original sale line", in.OriginalLineID.String())
	}

	rec, err := b.reconcileExcluding(ctx, sale, doc.ID)
	if err != nil {
		return err
	}

	// Quantity already held by this draft for the same original line also
	// counts against the remainder.
	available := rec.Returnable(origLine.LineID)
	for i := range doc.Lines {
		if linked, ok := doc.Lines[i].Linked(); ok && linked == origLine.LineID {
			available -= doc.Lines[i].Quantity
		}
	}
	if available.IsNegative() {
		return errConsistencyFault(origLine.LineID, available)
	}
	if in.Quantity > available {
		return errQuantityExceeded(origLine.LineID, in.Quantity, available)
	}

	doc.appendLine(NewLinkedLine(*origLine, in.Quantity, in.UnitPrice))
	return nil
}

func (b *Builder) addUnlinkedLine(doc *SaleReturnDocument, in LineInput) error {
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	doc.appendLine(NewUnlinkedLine(in.ProductID, in.VariationID, in.ProductName, in.SKU, in.Quantity, in.UnitPrice))
	return nil
}

// SetAdjustments validates and applies header-level adjustments. The
// discount is clamped into [0, subtotal]; a negative restocking fee is
// rejected; the manual adjustment passes through with any sign.
func (b *Builder) SetAdjustments(doc *SaleReturnDocument, discount, restockingFee, manualAdjustment types.MinorUnits) error {
	if err := doc.CanModify(); err != nil {
		return err
	}
	if restockingFee.IsNegative() {
		return apperror.NewValidation("restocking fee cannot be negative").
			WithDetail("field", "restockingFee")
	}

	doc.setAdjustments(Adjustments{
		Discount:         ClampDiscount(discount, doc.Subtotal),
		RestockingFee:    restockingFee,
		ManualAdjustment: manualAdjustment,
	})
	return nil
}

// SetSettlement stores the settlement choice on a draft. Only the method is
// validated here; the account requirement is enforced by the finalization
// guard, so an incomplete choice can be saved mid-edit.
func (b *Builder) SetSettlement(doc *SaleReturnDocument, choice SettlementChoice) error {
	if err := doc.CanModify(); err != nil {
		return err
	}
	if !choice.Method.Known() {
		return apperror.NewValidation("unknown settlement method").
			WithDetail("field", "settlementMethod").
			WithDetail("method", string(choice.Method))
	}
	doc.SetSettlement(choice)
	return nil
}

// reconcileExcluding builds the quantity ledger for a sale with one
// document's own holdings excluded.
func (b *Builder) reconcileExcluding(ctx context.Context, sale *sales.OriginalSale, excludeID id.ID) (*Reconciliation, error) {
	others, err := b.repo.ListActiveBySale(ctx, sale.ID, &excludeID)
	if err != nil {
		return nil, err
	}
	return Reconcile(sale.Lines, others)
}
