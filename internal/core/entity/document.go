package entity

import (
	"context"
	"time"

	"reverso/internal/core/apperror"
)

// Document is the base type for business transactions.
// Examples: SaleReturn, GoodsReceipt, Payment.
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+period)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// BranchID is the owning location. Required, non-null.
	BranchID string `db:"branch_id" json:"branchId"`

	// CompanyID is the owning company. Required, non-null.
	CompanyID string `db:"company_id" json:"companyId"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID.
func NewDocument(companyID, branchID string) Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		CompanyID:    companyID,
		BranchID:     branchID,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.CompanyID == "" {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}

	if d.BranchID == "" {
		return apperror.NewValidation("branch is required").
			WithDetail("field", "branchId")
	}

	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	return nil
}

// IsBackdated checks if document date is in the past.
func (d *Document) IsBackdated() bool {
	return d.Date.Before(time.Now().UTC().Truncate(24 * time.Hour))
}
