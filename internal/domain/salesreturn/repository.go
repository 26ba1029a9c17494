package salesreturn

import (
	"context"
	"time"

	"reverso/internal/core/id"
	"reverso/internal/domain"
)

// ListFilter narrows return listings.
type ListFilter struct {
	domain.ListFilter

	Status         *Status
	OriginalSaleID *id.ID
	CustomerID     *id.ID
	BranchID       *string
	DateFrom       *time.Time
	DateTo         *time.Time
}

// Repository is the storage contract for sale return documents.
// All Get* variants return the document with lines loaded.
type Repository interface {
	Create(ctx context.Context, doc *SaleReturnDocument) error
	GetByID(ctx context.Context, docID id.ID) (*SaleReturnDocument, error)
	GetByNumber(ctx context.Context, number string) (*SaleReturnDocument, error)

	// GetForUpdate locks the document row for the duration of the current
	// transaction (SELECT ... FOR UPDATE). Must run inside a transaction.
	GetForUpdate(ctx context.Context, docID id.ID) (*SaleReturnDocument, error)

	// Update writes the header with an optimistic version check and
	// replaces the line set.
	Update(ctx context.Context, doc *SaleReturnDocument) error

	// Delete soft-deletes a document (deletion mark, drafts only; the
	// service enforces the status rule).
	Delete(ctx context.Context, docID id.ID) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*SaleReturnDocument], error)

	// ListActiveBySale returns all non-deleted Draft and Final returns
	// referencing the sale, lines included, optionally excluding one
	// document (the one being edited or finalized).
	ListActiveBySale(ctx context.Context, saleID id.ID, excludeID *id.ID) ([]*SaleReturnDocument, error)

	// LockOriginalSale takes a transaction-scoped advisory lock on the
	// original sale, serializing concurrent finalizations against it.
	// Must run inside a transaction; released at commit or rollback.
	LockOriginalSale(ctx context.Context, saleID id.ID) error
}
