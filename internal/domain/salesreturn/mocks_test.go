package salesreturn

import (
	"context"

	"reverso/internal/core/apperror"
	"reverso/internal/core/entity"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/internal/domain"
	"reverso/internal/domain/accounting"
	"reverso/internal/domain/sales"
)

// In-memory fakes for the service collaborators.

type memRepo struct {
	docs        map[id.ID]*SaleReturnDocument
	lockedSales []id.ID
	updateErr   error
	createErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[id.ID]*SaleReturnDocument)}
}

func (r *memRepo) Create(ctx context.Context, doc *SaleReturnDocument) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, docID id.ID) (*SaleReturnDocument, error) {
	doc, ok := r.docs[docID]
	if !ok || doc.DeletionMark {
		return nil, apperror.NewNotFound("sale return", docID.String())
	}
	return doc, nil
}

func (r *memRepo) GetByNumber(ctx context.Context, number string) (*SaleReturnDocument, error) {
	for _, doc := range r.docs {
		if doc.Number == number && !doc.DeletionMark {
			return doc, nil
		}
	}
	return nil, apperror.NewNotFound("sale return", number)
}

func (r *memRepo) GetForUpdate(ctx context.Context, docID id.ID) (*SaleReturnDocument, error) {
	return r.GetByID(ctx, docID)
}

func (r *memRepo) Update(ctx context.Context, doc *SaleReturnDocument) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *memRepo) Delete(ctx context.Context, docID id.ID) error {
	doc, ok := r.docs[docID]
	if !ok {
		return apperror.NewNotFound("sale return", docID.String())
	}
	doc.MarkDeleted()
	return nil
}

func (r *memRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SaleReturnDocument], error) {
	result := domain.ListResult[*SaleReturnDocument]{}
	for _, doc := range r.docs {
		if doc.DeletionMark && !filter.IncludeDeleted {
			continue
		}
		if filter.Status != nil && doc.Status != *filter.Status {
			continue
		}
		result.Items = append(result.Items, doc)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *memRepo) ListActiveBySale(ctx context.Context, saleID id.ID, excludeID *id.ID) ([]*SaleReturnDocument, error) {
	var out []*SaleReturnDocument
	for _, doc := range r.docs {
		if doc.DeletionMark || doc.Status == StatusVoid {
			continue
		}
		if doc.OriginalSaleID == nil || *doc.OriginalSaleID != saleID {
			continue
		}
		if excludeID != nil && doc.ID == *excludeID {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (r *memRepo) LockOriginalSale(ctx context.Context, saleID id.ID) error {
	r.lockedSales = append(r.lockedSales, saleID)
	return nil
}

type memSalesReader struct {
	sales map[id.ID]*sales.OriginalSale
}

func newMemSalesReader(items ...*sales.OriginalSale) *memSalesReader {
	r := &memSalesReader{sales: make(map[id.ID]*sales.OriginalSale)}
	for _, s := range items {
		r.sales[s.ID] = s
	}
	return r
}

func (r *memSalesReader) GetSale(ctx context.Context, saleID id.ID) (*sales.OriginalSale, error) {
	s, ok := r.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	return s, nil
}

type memInventory struct {
	reversed   [][]entity.StockMovement
	reapplied  [][]entity.StockMovement
	reverseErr error
	reapplyErr error
}

func (m *memInventory) ReverseStockOut(ctx context.Context, movements []entity.StockMovement) error {
	if m.reverseErr != nil {
		return m.reverseErr
	}
	m.reversed = append(m.reversed, movements)
	return nil
}

func (m *memInventory) ReapplyStockOut(ctx context.Context, movements []entity.StockMovement) error {
	if m.reapplyErr != nil {
		return m.reapplyErr
	}
	m.reapplied = append(m.reapplied, movements)
	return nil
}

type memAccounting struct {
	accounts map[id.ID]*accounting.Account
	entries  []accounting.Entry
	entryErr error
}

func newMemAccounting(accounts ...*accounting.Account) *memAccounting {
	m := &memAccounting{accounts: make(map[id.ID]*accounting.Account)}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *memAccounting) CreateEntry(ctx context.Context, entry accounting.Entry) error {
	if m.entryErr != nil {
		return m.entryErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAccounting) GetAccountByID(ctx context.Context, accountID id.ID) (*accounting.Account, error) {
	a, ok := m.accounts[accountID]
	if !ok {
		return nil, apperror.NewNotFound("account", accountID.String())
	}
	return a, nil
}

func (m *memAccounting) ResolveSettlementAccounts(ctx context.Context, accountType accounting.AccountType, branchID string) ([]accounting.Account, error) {
	var out []accounting.Account
	for _, a := range m.accounts {
		if a.Type == accountType && a.BranchID == branchID && a.Active {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAccounting) SalesRevenueAccount(ctx context.Context, branchID string) (*accounting.Account, error) {
	accounts, err := m.ResolveSettlementAccounts(ctx, accounting.AccountTypeRevenue, branchID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, apperror.NewNotFound("sales revenue account", branchID)
	}
	return &accounts[0], nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- fixture helpers ---

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func testSale(lineQuantities ...float64) *sales.OriginalSale {
	sale := &sales.OriginalSale{
		ID:           id.New(),
		Number:       "INV-2026-00042",
		CustomerName: "Acme Retail",
		BranchID:     "branch-1",
		CompanyID:    "company-1",
		State:        sales.SaleStateFinal,
	}
	customerID := id.New()
	sale.CustomerID = &customerID

	for i, q := range lineQuantities {
		sale.Lines = append(sale.Lines, sales.OriginalSaleLine{
			LineID:      id.New(),
			LineNo:      i + 1,
			ProductID:   id.New(),
			ProductName: "Widget",
			SKU:         "SKU-100",
			Quantity:    qty(q),
			UnitPrice:   types.MinorUnits(1000), // 10.00
		})
	}
	return sale
}
