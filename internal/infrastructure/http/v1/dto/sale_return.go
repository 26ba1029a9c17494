package dto

import (
	"time"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/internal/domain/salesreturn"
)

// --- Request DTOs ---

type SaleReturnLineRequest struct {
	// OriginalLineID links the line to an original sale line. Omitted for
	// standalone returns and for lines rebuilt from secondary data.
	OriginalLineID *string `json:"originalLineId,omitempty"`

	// Product data; required for unlinked lines, defaulted from the
	// original line for linked ones.
	ProductID   string  `json:"productId,omitempty"`
	VariationID *string `json:"variationId,omitempty"`
	ProductName string  `json:"productName,omitempty"`
	SKU         string  `json:"sku,omitempty"`

	Quantity float64 `json:"quantity" binding:"required,gt=0"`

	// UnitPrice in minor units; zero means "use the original sale price"
	// for linked lines.
	UnitPrice int64 `json:"unitPrice,omitempty"`
}

type AdjustmentsRequest struct {
	Discount         int64 `json:"discount"`
	RestockingFee    int64 `json:"restockingFee"`
	ManualAdjustment int64 `json:"manualAdjustment"`
}

type SettlementRequest struct {
	Method    string  `json:"method" binding:"required"`
	AccountID *string `json:"accountId,omitempty"`
}

type SaleReturnRequest struct {
	CompanyID string `json:"companyId" binding:"required"`
	BranchID  string `json:"branchId" binding:"required"`

	// OriginalSaleID is omitted for standalone returns.
	OriginalSaleID *string `json:"originalSaleId,omitempty"`

	// Customer data for standalone returns; linked returns denormalize the
	// customer from the original sale.
	CustomerID   *string `json:"customerId,omitempty"`
	CustomerName string  `json:"customerName,omitempty"`

	ReturnDate *time.Time `json:"returnDate,omitempty"`
	Comment    string     `json:"comment,omitempty"`

	Lines       []SaleReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
	Adjustments *AdjustmentsRequest     `json:"adjustments,omitempty"`
	Settlement  *SettlementRequest      `json:"settlement,omitempty"`
}

// ToSpec converts the request into a draft spec for the return service.
func (r *SaleReturnRequest) ToSpec() (salesreturn.DraftSpec, error) {
	spec := salesreturn.DraftSpec{
		Header: salesreturn.DraftHeader{
			CompanyID:    r.CompanyID,
			BranchID:     r.BranchID,
			CustomerName: r.CustomerName,
			Comment:      r.Comment,
		},
	}
	if r.ReturnDate != nil {
		spec.Header.ReturnDate = *r.ReturnDate
	}

	var err *apperror.AppError
	if spec.Header.OriginalSaleID, err = parseOptionalID(r.OriginalSaleID, "originalSaleId"); err != nil {
		return spec, err
	}
	if spec.Header.CustomerID, err = parseOptionalID(r.CustomerID, "customerId"); err != nil {
		return spec, err
	}

	spec.Lines = make([]salesreturn.LineInput, 0, len(r.Lines))
	for i, line := range r.Lines {
		input := salesreturn.LineInput{
			ProductName: line.ProductName,
			SKU:         line.SKU,
			Quantity:    types.NewQuantityFromFloat64(line.Quantity),
			UnitPrice:   types.MinorUnits(line.UnitPrice),
		}
		if input.OriginalLineID, err = parseOptionalID(line.OriginalLineID, "originalLineId"); err != nil {
			return spec, err.WithDetail("lineNo", i+1)
		}
		if input.VariationID, err = parseOptionalID(line.VariationID, "variationId"); err != nil {
			return spec, err.WithDetail("lineNo", i+1)
		}
		if line.ProductID != "" {
			productID, perr := id.Parse(line.ProductID)
			if perr != nil {
				return spec, apperror.NewValidation("invalid id format").
					WithDetail("field", "productId").
					WithDetail("lineNo", i+1)
			}
			input.ProductID = productID
		}
		spec.Lines = append(spec.Lines, input)
	}

	if r.Adjustments != nil {
		spec.Adjustments = &salesreturn.AdjustmentInput{
			Discount:         types.MinorUnits(r.Adjustments.Discount),
			RestockingFee:    types.MinorUnits(r.Adjustments.RestockingFee),
			ManualAdjustment: types.MinorUnits(r.Adjustments.ManualAdjustment),
		}
	}

	if r.Settlement != nil {
		choice := salesreturn.SettlementChoice{
			Method: salesreturn.SettlementMethod(r.Settlement.Method),
		}
		if choice.AccountID, err = parseOptionalID(r.Settlement.AccountID, "accountId"); err != nil {
			return spec, err
		}
		spec.Settlement = &choice
	}

	return spec, nil
}

func parseOptionalID(s *string, field string) (*id.ID, *apperror.AppError) {
	if s == nil || *s == "" {
		return nil, nil
	}
	parsed, err := id.Parse(*s)
	if err != nil {
		return nil, apperror.NewValidation("invalid id format").WithDetail("field", field)
	}
	return &parsed, nil
}

// --- Response DTOs ---

type SaleReturnLineResponse struct {
	LineID         string  `json:"lineId"`
	LineNo         int     `json:"lineNo"`
	LinkKind       string  `json:"linkKind"`
	OriginalLineID *string `json:"originalLineId,omitempty"`
	ProductID      string  `json:"productId"`
	VariationID    *string `json:"variationId,omitempty"`
	ProductName    string  `json:"productName,omitempty"`
	SKU            string  `json:"sku,omitempty"`
	Quantity       float64 `json:"quantity"`
	UnitPrice      int64   `json:"unitPrice"`
	Total          int64   `json:"total"`
}

type SettlementResponse struct {
	Method    string  `json:"method"`
	AccountID *string `json:"accountId,omitempty"`
}

type SaleReturnResponse struct {
	ID                 string     `json:"id"`
	Number             string     `json:"number"`
	Date               time.Time  `json:"date"`
	Status             string     `json:"status"`
	CompanyID          string     `json:"companyId"`
	BranchID           string     `json:"branchId"`
	OriginalSaleID     *string    `json:"originalSaleId,omitempty"`
	OriginalSaleNumber string     `json:"originalSaleNumber,omitempty"`
	CustomerID         *string    `json:"customerId,omitempty"`
	CustomerName       string     `json:"customerName,omitempty"`
	Subtotal           int64      `json:"subtotal"`
	DiscountAmount     int64      `json:"discountAmount"`
	RestockingFee      int64      `json:"restockingFee"`
	ManualAdjustment   int64      `json:"manualAdjustment"`
	AdjustedTotal      int64      `json:"adjustedTotal"`
	Settlement         *SettlementResponse `json:"settlement,omitempty"`
	FinalizedAt        *time.Time `json:"finalizedAt,omitempty"`
	VoidedAt           *time.Time `json:"voidedAt,omitempty"`
	Comment            string     `json:"comment,omitempty"`
	Lines              []SaleReturnLineResponse `json:"lines"`
	DeletionMark       bool       `json:"deletionMark,omitempty"`
	Version            int        `json:"version"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func FromSaleReturn(doc *salesreturn.SaleReturnDocument) *SaleReturnResponse {
	resp := &SaleReturnResponse{
		ID:                 doc.ID.String(),
		Number:             doc.Number,
		Date:               doc.Date,
		Status:             string(doc.Status),
		CompanyID:          doc.CompanyID,
		BranchID:           doc.BranchID,
		OriginalSaleID:     optionalIDString(doc.OriginalSaleID),
		OriginalSaleNumber: doc.OriginalSaleNumber,
		CustomerID:         optionalIDString(doc.CustomerID),
		CustomerName:       doc.CustomerName,
		Subtotal:           int64(doc.Subtotal),
		DiscountAmount:     int64(doc.DiscountAmount),
		RestockingFee:      int64(doc.RestockingFee),
		ManualAdjustment:   int64(doc.ManualAdjustment),
		AdjustedTotal:      int64(doc.AdjustedTotal),
		FinalizedAt:        doc.FinalizedAt,
		VoidedAt:           doc.VoidedAt,
		Comment:            doc.Comment,
		DeletionMark:       doc.DeletionMark,
		Version:            doc.Version,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}

	if choice := doc.Settlement(); choice != nil {
		resp.Settlement = &SettlementResponse{
			Method:    string(choice.Method),
			AccountID: optionalIDString(choice.AccountID),
		}
	}

	resp.Lines = make([]SaleReturnLineResponse, len(doc.Lines))
	for i, line := range doc.Lines {
		resp.Lines[i] = SaleReturnLineResponse{
			LineID:         line.LineID.String(),
			LineNo:         line.LineNo,
			LinkKind:       string(line.LinkKind),
			OriginalLineID: optionalIDString(line.OriginalLineID),
			ProductID:      line.ProductID.String(),
			VariationID:    optionalIDString(line.VariationID),
			ProductName:    line.ProductName,
			SKU:            line.SKU,
			Quantity:       line.Quantity.Float64(),
			UnitPrice:      int64(line.UnitPrice),
			Total:          int64(line.Total),
		}
	}

	return resp
}

func optionalIDString(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

type SaleReturnListResponse struct {
	Items      []*SaleReturnResponse `json:"items"`
	TotalCount int                   `json:"totalCount"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
}

// LifecycleResponse is the result of finalize and void: the committed
// document plus any side-effect warnings.
type LifecycleResponse struct {
	Document *SaleReturnResponse `json:"document"`
	Warnings []WarningResponse   `json:"warnings,omitempty"`
}

func FromLifecycleResult(result *salesreturn.Result) *LifecycleResponse {
	resp := &LifecycleResponse{Document: FromSaleReturn(result.Document)}
	for _, w := range result.Warnings {
		resp.Warnings = append(resp.Warnings, WarningResponse{
			Code:    w.Code,
			Message: w.Message,
			Details: w.Details,
		})
	}
	return resp
}

// --- Returnable preview ---

type ReturnableLineResponse struct {
	OriginalLineID string  `json:"originalLineId"`
	LineNo         int     `json:"lineNo"`
	ProductID      string  `json:"productId"`
	ProductName    string  `json:"productName,omitempty"`
	SKU            string  `json:"sku,omitempty"`
	SoldQuantity   float64 `json:"soldQuantity"`
	ReturnedHeld   float64 `json:"returnedHeld"`
	Returnable     float64 `json:"returnable"`
	UnitPrice      int64   `json:"unitPrice"`
}

type ReturnablePreviewResponse struct {
	SaleID string                   `json:"saleId"`
	Lines  []ReturnableLineResponse `json:"lines"`
}

func FromLineUsages(saleID id.ID, usages []salesreturn.LineUsage) *ReturnablePreviewResponse {
	resp := &ReturnablePreviewResponse{
		SaleID: saleID.String(),
		Lines:  make([]ReturnableLineResponse, len(usages)),
	}
	for i, u := range usages {
		resp.Lines[i] = ReturnableLineResponse{
			OriginalLineID: u.OriginalLineID.String(),
			LineNo:         u.LineNo,
			ProductID:      u.ProductID.String(),
			ProductName:    u.ProductName,
			SKU:            u.SKU,
			SoldQuantity:   u.SoldQuantity.Float64(),
			ReturnedHeld:   u.ReturnedHeld.Float64(),
			Returnable:     u.Returnable.Float64(),
			UnitPrice:      int64(u.UnitPrice),
		}
	}
	return resp
}
