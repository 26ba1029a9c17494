package dto

import (
	"time"

	"reverso/internal/core/entity"
)

// --- Response DTOs ---

type StockBalanceResponse struct {
	BranchID       string    `json:"branchId"`
	ProductID      string    `json:"productId"`
	VariationID    *string   `json:"variationId,omitempty"`
	Quantity       float64   `json:"quantity"`
	LastMovementAt time.Time `json:"lastMovementAt"`
}

func FromStockBalance(b entity.StockBalance) StockBalanceResponse {
	return StockBalanceResponse{
		BranchID:       b.BranchID,
		ProductID:      b.ProductID.String(),
		VariationID:    optionalIDString(b.VariationID),
		Quantity:       b.Quantity.Float64(),
		LastMovementAt: b.LastMovementAt,
	}
}

type StockBalanceListResponse struct {
	Items []StockBalanceResponse `json:"items"`
}

type StockMovementResponse struct {
	LineID       string    `json:"lineId"`
	RecorderID   string    `json:"recorderId"`
	RecorderType string    `json:"recorderType"`
	Action       string    `json:"action"`
	RecordType   string    `json:"recordType"`
	Period       time.Time `json:"period"`
	BranchID     string    `json:"branchId"`
	ProductID    string    `json:"productId"`
	VariationID  *string   `json:"variationId,omitempty"`
	Quantity     float64   `json:"quantity"`
}

func FromStockMovement(m entity.StockMovement) StockMovementResponse {
	return StockMovementResponse{
		LineID:       m.LineID.String(),
		RecorderID:   m.RecorderID.String(),
		RecorderType: m.RecorderType,
		Action:       string(m.Action),
		RecordType:   string(m.RecordType),
		Period:       m.Period,
		BranchID:     m.BranchID,
		ProductID:    m.ProductID.String(),
		VariationID:  optionalIDString(m.VariationID),
		Quantity:     m.Quantity.Float64(),
	}
}

type StockMovementListResponse struct {
	Items []StockMovementResponse `json:"items"`
}

type ProductAvailabilityResponse struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
}
