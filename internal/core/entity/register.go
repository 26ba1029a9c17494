package entity

import (
	"time"

	"reverso/internal/core/id"
	"reverso/internal/core/types"
)

// RecordType defines movement direction for accumulation registers.
type RecordType string

const (
	// RecordTypeReceipt increases on-hand balance
	RecordTypeReceipt RecordType = "receipt"
	// RecordTypeExpense decreases on-hand balance
	RecordTypeExpense RecordType = "expense"
)

// MovementAction tags the business action that produced a movement.
// Reversal-of-a-reversal (void) must stay distinguishable from the
// original reversal for audit queries.
type MovementAction string

const (
	// ActionFinalize: stock returned to the shelf when a return goes final
	ActionFinalize MovementAction = "finalize"
	// ActionVoid: the finalize effect undone, stock back to "sold" state
	ActionVoid MovementAction = "void"
)

// MovementBase contains common fields for all register movements.
// Movements are immutable - they are never updated, only appended.
type MovementBase struct {
	// LineID is unique identifier for this movement line (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// RecorderID is the document that created this movement
	RecorderID id.ID `db:"recorder_id" json:"recorderId"`

	// RecorderType is the document type (e.g., "SaleReturn")
	RecorderType string `db:"recorder_type" json:"recorderType"`

	// Action is the lifecycle action that emitted the movement
	Action MovementAction `db:"action" json:"action"`

	// Period is the business date for the movement (for period-based queries)
	Period time.Time `db:"period" json:"period"`

	// RecordType: receipt or expense
	RecordType RecordType `db:"record_type" json:"recordType"`

	// CreatedAt is when the movement was recorded
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovementBase creates a new movement base with generated LineID.
func NewMovementBase(recorderID id.ID, recorderType string, action MovementAction, period time.Time, recordType RecordType) MovementBase {
	return MovementBase{
		LineID:       id.New(),
		RecorderID:   recorderID,
		RecorderType: recorderType,
		Action:       action,
		Period:       period,
		RecordType:   recordType,
		CreatedAt:    time.Now().UTC(),
	}
}

// StockMovement represents a movement in the stock accumulation register.
// Tracks quantity changes for products per branch.
type StockMovement struct {
	MovementBase

	// Dimensions
	BranchID    string `db:"branch_id" json:"branchId"`
	ProductID   id.ID  `db:"product_id" json:"productId"`
	VariationID *id.ID `db:"variation_id" json:"variationId,omitempty"`

	// Resources
	Quantity types.Quantity `db:"quantity" json:"quantity"`
}

// NewStockMovement creates a new stock movement.
func NewStockMovement(
	recorderID id.ID,
	recorderType string,
	action MovementAction,
	period time.Time,
	recordType RecordType,
	branchID string,
	productID id.ID,
	variationID *id.ID,
	quantity types.Quantity,
) StockMovement {
	return StockMovement{
		MovementBase: NewMovementBase(recorderID, recorderType, action, period, recordType),
		BranchID:     branchID,
		ProductID:    productID,
		VariationID:  variationID,
		Quantity:     quantity,
	}
}

// SignedQuantity returns quantity with sign based on record type.
// Receipt = positive, Expense = negative.
func (m *StockMovement) SignedQuantity() types.Quantity {
	if m.RecordType == RecordTypeExpense {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// StockBalance represents current balance in the stock register.
// This is a materialized view for fast balance queries.
type StockBalance struct {
	// Dimensions
	BranchID    string `db:"branch_id" json:"branchId"`
	ProductID   id.ID  `db:"product_id" json:"productId"`
	VariationID *id.ID `db:"variation_id" json:"variationId,omitempty"`

	// Balances
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Metadata
	LastMovementAt time.Time `db:"last_movement_at" json:"lastMovementAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}
