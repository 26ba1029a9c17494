package salesreturn

import (
	"reverso/internal/core/types"
)

// Adjustments are the header-level corrections applied on top of the line
// subtotal. Discount and restocking fee are validated/clamped at the edit
// boundary; manual adjustment may be any sign.
type Adjustments struct {
	// Discount reduces the refund (proportional discount from the original
	// sale carried into the return). Always within [0, subtotal].
	Discount types.MinorUnits

	// RestockingFee is charged to the customer but, per long-standing
	// back-office convention, INCREASES the computed return amount.
	RestockingFee types.MinorUnits

	// ManualAdjustment is a free-form correction, positive or negative.
	ManualAdjustment types.MinorUnits
}

// AdjustedTotal computes the amount to be settled:
//
//	max(0, subtotal - discount + restockingFee + manualAdjustment)
//
// The restocking fee is added, not subtracted. The result is floored at
// zero: a large negative manual adjustment produces a zero-value return,
// never a charge against the customer.
func AdjustedTotal(subtotal types.MinorUnits, adj Adjustments) types.MinorUnits {
	total := subtotal - adj.Discount + adj.RestockingFee + adj.ManualAdjustment
	if total < 0 {
		return 0
	}
	return total
}

// ClampDiscount forces a discount into the valid [0, subtotal] range.
// Out-of-range input is silently corrected rather than rejected.
func ClampDiscount(discount, subtotal types.MinorUnits) types.MinorUnits {
	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}
