package salesreturn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reverso/internal/core/types"
)

func TestAdjustedTotal(t *testing.T) {
	tests := []struct {
		name     string
		subtotal types.MinorUnits
		adj      Adjustments
		want     types.MinorUnits
	}{
		{
			name:     "no adjustments",
			subtotal: 10000,
			want:     10000,
		},
		{
			name:     "discount reduces",
			subtotal: 10000,
			adj:      Adjustments{Discount: 1500},
			want:     8500,
		},
		{
			name:     "restocking fee is added, not subtracted",
			subtotal: 10000,
			adj:      Adjustments{RestockingFee: 500},
			want:     10500,
		},
		{
			name:     "manual adjustment positive",
			subtotal: 10000,
			adj:      Adjustments{ManualAdjustment: 250},
			want:     10250,
		},
		{
			name:     "manual adjustment negative",
			subtotal: 10000,
			adj:      Adjustments{ManualAdjustment: -250},
			want:     9750,
		},
		{
			name:     "all components combined",
			subtotal: 10000,
			adj:      Adjustments{Discount: 1000, RestockingFee: 500, ManualAdjustment: -200},
			want:     9300,
		},
		{
			name:     "large negative manual adjustment floors at zero",
			subtotal: 1000,
			adj:      Adjustments{ManualAdjustment: -5000},
			want:     0,
		},
		{
			name:     "exactly zero",
			subtotal: 1000,
			adj:      Adjustments{Discount: 1000},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AdjustedTotal(tt.subtotal, tt.adj))
		})
	}
}

func TestClampDiscount(t *testing.T) {
	assert.Equal(t, types.MinorUnits(0), ClampDiscount(-100, 1000))
	assert.Equal(t, types.MinorUnits(1000), ClampDiscount(5000, 1000))
	assert.Equal(t, types.MinorUnits(700), ClampDiscount(700, 1000))
}
