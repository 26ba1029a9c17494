package salesreturn

import (
	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
)

func errQuantityExceeded(originalLineID id.ID, requested, allowed types.Quantity) error {
	return apperror.NewQuantityExceeded(originalLineID.String(), requested.Float64(), allowed.Float64())
}

func errConsistencyFault(originalLineID id.ID, returnable types.Quantity) error {
	return apperror.NewConsistencyFault(originalLineID.String(), returnable.Float64())
}
