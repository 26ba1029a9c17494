package inventory

import (
	"context"

	"reverso/internal/core/apperror"
	"reverso/internal/core/entity"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/pkg/logger"
)

// Service writes and reads the stock register on behalf of documents.
type Service struct {
	repo Repository
}

// NewService creates an inventory service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ReverseStockOut records returned quantity back into stock. All movements
// must be receipts produced by a finalize action.
func (s *Service) ReverseStockOut(ctx context.Context, movements []entity.StockMovement) error {
	if err := validateMovements(movements, entity.ActionFinalize, entity.RecordTypeReceipt); err != nil {
		return err
	}
	if err := s.repo.CreateMovements(ctx, movements); err != nil {
		return err
	}

	logger.Info(ctx, "stock reversal recorded",
		"recorder_id", movements[0].RecorderID.String(),
		"movements", len(movements),
	)
	return nil
}

// ReapplyStockOut removes previously returned quantity from stock when a
// return is voided. All movements must be expenses produced by a void
// action.
func (s *Service) ReapplyStockOut(ctx context.Context, movements []entity.StockMovement) error {
	if err := validateMovements(movements, entity.ActionVoid, entity.RecordTypeExpense); err != nil {
		return err
	}
	if err := s.repo.CreateMovements(ctx, movements); err != nil {
		return err
	}

	logger.Info(ctx, "stock reapply recorded",
		"recorder_id", movements[0].RecorderID.String(),
		"movements", len(movements),
	)
	return nil
}

func validateMovements(movements []entity.StockMovement, action entity.MovementAction, recordType entity.RecordType) error {
	if len(movements) == 0 {
		return apperror.NewValidation("no movements to record")
	}
	for i := range movements {
		m := &movements[i]
		if id.IsNil(m.RecorderID) || m.RecorderType == "" {
			return apperror.NewValidation("movement recorder is required")
		}
		if m.Action != action {
			return apperror.NewValidation("unexpected movement action").
				WithDetail("expected", string(action)).
				WithDetail("got", string(m.Action))
		}
		if m.RecordType != recordType {
			return apperror.NewValidation("unexpected movement record type").
				WithDetail("expected", string(recordType)).
				WithDetail("got", string(m.RecordType))
		}
		if !m.Quantity.IsPositive() {
			return apperror.NewValidation("movement quantity must be positive")
		}
		if m.BranchID == "" {
			return apperror.NewValidation("movement branch is required")
		}
	}
	return nil
}

// GetBalance returns the current on-hand quantity for one product at one
// branch.
func (s *Service) GetBalance(ctx context.Context, branchID string, productID id.ID, variationID *id.ID) (entity.StockBalance, error) {
	return s.repo.GetBalance(ctx, branchID, productID, variationID)
}

// MovementsByRecorder returns the register trace of one document.
func (s *Service) MovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	return s.repo.GetMovementsByRecorder(ctx, recorderID)
}

// ProductAvailability sums on-hand quantity across branches.
func (s *Service) ProductAvailability(ctx context.Context, productID id.ID) (types.Quantity, error) {
	balances, err := s.repo.ListBalances(ctx, BalanceFilter{ProductID: &productID})
	if err != nil {
		return 0, err
	}
	var total types.Quantity
	for i := range balances {
		total += balances[i].Quantity
	}
	return total, nil
}
