package salesreturn

import (
	"context"
	"time"

	"reverso/internal/core/apperror"
	"reverso/internal/core/entity"
	"reverso/internal/core/id"
	"reverso/internal/core/tx"
	"reverso/internal/core/types"
	"reverso/internal/domain"
	"reverso/internal/domain/accounting"
	"reverso/internal/domain/sales"
	"reverso/pkg/logger"
	"reverso/pkg/numerator"
)

// InventoryLedger is the stock register surface the engine writes through.
// Implemented by the inventory service.
type InventoryLedger interface {
	// ReverseStockOut records returned quantity back into stock.
	ReverseStockOut(ctx context.Context, movements []entity.StockMovement) error
	// ReapplyStockOut undoes a prior reversal when a return is voided.
	ReapplyStockOut(ctx context.Context, movements []entity.StockMovement) error
}

// AuditTrail records lifecycle snapshots. Optional; a nil trail disables
// auditing.
type AuditTrail interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action string, snapshot any) error
}

// ServiceConfig wires the service's collaborators.
type ServiceConfig struct {
	Repo       Repository
	Sales      sales.Reader
	Inventory  InventoryLedger
	Accounting AccountingLedger
	Numerator  numerator.Generator
	TxManager  tx.Manager
	Audit      AuditTrail // optional
}

// Service orchestrates the sale return lifecycle. The document state change
// is the authoritative act: at finalization and voiding it commits first,
// and the stock/accounting side effects follow best-effort. A side-effect
// failure never rolls the document back; it is reported as a warning for
// manual reconciliation.
type Service struct {
	repo       Repository
	builder    *Builder
	sales      sales.Reader
	inventory  InventoryLedger
	accounting AccountingLedger
	numerator  numerator.Generator
	txManager  tx.Manager
	audit      AuditTrail
}

// NewService creates the return service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:       cfg.Repo,
		builder:    NewBuilder(cfg.Sales, cfg.Repo),
		sales:      cfg.Sales,
		inventory:  cfg.Inventory,
		accounting: cfg.Accounting,
		numerator:  cfg.Numerator,
		txManager:  cfg.TxManager,
		audit:      cfg.Audit,
	}
}

// AdjustmentInput carries header adjustments for create/update.
type AdjustmentInput struct {
	Discount         types.MinorUnits
	RestockingFee    types.MinorUnits
	ManualAdjustment types.MinorUnits
}

// DraftSpec is the full draft content for create and update operations.
type DraftSpec struct {
	Header      DraftHeader
	Lines       []LineInput
	Adjustments *AdjustmentInput
	Settlement  *SettlementChoice
}

// Result is the outcome of an irreversible lifecycle operation. Warnings
// carry side-effect failures that occurred after the document committed.
type Result struct {
	Document *SaleReturnDocument  `json:"document"`
	Warnings []*apperror.AppError `json:"warnings,omitempty"`
}

// CreateDraft builds, numbers and stores a new draft return.
func (s *Service) CreateDraft(ctx context.Context, spec DraftSpec) (*SaleReturnDocument, error) {
	doc, err := s.builder.StartDraft(ctx, spec.Header)
	if err != nil {
		return nil, err
	}

	for _, line := range spec.Lines {
		if err := s.builder.AddLine(ctx, doc, line); err != nil {
			return nil, err
		}
	}
	if spec.Adjustments != nil {
		if err := s.builder.SetAdjustments(doc, spec.Adjustments.Discount, spec.Adjustments.RestockingFee, spec.Adjustments.ManualAdjustment); err != nil {
			return nil, err
		}
	}
	if spec.Settlement != nil {
		if err := s.builder.SetSettlement(doc, *spec.Settlement); err != nil {
			return nil, err
		}
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SR"), nil, doc.Date)
	if err != nil {
		return nil, err
	}
	doc.Number = number

	if err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, doc)
	}); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, doc, "create")
	logger.Info(ctx, "sale return draft created",
		"document_id", doc.ID.String(),
		"number", doc.Number,
		"standalone", doc.IsStandalone(),
		"lines", len(doc.Lines),
	)
	return doc, nil
}

// GetByID retrieves one return with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*SaleReturnDocument, error) {
	return s.repo.GetByID(ctx, docID)
}

// GetByNumber retrieves one return by its document number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*SaleReturnDocument, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns a filtered page of returns.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SaleReturnDocument], error) {
	return s.repo.List(ctx, filter)
}

// UpdateDraft replaces a draft's content with the given spec. The document
// identity (id, number, creation audit) survives; lines, adjustments and
// settlement are rebuilt from scratch so every quantity check runs against
// the current ledger state.
func (s *Service) UpdateDraft(ctx context.Context, docID id.ID, spec DraftSpec) (*SaleReturnDocument, error) {
	var updated *SaleReturnDocument

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.CanModify(); err != nil {
			return err
		}

		fresh, err := s.builder.StartDraft(ctx, spec.Header)
		if err != nil {
			return err
		}

		// Carry identity over; everything else comes from the spec.
		fresh.BaseDocument = doc.BaseDocument
		fresh.Number = doc.Number
		fresh.Status = doc.Status

		for _, line := range spec.Lines {
			if err := s.builder.AddLine(ctx, fresh, line); err != nil {
				return err
			}
		}
		if spec.Adjustments != nil {
			if err := s.builder.SetAdjustments(fresh, spec.Adjustments.Discount, spec.Adjustments.RestockingFee, spec.Adjustments.ManualAdjustment); err != nil {
				return err
			}
		}
		if spec.Settlement != nil {
			if err := s.builder.SetSettlement(fresh, *spec.Settlement); err != nil {
				return err
			}
		}

		if err := fresh.Validate(ctx); err != nil {
			return err
		}

		fresh.Touch()
		if err := s.repo.Update(ctx, fresh); err != nil {
			return err
		}

		updated = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, updated, "update")
	logger.Info(ctx, "sale return draft updated",
		"document_id", updated.ID.String(),
		"number", updated.Number,
	)
	return updated, nil
}

// DeleteDraft soft-deletes a draft. Finalized returns cannot be deleted;
// they void instead.
func (s *Service) DeleteDraft(ctx context.Context, docID id.ID) error {
	var doc *SaleReturnDocument

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := EnsureCanDelete(d); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, d.ID); err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, doc, "delete")
	logger.Info(ctx, "sale return draft deleted",
		"document_id", doc.ID.String(),
		"number", doc.Number,
	)
	return nil
}

// Finalize commits the draft -> final transition and then applies the
// stock and accounting side effects.
//
// Inside one transaction: the document row is locked, an advisory lock on
// the original sale serializes concurrent finalizations against the same
// sale, guards and quantity reconciliation re-run against current state,
// and the status flips to Final. Once that commits, the operation has
// succeeded. Side effects run after commit; each failure is logged and
// attached as a warning, never undone.
func (s *Service) Finalize(ctx context.Context, docID id.ID) (*Result, error) {
	var doc *SaleReturnDocument

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}

		if err := EnsureCanFinalize(d); err != nil {
			return err
		}

		if !d.IsStandalone() {
			if err := s.repo.LockOriginalSale(ctx, *d.OriginalSaleID); err != nil {
				return err
			}

			sale, err := s.sales.GetSale(ctx, *d.OriginalSaleID)
			if err != nil {
				return err
			}
			others, err := s.repo.ListActiveBySale(ctx, *d.OriginalSaleID, &d.ID)
			if err != nil {
				return err
			}
			rec, err := Reconcile(sale.Lines, others)
			if err != nil {
				return err
			}
			if err := rec.EnsureAccommodates(d.Lines); err != nil {
				return err
			}
		}

		if err := MarkFinal(d, time.Now().UTC()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}

		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Document: doc}
	s.applyFinalizeEffects(ctx, doc, result)

	s.recordAudit(ctx, doc, "finalize")
	logger.Info(ctx, "sale return finalized",
		"document_id", doc.ID.String(),
		"number", doc.Number,
		"adjusted_total", int64(doc.AdjustedTotal),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

func (s *Service) applyFinalizeEffects(ctx context.Context, doc *SaleReturnDocument, result *Result) {
	movements := doc.GenerateStockMovements(entity.ActionFinalize)
	if err := s.inventory.ReverseStockOut(ctx, movements); err != nil {
		result.Warnings = append(result.Warnings, apperror.NewSideEffectFailure("inventory", err))
		logger.Error(ctx, "stock reversal failed after finalize commit",
			"document_id", doc.ID.String(),
			"error", err,
		)
	}

	plan, err := RouteSettlement(ctx, doc, s.accounting)
	if err == nil {
		entry := accounting.NewEntry(
			plan.DebitAccountID,
			plan.CreditAccountID,
			plan.Amount,
			plan.Description,
			doc.DocumentType(),
			doc.ID.String(),
		)
		entry.Metadata = plan.Metadata
		err = s.accounting.CreateEntry(ctx, entry)
	}
	if err != nil {
		result.Warnings = append(result.Warnings, apperror.NewSideEffectFailure("accounting", err))
		logger.Error(ctx, "settlement entry failed after finalize commit",
			"document_id", doc.ID.String(),
			"error", err,
		)
	}
}

// Void commits the final -> void transition and reapplies the stock-out.
//
// Voiding releases the document's returnable-quantity holdings (void
// returns are excluded from reconciliation) and removes the returned
// quantity from the shelf again. No compensating accounting entry is
// written: downstream consumers read settlement entries together with
// document status.
func (s *Service) Void(ctx context.Context, docID id.ID) (*Result, error) {
	var doc *SaleReturnDocument

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := MarkVoid(d, time.Now().UTC()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Document: doc}
	movements := doc.GenerateStockMovements(entity.ActionVoid)
	if err := s.inventory.ReapplyStockOut(ctx, movements); err != nil {
		result.Warnings = append(result.Warnings, apperror.NewSideEffectFailure("inventory", err))
		logger.Error(ctx, "stock reapply failed after void commit",
			"document_id", doc.ID.String(),
			"error", err,
		)
	}

	s.recordAudit(ctx, doc, "void")
	logger.Info(ctx, "sale return voided",
		"document_id", doc.ID.String(),
		"number", doc.Number,
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// ReturnableForSale computes the current per-line returnable remainders
// for an original sale, for pre-filling return drafts in the UI.
func (s *Service) ReturnableForSale(ctx context.Context, saleID id.ID) ([]LineUsage, error) {
	sale, err := s.sales.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	returns, err := s.repo.ListActiveBySale(ctx, saleID, nil)
	if err != nil {
		return nil, err
	}
	rec, err := Reconcile(sale.Lines, returns)
	if err != nil {
		return nil, err
	}
	return rec.Usages(), nil
}

func (s *Service) recordAudit(ctx context.Context, doc *SaleReturnDocument, action string) {
	if s.audit == nil || doc == nil {
		return
	}
	if err := s.audit.Record(ctx, doc.DocumentType(), doc.ID, action, doc); err != nil {
		logger.Warn(ctx, "audit record failed",
			"document_id", doc.ID.String(),
			"action", action,
			"error", err,
		)
	}
}
