package salesreturn

import (
	"time"

	"reverso/internal/core/apperror"
)

// The lifecycle is deliberately small:
//
//	draft -> final -> void
//	draft -> (deleted)
//
// Everything else is rejected. Voiding a draft, re-finalizing a void,
// deleting a final - all illegal.

// EnsureCanFinalize checks the finalization guard conditions that need no
// storage access: draft status, at least one positive-quantity line, and a
// complete settlement choice. Quantity reconciliation is the orchestrator's
// job because it needs the repository.
func EnsureCanFinalize(d *SaleReturnDocument) error {
	if d.Status != StatusDraft {
		return apperror.NewInvalidTransition(string(d.Status), string(StatusFinal))
	}

	if len(d.Lines) == 0 {
		return apperror.NewValidation("cannot finalize a return without lines").
			WithDetail("field", "lines")
	}
	for i := range d.Lines {
		if !d.Lines[i].Quantity.IsPositive() {
			return apperror.NewValidation("cannot finalize with non-positive quantities").
				WithDetail("field", "lines").
				WithDetail("lineNo", d.Lines[i].LineNo)
		}
	}

	choice := d.Settlement()
	if choice == nil {
		return apperror.NewValidation("settlement choice is required for finalization").
			WithDetail("field", "settlementMethod")
	}
	if choice.Method.RequiresAccount() && choice.AccountID == nil {
		return apperror.NewMissingSettlementAccount(string(choice.Method))
	}

	return nil
}

// EnsureCanVoid checks that voiding is legal: only finalized returns void.
func EnsureCanVoid(d *SaleReturnDocument) error {
	if d.Status != StatusFinal {
		return apperror.NewInvalidTransition(string(d.Status), string(StatusVoid))
	}
	return nil
}

// EnsureCanDelete checks that deletion is legal: only drafts delete.
// Finalized documents void instead, keeping the audit trail.
func EnsureCanDelete(d *SaleReturnDocument) error {
	if d.Status != StatusDraft {
		return apperror.NewInvalidTransition(string(d.Status), "deleted")
	}
	return nil
}

// MarkFinal performs the draft -> final transition.
func MarkFinal(d *SaleReturnDocument, now time.Time) error {
	if err := EnsureCanFinalize(d); err != nil {
		return err
	}
	d.Status = StatusFinal
	d.FinalizedAt = &now
	d.Touch()
	return nil
}

// MarkVoid performs the final -> void transition.
func MarkVoid(d *SaleReturnDocument, now time.Time) error {
	if err := EnsureCanVoid(d); err != nil {
		return err
	}
	d.Status = StatusVoid
	d.VoidedAt = &now
	d.Touch()
	return nil
}
