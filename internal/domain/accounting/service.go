package accounting

import (
	"context"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/core/types"
	"reverso/pkg/logger"
)

// Service implements the accounting operations the settlement router needs.
type Service struct {
	repo Repository
}

// NewService creates an accounting service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateAccount validates and stores a new settlement account.
func (s *Service) CreateAccount(ctx context.Context, account *Account) error {
	if err := account.Validate(ctx); err != nil {
		return err
	}

	existing, err := s.repo.GetAccountByCode(ctx, account.Code)
	if err != nil && !apperror.IsNotFound(err) {
		return err
	}
	if existing != nil {
		return apperror.NewDuplicate("account", "code", account.Code)
	}

	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return err
	}

	logger.Info(ctx, "account created",
		"account_id", account.ID.String(),
		"code", account.Code,
		"type", string(account.Type),
	)
	return nil
}

// GetAccountByID retrieves one account.
func (s *Service) GetAccountByID(ctx context.Context, accountID id.ID) (*Account, error) {
	return s.repo.GetAccountByID(ctx, accountID)
}

// ResolveSettlementAccounts returns the active accounts of the given type
// for a branch, pre-filtered for settlement choice pickers and for
// customer-account routing.
func (s *Service) ResolveSettlementAccounts(ctx context.Context, accountType AccountType, branchID string) ([]Account, error) {
	return s.repo.ListAccounts(ctx, AccountFilter{
		Type:       &accountType,
		BranchID:   &branchID,
		OnlyActive: true,
	})
}

// SalesRevenueAccount returns the branch's Sales Revenue account, the debit
// side of every return settlement entry.
func (s *Service) SalesRevenueAccount(ctx context.Context, branchID string) (*Account, error) {
	accounts, err := s.ResolveSettlementAccounts(ctx, AccountTypeRevenue, branchID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, apperror.NewNotFound("sales revenue account", branchID)
	}
	return &accounts[0], nil
}

// CreateEntry validates and appends one ledger entry. Both referenced
// accounts must exist.
func (s *Service) CreateEntry(ctx context.Context, entry Entry) error {
	if err := entry.Validate(ctx); err != nil {
		return err
	}

	if _, err := s.repo.GetAccountByID(ctx, entry.DebitAccountID); err != nil {
		return err
	}
	if _, err := s.repo.GetAccountByID(ctx, entry.CreditAccountID); err != nil {
		return err
	}

	if err := s.repo.CreateEntry(ctx, &entry); err != nil {
		return err
	}

	logger.Info(ctx, "ledger entry created",
		"entry_id", entry.ID.String(),
		"debit", entry.DebitAccountID.String(),
		"credit", entry.CreditAccountID.String(),
		"amount", entry.Amount.String(),
		"source", entry.SourceType+"/"+entry.SourceRef,
	)
	return nil
}

// EntriesBySource returns entries created by one source document.
func (s *Service) EntriesBySource(ctx context.Context, sourceType, sourceRef string) ([]Entry, error) {
	return s.repo.EntriesBySource(ctx, sourceType, sourceRef)
}

// AccountNet returns total debits minus total credits for one account.
func (s *Service) AccountNet(ctx context.Context, accountID id.ID) (types.Money, error) {
	if _, err := s.repo.GetAccountByID(ctx, accountID); err != nil {
		return types.ZeroMoney(), err
	}
	return s.repo.AccountNet(ctx, accountID)
}
