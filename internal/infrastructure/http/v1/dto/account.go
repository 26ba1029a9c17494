package dto

import (
	"time"

	"reverso/internal/domain/accounting"
)

// --- Request DTOs ---

type CreateAccountRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Type     string `json:"type" binding:"required"`
	BranchID string `json:"branchId" binding:"required"`
}

func (r *CreateAccountRequest) ToEntity() *accounting.Account {
	return accounting.NewAccount(r.Code, r.Name, accounting.AccountType(r.Type), r.BranchID)
}

// --- Response DTOs ---

type AccountResponse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	BranchID string `json:"branchId"`
	Active   bool   `json:"active"`
}

func FromAccount(a *accounting.Account) *AccountResponse {
	return &AccountResponse{
		ID:       a.ID.String(),
		Code:     a.Code,
		Name:     a.Name,
		Type:     string(a.Type),
		BranchID: a.BranchID,
		Active:   a.Active,
	}
}

type AccountListResponse struct {
	Items []*AccountResponse `json:"items"`
}

type EntryResponse struct {
	ID              string    `json:"id"`
	DebitAccountID  string    `json:"debitAccountId"`
	CreditAccountID string    `json:"creditAccountId"`
	Amount          string    `json:"amount"`
	Description     string    `json:"description,omitempty"`
	SourceType      string    `json:"sourceType"`
	SourceRef       string    `json:"sourceRef"`
	CreatedAt       time.Time `json:"createdAt"`
}

func FromEntry(e accounting.Entry) EntryResponse {
	return EntryResponse{
		ID:              e.ID.String(),
		DebitAccountID:  e.DebitAccountID.String(),
		CreditAccountID: e.CreditAccountID.String(),
		Amount:          e.Amount.String(),
		Description:     e.Description,
		SourceType:      e.SourceType,
		SourceRef:       e.SourceRef,
		CreatedAt:       e.CreatedAt,
	}
}

type EntryListResponse struct {
	Items []EntryResponse `json:"items"`
}

type AccountNetResponse struct {
	AccountID string `json:"accountId"`
	Net       string `json:"net"`
}
