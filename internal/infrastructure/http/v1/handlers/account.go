package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/domain/accounting"
	"reverso/internal/infrastructure/http/v1/dto"
)

// AccountHandler handles HTTP requests for settlement accounts and the
// entry ledger.
type AccountHandler struct {
	*BaseHandler
	service *accounting.Service
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(base *BaseHandler, service *accounting.Service) *AccountHandler {
	return &AccountHandler{BaseHandler: base, service: service}
}

// Create handles POST /accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account := req.ToEntity()
	if err := h.service.CreateAccount(c.Request.Context(), account); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromAccount(account))
}

// Get handles GET /accounts/:id.
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	account, err := h.service.GetAccountByID(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromAccount(account))
}

// ListSettlement handles GET /accounts/settlement: active accounts of one
// type for a branch, for settlement choice pickers.
func (h *AccountHandler) ListSettlement(c *gin.Context) {
	accountType := accounting.AccountType(c.Query("type"))
	if !accountType.Known() {
		h.Error(c, apperror.NewValidation("unknown account type").
			WithDetail("field", "type"))
		return
	}
	branchID := c.Query("branchId")
	if branchID == "" {
		h.Error(c, apperror.NewValidation("branch is required").
			WithDetail("field", "branchId"))
		return
	}

	accounts, err := h.service.ResolveSettlementAccounts(c.Request.Context(), accountType, branchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.AccountResponse, len(accounts))
	for i := range accounts {
		items[i] = dto.FromAccount(&accounts[i])
	}
	c.JSON(http.StatusOK, dto.AccountListResponse{Items: items})
}

// Net handles GET /accounts/:id/net: total debits minus credits.
func (h *AccountHandler) Net(c *gin.Context) {
	accountID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	net, err := h.service.AccountNet(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AccountNetResponse{
		AccountID: accountID.String(),
		Net:       net.String(),
	})
}

// EntriesBySource handles GET /entries: ledger entries created by one
// source document.
func (h *AccountHandler) EntriesBySource(c *gin.Context) {
	sourceType := c.Query("sourceType")
	sourceRef := c.Query("sourceRef")
	if sourceType == "" || sourceRef == "" {
		h.Error(c, apperror.NewValidation("sourceType and sourceRef are required"))
		return
	}

	entries, err := h.service.EntriesBySource(c.Request.Context(), sourceType, sourceRef)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = dto.FromEntry(e)
	}
	c.JSON(http.StatusOK, dto.EntryListResponse{Items: items})
}

// RegisterRoutes registers accounting routes.
func (h *AccountHandler) RegisterRoutes(accounts, entries *gin.RouterGroup) {
	accounts.POST("", h.Create)
	accounts.GET("/settlement", h.ListSettlement)
	accounts.GET("/:id", h.Get)
	accounts.GET("/:id/net", h.Net)

	entries.GET("", h.EntriesBySource)
}
