package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/domain/inventory"
	"reverso/internal/infrastructure/http/v1/dto"
)

// StockHandler handles read-only HTTP requests for the stock register.
type StockHandler struct {
	*BaseHandler
	service *inventory.Service
	repo    inventory.Repository
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *inventory.Service, repo inventory.Repository) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service, repo: repo}
}

// GetBalances handles GET /stock/balances.
func (h *StockHandler) GetBalances(c *gin.Context) {
	filter := inventory.BalanceFilter{}

	if branchID := c.Query("branchId"); branchID != "" {
		filter.BranchID = &branchID
	}
	if productID := c.Query("productId"); productID != "" {
		parsed, err := id.Parse(productID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid id format").
				WithDetail("field", "productId"))
			return
		}
		filter.ProductID = &parsed
	}

	balances, err := h.repo.ListBalances(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.StockBalanceResponse, len(balances))
	for i, b := range balances {
		items[i] = dto.FromStockBalance(b)
	}
	c.JSON(http.StatusOK, dto.StockBalanceListResponse{Items: items})
}

// GetMovements handles GET /stock/movements?recorderId=...: the movement
// trail of one document.
func (h *StockHandler) GetMovements(c *gin.Context) {
	recorderID, err := id.Parse(c.Query("recorderId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").
			WithDetail("field", "recorderId"))
		return
	}

	movements, err := h.service.MovementsByRecorder(c.Request.Context(), recorderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.StockMovementResponse, len(movements))
	for i, m := range movements {
		items[i] = dto.FromStockMovement(m)
	}
	c.JSON(http.StatusOK, dto.StockMovementListResponse{Items: items})
}

// GetProductAvailability handles GET /stock/availability/:productId.
func (h *StockHandler) GetProductAvailability(c *gin.Context) {
	productID, err := id.Parse(c.Param("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").
			WithDetail("field", "productId"))
		return
	}

	quantity, err := h.service.ProductAvailability(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ProductAvailabilityResponse{
		ProductID: productID.String(),
		Quantity:  quantity.Float64(),
	})
}

// RegisterRoutes registers stock register routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/balances", h.GetBalances)
	rg.GET("/movements", h.GetMovements)
	rg.GET("/availability/:productId", h.GetProductAvailability)
}
