package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"reverso/internal/core/apperror"
	"reverso/internal/core/id"
	"reverso/internal/domain"
	"reverso/internal/domain/salesreturn"
	"reverso/internal/infrastructure/http/v1/dto"
	"reverso/internal/infrastructure/storage/postgres"
)

// SaleReturnHandler handles HTTP requests for SaleReturn documents.
type SaleReturnHandler struct {
	*BaseHandler
	service *salesreturn.Service
	audit   *postgres.AuditService
}

// NewSaleReturnHandler creates a new sale return handler.
func NewSaleReturnHandler(base *BaseHandler, service *salesreturn.Service, audit *postgres.AuditService) *SaleReturnHandler {
	return &SaleReturnHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// Create handles POST /returns: a new draft.
func (h *SaleReturnHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SaleReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	spec, err := req.ToSpec()
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.CreateDraft(ctx, spec)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromSaleReturn(doc))
}

// Get handles GET /returns/:id.
func (h *SaleReturnHandler) Get(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromSaleReturn(doc))
}

// GetByNumber handles GET /returns/by-number/:number.
func (h *SaleReturnHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.Error(c, apperror.NewValidation("number is required"))
		return
	}

	doc, err := h.service.GetByNumber(c.Request.Context(), number)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromSaleReturn(doc))
}

// List handles GET /returns with filters.
func (h *SaleReturnHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := salesreturn.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "date DESC")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if status := c.Query("status"); status != "" {
		val := salesreturn.Status(status)
		filter.Status = &val
	}

	if saleID := c.Query("originalSaleId"); saleID != "" {
		if parsed, err := id.Parse(saleID); err == nil {
			filter.OriginalSaleID = &parsed
		}
	}

	if customerID := c.Query("customerId"); customerID != "" {
		if parsed, err := id.Parse(customerID); err == nil {
			filter.CustomerID = &parsed
		}
	}

	if branchID := c.Query("branchId"); branchID != "" {
		filter.BranchID = &branchID
	}

	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}

	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.SaleReturnResponse, len(result.Items))
	for i, doc := range result.Items {
		items[i] = dto.FromSaleReturn(doc)
	}

	c.JSON(http.StatusOK, dto.SaleReturnListResponse{
		Items:      items,
		TotalCount: int(result.TotalCount),
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Update handles PUT /returns/:id: full draft replacement.
func (h *SaleReturnHandler) Update(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.SaleReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	spec, err := req.ToSpec()
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.UpdateDraft(c.Request.Context(), docID, spec)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSaleReturn(doc))
}

// Delete handles DELETE /returns/:id: soft delete, drafts only.
func (h *SaleReturnHandler) Delete(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteDraft(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Finalize handles POST /returns/:id/finalize.
//
// The response is 200 even when side effects failed: the document commit is
// the authoritative act, and failures downstream of it arrive as warnings.
func (h *SaleReturnHandler) Finalize(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.service.Finalize(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLifecycleResult(result))
}

// Void handles POST /returns/:id/void.
func (h *SaleReturnHandler) Void(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.service.Void(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLifecycleResult(result))
}

// History handles GET /returns/:id/history: the audit trail for one return.
func (h *SaleReturnHandler) History(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	entries, err := h.audit.EntityHistory(c.Request.Context(), "SaleReturn", docID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// Returnable handles GET /sales/:id/returnable: per-line returnable
// remainders for an original sale, for pre-filling return drafts.
func (h *SaleReturnHandler) Returnable(c *gin.Context) {
	saleID, ok := h.parseID(c)
	if !ok {
		return
	}

	usages, err := h.service.ReturnableForSale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromLineUsages(saleID, usages))
}

func (h *SaleReturnHandler) parseID(c *gin.Context) (id.ID, bool) {
	parsed, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return id.Nil(), false
	}
	return parsed, true
}

// RegisterRoutes registers sale return routes.
func (h *SaleReturnHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/by-number/:number", h.GetByNumber)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/finalize", h.Finalize)
	rg.POST("/:id/void", h.Void)
	rg.GET("/:id/history", h.History)
}
