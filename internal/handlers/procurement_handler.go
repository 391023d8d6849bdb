package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"procurement-service/internal/repository"
	"procurement-service/internal/services"
)

// ProcurementHandler handles HTTP requests for RFQs, quotes and
// purchase requests
type ProcurementHandler struct {
	vendorService *services.VendorService
}

// NewProcurementHandler creates a new ProcurementHandler
func NewProcurementHandler(vendorService *services.VendorService) *ProcurementHandler {
	return &ProcurementHandler{vendorService: vendorService}
}

// CreateRFQ creates an RFQ
// @Summary Create RFQ
// @Tags Procurement
// @Accept json
// @Produce json
// @Param request body services.CreateRFQInput true "Create RFQ"
// @Success 201 {object} models.RFQ
// @Router /api/v1/rfqs [post]
func (h *ProcurementHandler) CreateRFQ(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var input services.CreateRFQInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rfq, err := h.vendorService.CreateRFQ(c.Request.Context(), tenantID, input)
	if err != nil {
		c.JSON(procurementErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, rfq)
}

// GetRFQ retrieves an RFQ with its quotes
// @Summary Get RFQ
// @Tags Procurement
// @Produce json
// @Param id path string true "RFQ ID"
// @Success 200 {object} models.RFQ
// @Router /api/v1/rfqs/{id} [get]
func (h *ProcurementHandler) GetRFQ(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rfq id"})
		return
	}

	rfq, err := h.vendorService.GetRFQ(c.Request.Context(), tenantID, id)
	if err != nil {
		c.JSON(procurementErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rfq)
}

// ListRFQs lists RFQs
// @Summary List RFQs
// @Tags Procurement
// @Produce json
// @Param status query string false "Status filter (open, completed)"
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rfqs [get]
func (h *ProcurementHandler) ListRFQs(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	statusFilter := c.Query("status")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rfqs, total, err := h.vendorService.ListRFQs(c.Request.Context(), tenantID, statusFilter, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   rfqs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// SubmitQuote attaches a vendor quote to an RFQ
// @Summary Submit vendor quote
// @Tags Procurement
// @Accept json
// @Produce json
// @Param id path string true "RFQ ID"
// @Param request body services.SubmitQuoteInput true "Quote"
// @Success 201 {object} models.VendorQuote
// @Router /api/v1/rfqs/{id}/quotes [post]
func (h *ProcurementHandler) SubmitQuote(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rfq id"})
		return
	}

	var input services.SubmitQuoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quote, err := h.vendorService.SubmitQuote(c.Request.Context(), tenantID, id, input)
	if err != nil {
		c.JSON(procurementErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, quote)
}

// SelectVendor selects a vendor on an RFQ, creating a purchase request
// @Summary Select vendor on RFQ
// @Tags Procurement
// @Accept json
// @Produce json
// @Param id path string true "RFQ ID"
// @Param request body services.SelectVendorInput true "Selection"
// @Success 201 {object} models.PurchaseRequest
// @Router /api/v1/rfqs/{id}/select-vendor [post]
func (h *ProcurementHandler) SelectVendor(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rfq id"})
		return
	}

	selectedBy, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	var input services.SelectVendorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pr, err := h.vendorService.SelectVendor(c.Request.Context(), tenantID, id, selectedBy, input)
	if err != nil {
		c.JSON(procurementErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, pr)
}

// GetPurchaseRequest retrieves a purchase request
// @Summary Get purchase request
// @Tags Procurement
// @Produce json
// @Param id path string true "Purchase Request ID"
// @Success 200 {object} models.PurchaseRequest
// @Router /api/v1/purchase-requests/{id} [get]
func (h *ProcurementHandler) GetPurchaseRequest(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase request id"})
		return
	}

	pr, err := h.vendorService.GetPurchaseRequest(c.Request.Context(), tenantID, id)
	if err != nil {
		c.JSON(procurementErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, pr)
}

// SubmitPurchaseRequest moves a draft purchase request to submitted
// @Summary Submit purchase request
// @Tags Procurement
// @Produce json
// @Param id path string true "Purchase Request ID"
// @Success 200 {object} models.PurchaseRequest
// @Router /api/v1/purchase-requests/{id}/submit [post]
func (h *ProcurementHandler) SubmitPurchaseRequest(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase request id"})
		return
	}

	pr, err := h.vendorService.SubmitPurchaseRequest(c.Request.Context(), tenantID, id)
	if err != nil {
		c.JSON(procurementErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, pr)
}

// procurementErrorStatus maps procurement errors to HTTP status codes
func procurementErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrRFQNotFound),
		errors.Is(err, services.ErrQuoteNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrRFQNotOpen),
		errors.Is(err, repository.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrJustificationRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
