package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"procurement-service/internal/services"
)

// DelegationHandler handles HTTP requests for approval delegations
type DelegationHandler struct {
	service *services.DelegationService
}

// NewDelegationHandler creates a new DelegationHandler
func NewDelegationHandler(service *services.DelegationService) *DelegationHandler {
	return &DelegationHandler{service: service}
}

// CreateDelegation creates a delegation from the current user
// @Summary Create delegation
// @Tags Delegations
// @Accept json
// @Produce json
// @Param request body services.CreateDelegationInput true "Create Delegation"
// @Success 201 {object} models.ApprovalDelegation
// @Router /api/v1/delegations [post]
func (h *DelegationHandler) CreateDelegation(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	delegatorID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	var input services.CreateDelegationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	delegation, err := h.service.CreateDelegation(c.Request.Context(), tenantID, delegatorID, input)
	if err != nil {
		c.JSON(delegationErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, delegation)
}

// GetDelegation retrieves a delegation by ID
// @Summary Get delegation
// @Tags Delegations
// @Produce json
// @Param id path string true "Delegation ID"
// @Success 200 {object} models.ApprovalDelegation
// @Router /api/v1/delegations/{id} [get]
func (h *DelegationHandler) GetDelegation(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delegation id"})
		return
	}

	delegation, err := h.service.GetDelegation(c.Request.Context(), tenantID, id)
	if err != nil {
		c.JSON(delegationErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, delegation)
}

// ListMyDelegations lists delegations created by the current user
// @Summary List delegations I created
// @Tags Delegations
// @Produce json
// @Param includeExpired query bool false "Include expired" default(false)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/delegations/created [get]
func (h *DelegationHandler) ListMyDelegations(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	includeExpired, _ := strconv.ParseBool(c.DefaultQuery("includeExpired", "false"))

	delegations, err := h.service.ListForDelegator(c.Request.Context(), tenantID, userID, includeExpired)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": delegations, "total": len(delegations)})
}

// ListDelegationsToMe lists delegations granted to the current user
// @Summary List delegations granted to me
// @Tags Delegations
// @Produce json
// @Param includeExpired query bool false "Include expired" default(false)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/delegations/received [get]
func (h *DelegationHandler) ListDelegationsToMe(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	includeExpired, _ := strconv.ParseBool(c.DefaultQuery("includeExpired", "false"))

	delegations, err := h.service.ListForDelegate(c.Request.Context(), tenantID, userID, includeExpired)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": delegations, "total": len(delegations)})
}

// revokeRequest is the payload for revoking a delegation
type revokeRequest struct {
	Reason string `json:"reason"`
}

// RevokeDelegation revokes a delegation early
// @Summary Revoke delegation
// @Tags Delegations
// @Accept json
// @Produce json
// @Param id path string true "Delegation ID"
// @Param request body revokeRequest false "Revoke reason"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/delegations/{id} [delete]
func (h *DelegationHandler) RevokeDelegation(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delegation id"})
		return
	}

	var req revokeRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.service.RevokeDelegation(c.Request.Context(), tenantID, id, userID, req.Reason); err != nil {
		c.JSON(delegationErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Delegation revoked"})
}

// delegationErrorStatus maps delegation errors to HTTP status codes
func delegationErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrDelegationNotFound),
		errors.Is(err, services.ErrRoleNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotDelegationOwner):
		return http.StatusForbidden
	case errors.Is(err, services.ErrDelegationOverlap):
		return http.StatusConflict
	case errors.Is(err, services.ErrSelfDelegation),
		errors.Is(err, services.ErrInvalidDelegationSpan):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
