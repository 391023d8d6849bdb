package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"procurement-service/internal/models"
	"procurement-service/internal/services"
)

// RoleRequestHandler handles HTTP requests for the two-stage role
// request approval
type RoleRequestHandler struct {
	service *services.RoleRequestService
}

// NewRoleRequestHandler creates a new RoleRequestHandler
func NewRoleRequestHandler(service *services.RoleRequestService) *RoleRequestHandler {
	return &RoleRequestHandler{service: service}
}

// CreateRequest creates a role request
// @Summary Request an application role
// @Tags RoleRequests
// @Accept json
// @Produce json
// @Param request body services.CreateRoleRequestInput true "Create Role Request"
// @Success 201 {object} models.RoleRequest
// @Router /api/v1/role-requests [post]
func (h *RoleRequestHandler) CreateRequest(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var input services.CreateRoleRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.service.CreateRequest(c.Request.Context(), tenantID, input)
	if err != nil {
		c.JSON(roleRequestErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, request)
}

// GetRequest retrieves a role request
// @Summary Get role request
// @Tags RoleRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.RoleRequest
// @Router /api/v1/role-requests/{id} [get]
func (h *RoleRequestHandler) GetRequest(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	request, err := h.service.GetRequest(c.Request.Context(), tenantID, id)
	if err != nil {
		c.JSON(roleRequestErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, request)
}

// ListRequests lists role requests
// @Summary List role requests
// @Tags RoleRequests
// @Produce json
// @Param status query string false "Status filter (pending, approved, rejected)"
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/role-requests [get]
func (h *RoleRequestHandler) ListRequests(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	statusFilter := c.Query("status")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	requests, total, err := h.service.ListRequests(c.Request.Context(), tenantID, statusFilter, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   requests,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ListMyRequests lists the role requests the authenticated user submitted
// @Summary List my role requests
// @Tags RoleRequests
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/role-requests/my-requests [get]
func (h *RoleRequestHandler) ListMyRequests(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	requests, err := h.service.ListMyRequests(c.Request.Context(), tenantID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": requests})
}

// LineManagerApprove records stage one sign-off
// @Summary Line manager approval (stage one)
// @Tags RoleRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body services.StageDecisionInput true "Decision"
// @Success 200 {object} models.RoleRequest
// @Router /api/v1/role-requests/{id}/manager-approve [post]
func (h *RoleRequestHandler) LineManagerApprove(c *gin.Context) {
	h.stageDecision(c, h.service.LineManagerApprove)
}

// LineManagerReject rejects at stage one
// @Summary Line manager rejection (stage one)
// @Tags RoleRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body services.StageDecisionInput true "Decision"
// @Success 200 {object} models.RoleRequest
// @Router /api/v1/role-requests/{id}/manager-reject [post]
func (h *RoleRequestHandler) LineManagerReject(c *gin.Context) {
	h.stageDecision(c, h.service.LineManagerReject)
}

// AdminApprove completes stage two and grants the role
// @Summary Admin approval (stage two)
// @Tags RoleRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body services.StageDecisionInput true "Decision"
// @Success 200 {object} models.RoleRequest
// @Router /api/v1/role-requests/{id}/admin-approve [post]
func (h *RoleRequestHandler) AdminApprove(c *gin.Context) {
	h.stageDecision(c, h.service.AdminApprove)
}

// AdminReject rejects at stage two
// @Summary Admin rejection (stage two)
// @Tags RoleRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body services.StageDecisionInput true "Decision"
// @Success 200 {object} models.RoleRequest
// @Router /api/v1/role-requests/{id}/admin-reject [post]
func (h *RoleRequestHandler) AdminReject(c *gin.Context) {
	h.stageDecision(c, h.service.AdminReject)
}

// stageDecision binds the shared path/body shape of the four stage
// decision endpoints and dispatches to the given service method
func (h *RoleRequestHandler) stageDecision(
	c *gin.Context,
	decide func(ctx context.Context, tenantID string, id, actorID uuid.UUID, input services.StageDecisionInput) (*models.RoleRequest, error),
) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	actorID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	var input services.StageDecisionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := decide(c.Request.Context(), tenantID, id, actorID, input)
	if err != nil {
		c.JSON(roleRequestErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, request)
}

// roleRequestErrorStatus maps role request errors to HTTP status codes
func roleRequestErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrRoleRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotLineManager),
		errors.Is(err, services.ErrSelfRequestApproval):
		return http.StatusForbidden
	case errors.Is(err, services.ErrRoleRequestDecided),
		errors.Is(err, services.ErrRoleRequestPending),
		errors.Is(err, services.ErrStageOneIncomplete),
		errors.Is(err, services.ErrStageOneDone):
		return http.StatusConflict
	case errors.Is(err, services.ErrCommentRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
