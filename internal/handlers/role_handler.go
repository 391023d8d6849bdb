package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"procurement-service/internal/services"
)

// RoleHandler handles HTTP requests for approval roles and approver
// capabilities
type RoleHandler struct {
	roleService *services.RoleService
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(roleService *services.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// CreateRole creates an approval role
// @Summary Create approval role
// @Tags Roles
// @Accept json
// @Produce json
// @Param request body services.CreateRoleInput true "Create Role"
// @Success 201 {object} models.ApprovalRole
// @Router /api/v1/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var input services.CreateRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(), tenantID, input)
	if err != nil {
		c.JSON(roleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, role)
}

// GetRole retrieves a role by ID
// @Summary Get approval role
// @Tags Roles
// @Produce json
// @Param id path string true "Role ID"
// @Success 200 {object} models.ApprovalRole
// @Router /api/v1/roles/{id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role id"})
		return
	}

	role, err := h.roleService.GetRole(c.Request.Context(), tenantID, id)
	if err != nil {
		c.JSON(roleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, role)
}

// ListRoles lists roles for the tenant
// @Summary List approval roles
// @Tags Roles
// @Produce json
// @Param active query bool false "Only active roles" default(false)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))

	roles, err := h.roleService.ListRoles(c.Request.Context(), tenantID, activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": roles, "total": len(roles)})
}

// UpdateRole applies a partial role update
// @Summary Update approval role
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param request body services.UpdateRoleInput true "Update Role"
// @Success 200 {object} models.ApprovalRole
// @Router /api/v1/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role id"})
		return
	}

	var input services.UpdateRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.roleService.UpdateRole(c.Request.Context(), tenantID, id, input)
	if err != nil {
		c.JSON(roleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, role)
}

// DeleteRole removes an unreferenced role
// @Summary Delete approval role
// @Tags Roles
// @Produce json
// @Param id path string true "Role ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role id"})
		return
	}

	if err := h.roleService.DeleteRole(c.Request.Context(), tenantID, id); err != nil {
		c.JSON(roleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Role deleted"})
}

// DeactivateRole soft-disables a role
// @Summary Deactivate approval role
// @Tags Roles
// @Produce json
// @Param id path string true "Role ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/roles/{id}/deactivate [post]
func (h *RoleHandler) DeactivateRole(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role id"})
		return
	}

	if err := h.roleService.DeactivateRole(c.Request.Context(), tenantID, id); err != nil {
		c.JSON(roleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Role deactivated"})
}

// AssignApprover grants a user an approver capability
// @Summary Assign approver capability
// @Tags Roles
// @Accept json
// @Produce json
// @Param request body services.AssignApproverInput true "Assign Approver"
// @Success 201 {object} models.UserApprover
// @Router /api/v1/approvers [post]
func (h *RoleHandler) AssignApprover(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var input services.AssignApproverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	approver, err := h.roleService.AssignApprover(c.Request.Context(), tenantID, input)
	if err != nil {
		c.JSON(roleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, approver)
}

// RevokeApprover disables an approver capability
// @Summary Revoke approver capability
// @Tags Roles
// @Produce json
// @Param id path string true "Approver ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/approvers/{id} [delete]
func (h *RoleHandler) RevokeApprover(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid approver id"})
		return
	}

	if err := h.roleService.RevokeApprover(c.Request.Context(), tenantID, id); err != nil {
		c.JSON(roleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Approver capability revoked"})
}

// ListUserApprovers lists a user's approver capabilities
// @Summary List a user's approver capabilities
// @Tags Roles
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/approvers/users/{userId} [get]
func (h *RoleHandler) ListUserApprovers(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	approvers, err := h.roleService.ListUserApprovers(c.Request.Context(), tenantID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": approvers, "total": len(approvers)})
}

// roleErrorStatus maps role service errors to HTTP status codes
func roleErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrRoleNotFound),
		errors.Is(err, services.ErrApproverNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrRoleCodeTaken),
		errors.Is(err, services.ErrRoleInUse):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidRoleCode),
		errors.Is(err, services.ErrInvalidHierarchy):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
