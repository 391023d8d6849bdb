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

// WorkflowHandler handles HTTP requests for approval workflows
type WorkflowHandler struct {
	workflowService *services.WorkflowService
}

// NewWorkflowHandler creates a new WorkflowHandler
func NewWorkflowHandler(workflowService *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService}
}

// StartWorkflow starts an approval workflow for a document
// @Summary Start approval workflow
// @Tags Workflows
// @Accept json
// @Produce json
// @Param request body services.StartWorkflowInput true "Start Workflow"
// @Success 201 {object} models.ApprovalWorkflow
// @Router /api/v1/workflows [post]
func (h *WorkflowHandler) StartWorkflow(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var input services.StartWorkflowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	workflow, err := h.workflowService.StartWorkflow(c.Request.Context(), tenantID, input)
	if err != nil {
		c.JSON(workflowErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, workflow)
}

// GetWorkflow retrieves a workflow with its actions
// @Summary Get approval workflow
// @Tags Workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} models.ApprovalWorkflow
// @Router /api/v1/workflows/{id} [get]
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
		return
	}

	workflow, err := h.workflowService.GetWorkflow(c.Request.Context(), tenantID, id)
	if err != nil {
		c.JSON(workflowErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, workflow)
}

// ListWorkflows lists workflows with an optional status filter
// @Summary List approval workflows
// @Tags Workflows
// @Produce json
// @Param status query string false "Status filter (pending, approved, rejected, escalated, auto_approved)"
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/workflows [get]
func (h *WorkflowHandler) ListWorkflows(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	statusFilter := c.Query("status")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	workflows, total, err := h.workflowService.ListWorkflows(c.Request.Context(), tenantID, statusFilter, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   workflows,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ListMyWorkflows lists the workflows the authenticated user submitted
// @Summary List my approval workflows
// @Tags Workflows
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/workflows/my-requests [get]
func (h *WorkflowHandler) ListMyWorkflows(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	requesterID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	workflows, total, err := h.workflowService.ListMyWorkflows(c.Request.Context(), tenantID, requesterID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   workflows,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ApproveAction approves the workflow's current step
// @Summary Approve current workflow step
// @Tags Workflows
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param request body services.ActionInput true "Approval"
// @Success 200 {object} models.ApprovalWorkflow
// @Router /api/v1/workflows/{id}/approve [post]
func (h *WorkflowHandler) ApproveAction(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	workflowID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
		return
	}

	approverID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	var input services.ActionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	workflow, err := h.workflowService.ApproveAction(c.Request.Context(), tenantID, workflowID, approverID, input)
	if err != nil {
		c.JSON(workflowErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, workflow)
}

// RejectAction rejects the workflow's current step
// @Summary Reject current workflow step
// @Tags Workflows
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param request body services.ActionInput true "Rejection"
// @Success 200 {object} models.ApprovalWorkflow
// @Router /api/v1/workflows/{id}/reject [post]
func (h *WorkflowHandler) RejectAction(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	workflowID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
		return
	}

	approverID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	var input services.ActionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	workflow, err := h.workflowService.RejectAction(c.Request.Context(), tenantID, workflowID, approverID, input)
	if err != nil {
		c.JSON(workflowErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, workflow)
}

// GetHistory retrieves a workflow's audit trail
// @Summary Get workflow audit history
// @Tags Workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/workflows/{id}/history [get]
func (h *WorkflowHandler) GetHistory(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
		return
	}

	history, err := h.workflowService.GetHistory(c.Request.Context(), tenantID, id)
	if err != nil {
		c.JSON(workflowErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history, "total": len(history)})
}

// workflowErrorStatus maps workflow service errors to HTTP status codes
func workflowErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrWorkflowNotFound),
		errors.Is(err, services.ErrNoRuleMatched):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnauthorizedApprover),
		errors.Is(err, services.ErrSelfApprovalNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, services.ErrWorkflowAlreadyDecided),
		errors.Is(err, services.ErrActionNotCurrent),
		errors.Is(err, services.ErrDuplicateWorkflow),
		errors.Is(err, repository.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrCommentRequired),
		errors.Is(err, services.ErrInvalidCategory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
