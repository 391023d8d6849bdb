package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"procurement-service/internal/models"
	"procurement-service/internal/services"
)

// RuleHandler handles HTTP requests for the approval matrix
type RuleHandler struct {
	ruleService    *services.RuleService
	matcherService *services.MatcherService
}

// NewRuleHandler creates a new RuleHandler
func NewRuleHandler(ruleService *services.RuleService, matcherService *services.MatcherService) *RuleHandler {
	return &RuleHandler{
		ruleService:    ruleService,
		matcherService: matcherService,
	}
}

// CreateRule creates an approval matrix rule
// @Summary Create approval rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param request body services.CreateRuleInput true "Create Rule"
// @Success 201 {object} models.ApprovalRule
// @Router /api/v1/rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var input services.CreateRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), tenantID, input)
	if err != nil {
		c.JSON(ruleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetRule retrieves a rule by ID
// @Summary Get approval rule
// @Tags Rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} models.ApprovalRule
// @Router /api/v1/rules/{id} [get]
func (h *RuleHandler) GetRule(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	rule, err := h.ruleService.GetRule(c.Request.Context(), tenantID, id)
	if err != nil {
		c.JSON(ruleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rule)
}

// ListRules lists matrix rules
// @Summary List approval rules
// @Tags Rules
// @Produce json
// @Param category query string false "Category filter"
// @Param active query bool false "Only active rules" default(false)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rules [get]
func (h *RuleHandler) ListRules(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	category := c.Query("category")
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))

	rules, err := h.ruleService.ListRules(c.Request.Context(), tenantID, category, activeOnly)
	if err != nil {
		c.JSON(ruleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rules, "total": len(rules)})
}

// UpdateRule applies a partial rule update
// @Summary Update approval rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param request body services.UpdateRuleInput true "Update Rule"
// @Success 200 {object} models.ApprovalRule
// @Router /api/v1/rules/{id} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var input services.UpdateRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), tenantID, id, input)
	if err != nil {
		c.JSON(ruleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeactivateRule soft-disables a rule
// @Summary Deactivate approval rule
// @Tags Rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/rules/{id} [delete]
func (h *RuleHandler) DeactivateRule(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	if err := h.ruleService.DeactivateRule(c.Request.Context(), tenantID, id); err != nil {
		c.JSON(ruleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Rule deactivated"})
}

// matchRequest is the payload for a dry-run matrix evaluation. Amount
// is not required so a zero amount can be evaluated.
type matchRequest struct {
	Category string  `json:"category" binding:"required"`
	Amount   float64 `json:"amount"`
}

// MatchRule evaluates the matrix without starting a workflow
// @Summary Preview which rule a document would match
// @Tags Rules
// @Accept json
// @Produce json
// @Param request body matchRequest true "Match Request"
// @Success 200 {object} services.MatchResult
// @Router /api/v1/rules/match [post]
func (h *RuleHandler) MatchRule(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := models.ParseDocumentCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.matcherService.MatchRule(c.Request.Context(), tenantID, category, req.Amount)
	if err != nil {
		c.JSON(ruleErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ruleErrorStatus maps rule service errors to HTTP status codes
func ruleErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrRuleNotFound),
		errors.Is(err, services.ErrNoRuleMatched):
		return http.StatusNotFound
	case errors.Is(err, services.ErrOverlappingBand):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrInvalidBand),
		errors.Is(err, services.ErrEmptyApproverSet),
		errors.Is(err, services.ErrBadApproverOrder):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
