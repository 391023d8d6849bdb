package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"procurement-service/internal/cache"
	"procurement-service/internal/models"
	"procurement-service/internal/repository"
)

var (
	ErrRuleNotFound     = errors.New("approval rule not found")
	ErrInvalidBand      = errors.New("invalid amount band")
	ErrOverlappingBand  = errors.New("amount band overlaps an existing active rule for this category")
	ErrEmptyApproverSet = errors.New("a rule requires at least one approver step")
	ErrBadApproverOrder = errors.New("approver sequence must be contiguous starting at 1")
)

// RuleService manages the tenant approval matrix
type RuleService struct {
	ruleRepo  repository.RuleRepositoryInterface
	roleRepo  repository.RoleRepositoryInterface
	ruleCache *cache.RuleCache
	logger    *logrus.Entry
}

// NewRuleService creates a new RuleService
func NewRuleService(ruleRepo repository.RuleRepositoryInterface, roleRepo repository.RoleRepositoryInterface, ruleCache *cache.RuleCache, logger *logrus.Logger) *RuleService {
	if logger == nil {
		logger = logrus.New()
	}
	return &RuleService{
		ruleRepo:  ruleRepo,
		roleRepo:  roleRepo,
		ruleCache: ruleCache,
		logger:    logger.WithField("component", "rule-service"),
	}
}

// RuleApproverInput is one approver step in a create/update payload
type RuleApproverInput struct {
	ApprovalRoleID uuid.UUID `json:"approvalRoleId" binding:"required"`
	SequenceOrder  int       `json:"sequenceOrder" binding:"required"`
	IsMandatory    *bool     `json:"isMandatory,omitempty"`
	CanDelegate    bool      `json:"canDelegate"`
}

// CreateRuleInput is the payload for creating a matrix rule
type CreateRuleInput struct {
	Category         string              `json:"category" binding:"required"`
	NameEn           string              `json:"nameEn" binding:"required"`
	NameAr           string              `json:"nameAr"`
	MinAmount        float64             `json:"minAmount"`
	MaxAmount        *float64            `json:"maxAmount"`
	AutoApproveBelow *float64            `json:"autoApproveBelow"`
	Approvers        []RuleApproverInput `json:"approvers" binding:"required"`
}

// UpdateRuleInput is the payload for updating a matrix rule. Nil fields
// keep their current values; a non-nil Approvers slice replaces the path.
type UpdateRuleInput struct {
	NameEn           *string             `json:"nameEn"`
	NameAr           *string             `json:"nameAr"`
	MinAmount        *float64            `json:"minAmount"`
	MaxAmount        *float64            `json:"maxAmount"`
	ClearMaxAmount   bool                `json:"clearMaxAmount"`
	AutoApproveBelow *float64            `json:"autoApproveBelow"`
	IsActive         *bool               `json:"isActive"`
	Approvers        []RuleApproverInput `json:"approvers"`
}

// CreateRule validates and creates a matrix rule with its approver path
func (s *RuleService) CreateRule(ctx context.Context, tenantID string, input CreateRuleInput) (*models.ApprovalRule, error) {
	category, err := models.ParseDocumentCategory(input.Category)
	if err != nil {
		return nil, ErrInvalidCategory
	}

	rule := &models.ApprovalRule{
		TenantID:         tenantID,
		Category:         category,
		NameEn:           input.NameEn,
		NameAr:           input.NameAr,
		MinAmount:        input.MinAmount,
		MaxAmount:        input.MaxAmount,
		AutoApproveBelow: input.AutoApproveBelow,
		Version:          1,
		IsActive:         true,
	}

	if err := s.validateBand(rule); err != nil {
		return nil, err
	}

	approvers, err := s.buildApprovers(ctx, input.Approvers)
	if err != nil {
		return nil, err
	}
	rule.Approvers = approvers

	if err := s.checkOverlap(ctx, rule); err != nil {
		return nil, err
	}

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	s.invalidateCache(ctx, tenantID, category)

	s.logger.WithFields(logrus.Fields{
		"tenantId": tenantID,
		"ruleId":   rule.ID,
		"category": category,
	}).Info("Approval rule created")

	return rule, nil
}

// GetRule retrieves a rule with its approver path
func (s *RuleService) GetRule(ctx context.Context, tenantID string, id uuid.UUID) (*models.ApprovalRule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	if rule.TenantID != tenantID {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

// ListRules retrieves the matrix, optionally filtered by category
func (s *RuleService) ListRules(ctx context.Context, tenantID string, categoryFilter string, activeOnly bool) ([]models.ApprovalRule, error) {
	var category *models.DocumentCategory
	if categoryFilter != "" {
		c, err := models.ParseDocumentCategory(categoryFilter)
		if err != nil {
			return nil, ErrInvalidCategory
		}
		category = &c
	}
	return s.ruleRepo.List(ctx, tenantID, category, activeOnly)
}

// UpdateRule applies a partial update, bumping the rule version. In-flight
// workflows keep the action path copied at instantiation time.
func (s *RuleService) UpdateRule(ctx context.Context, tenantID string, id uuid.UUID, input UpdateRuleInput) (*models.ApprovalRule, error) {
	rule, err := s.GetRule(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if input.NameEn != nil {
		rule.NameEn = *input.NameEn
	}
	if input.NameAr != nil {
		rule.NameAr = *input.NameAr
	}
	if input.MinAmount != nil {
		rule.MinAmount = *input.MinAmount
	}
	if input.ClearMaxAmount {
		rule.MaxAmount = nil
	} else if input.MaxAmount != nil {
		rule.MaxAmount = input.MaxAmount
	}
	if input.AutoApproveBelow != nil {
		rule.AutoApproveBelow = input.AutoApproveBelow
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}

	if err := s.validateBand(rule); err != nil {
		return nil, err
	}
	if rule.IsActive {
		if err := s.checkOverlap(ctx, rule); err != nil {
			return nil, err
		}
	}

	rule.Version++
	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	if input.Approvers != nil {
		approvers, err := s.buildApprovers(ctx, input.Approvers)
		if err != nil {
			return nil, err
		}
		if err := s.ruleRepo.ReplaceApprovers(ctx, rule.ID, approvers); err != nil {
			return nil, fmt.Errorf("failed to replace approvers: %w", err)
		}
		rule.Approvers = approvers
	}

	s.invalidateCache(ctx, tenantID, rule.Category)

	s.logger.WithFields(logrus.Fields{
		"tenantId": tenantID,
		"ruleId":   rule.ID,
		"version":  rule.Version,
	}).Info("Approval rule updated")

	return rule, nil
}

// DeactivateRule soft-disables a rule so new workflows no longer match it
func (s *RuleService) DeactivateRule(ctx context.Context, tenantID string, id uuid.UUID) error {
	rule, err := s.GetRule(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if err := s.ruleRepo.Deactivate(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRuleNotFound
		}
		return err
	}

	s.invalidateCache(ctx, tenantID, rule.Category)
	return nil
}

// validateBand checks amount band and threshold sanity
func (s *RuleService) validateBand(rule *models.ApprovalRule) error {
	if rule.MinAmount < 0 {
		return fmt.Errorf("%w: min amount must not be negative", ErrInvalidBand)
	}
	if rule.MaxAmount != nil && *rule.MaxAmount <= rule.MinAmount {
		return fmt.Errorf("%w: max amount must exceed min amount", ErrInvalidBand)
	}
	if rule.AutoApproveBelow != nil {
		if *rule.AutoApproveBelow <= rule.MinAmount {
			return fmt.Errorf("%w: auto-approve threshold must exceed min amount", ErrInvalidBand)
		}
		if rule.MaxAmount != nil && *rule.AutoApproveBelow > *rule.MaxAmount {
			return fmt.Errorf("%w: auto-approve threshold must not exceed max amount", ErrInvalidBand)
		}
	}
	return nil
}

// checkOverlap rejects the rule when its band intersects another active
// rule of the same category
func (s *RuleService) checkOverlap(ctx context.Context, rule *models.ApprovalRule) error {
	overlapping, err := s.ruleRepo.FindOverlapping(ctx, rule)
	if err != nil {
		return fmt.Errorf("failed to check band overlap: %w", err)
	}
	if len(overlapping) > 0 {
		return fmt.Errorf("%w: conflicts with rule %s", ErrOverlappingBand, overlapping[0].ID)
	}
	return nil
}

// buildApprovers validates the ordered approver path and resolves its roles
func (s *RuleService) buildApprovers(ctx context.Context, inputs []RuleApproverInput) ([]models.RuleApprover, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyApproverSet
	}

	seen := make(map[int]bool, len(inputs))
	approvers := make([]models.RuleApprover, 0, len(inputs))
	for _, in := range inputs {
		if in.SequenceOrder < 1 || in.SequenceOrder > len(inputs) || seen[in.SequenceOrder] {
			return nil, ErrBadApproverOrder
		}
		seen[in.SequenceOrder] = true

		role, err := s.roleRepo.GetByID(ctx, in.ApprovalRoleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("approval role %s not found", in.ApprovalRoleID)
			}
			return nil, err
		}
		if !role.IsActive {
			return nil, fmt.Errorf("approval role %s is inactive", role.Code)
		}

		mandatory := true
		if in.IsMandatory != nil {
			mandatory = *in.IsMandatory
		}
		approvers = append(approvers, models.RuleApprover{
			ApprovalRoleID: in.ApprovalRoleID,
			SequenceOrder:  in.SequenceOrder,
			IsMandatory:    mandatory,
			CanDelegate:    in.CanDelegate,
		})
	}

	return approvers, nil
}

func (s *RuleService) invalidateCache(ctx context.Context, tenantID string, category models.DocumentCategory) {
	if s.ruleCache == nil {
		return
	}
	if err := s.ruleCache.Invalidate(ctx, tenantID, category); err != nil {
		s.logger.WithError(err).Warn("Rule cache invalidation failed")
	}
}
