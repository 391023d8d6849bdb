package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procurement-service/internal/models"
)

// RuleRepositoryInterface defines database operations for approval rules
type RuleRepositoryInterface interface {
	Create(ctx context.Context, rule *models.ApprovalRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRule, error)
	List(ctx context.Context, tenantID string, category *models.DocumentCategory, activeOnly bool) ([]models.ApprovalRule, error)
	FindActiveRules(ctx context.Context, tenantID string, category models.DocumentCategory) ([]models.ApprovalRule, error)
	FindOverlapping(ctx context.Context, rule *models.ApprovalRule) ([]models.ApprovalRule, error)
	Update(ctx context.Context, rule *models.ApprovalRule) error
	ReplaceApprovers(ctx context.Context, ruleID uuid.UUID, approvers []models.RuleApprover) error
	Deactivate(ctx context.Context, tenantID string, id uuid.UUID) error
}

// RuleRepository handles database operations for the approval matrix
type RuleRepository struct {
	db *gorm.DB
}

// NewRuleRepository creates a new RuleRepository
func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Create creates a rule together with its approver list
func (r *RuleRepository) Create(ctx context.Context, rule *models.ApprovalRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

// GetByID retrieves a rule with its approvers ordered by sequence
func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRule, error) {
	var rule models.ApprovalRule
	err := r.db.WithContext(ctx).
		Preload("Approvers", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Preload("Approvers.ApprovalRole").
		Where("id = ?", id).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// List retrieves rules for a tenant, optionally filtered by category and active flag
func (r *RuleRepository) List(ctx context.Context, tenantID string, category *models.DocumentCategory, activeOnly bool) ([]models.ApprovalRule, error) {
	var rules []models.ApprovalRule

	query := r.db.WithContext(ctx).
		Preload("Approvers", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Where("tenant_id = ?", tenantID)

	if category != nil {
		query = query.Where("category = ?", *category)
	}
	if activeOnly {
		query = query.Where("is_active = true")
	}

	err := query.Order("category ASC, min_amount ASC").Find(&rules).Error
	return rules, err
}

// FindActiveRules retrieves active rules for a category, lowest band first.
// The order makes the matcher's tie-break deterministic when legacy
// overlapping rows exist.
func (r *RuleRepository) FindActiveRules(ctx context.Context, tenantID string, category models.DocumentCategory) ([]models.ApprovalRule, error) {
	var rules []models.ApprovalRule
	err := r.db.WithContext(ctx).
		Preload("Approvers", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Where("tenant_id = ? AND category = ? AND is_active = true", tenantID, category).
		Order("min_amount ASC").
		Find(&rules).Error
	return rules, err
}

// FindOverlapping returns active rules of the same tenant and category
// whose amount band intersects the given rule's band, excluding the
// rule itself.
func (r *RuleRepository) FindOverlapping(ctx context.Context, rule *models.ApprovalRule) ([]models.ApprovalRule, error) {
	var candidates []models.ApprovalRule
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND category = ? AND is_active = true AND id != ?",
			rule.TenantID, rule.Category, rule.ID).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	var overlapping []models.ApprovalRule
	for i := range candidates {
		if rule.Overlaps(&candidates[i]) {
			overlapping = append(overlapping, candidates[i])
		}
	}
	return overlapping, nil
}

// Update persists rule fields (band, names, thresholds, active flag, version)
func (r *RuleRepository) Update(ctx context.Context, rule *models.ApprovalRule) error {
	result := r.db.WithContext(ctx).
		Model(rule).
		Select("name_en", "name_ar", "min_amount", "max_amount", "auto_approve_below", "version", "is_active", "updated_at").
		Updates(rule)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceApprovers swaps a rule's ordered approver list atomically
func (r *RuleRepository) ReplaceApprovers(ctx context.Context, ruleID uuid.UUID, approvers []models.RuleApprover) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", ruleID).Delete(&models.RuleApprover{}).Error; err != nil {
			return err
		}
		for i := range approvers {
			approvers[i].RuleID = ruleID
		}
		if len(approvers) == 0 {
			return nil
		}
		return tx.Create(&approvers).Error
	})
}

// Deactivate soft-disables a rule
func (r *RuleRepository) Deactivate(ctx context.Context, tenantID string, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.ApprovalRule{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
