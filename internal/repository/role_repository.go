package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procurement-service/internal/models"
)

// RoleRepositoryInterface defines database operations for approval roles
// and per-user approver capabilities
type RoleRepositoryInterface interface {
	Create(ctx context.Context, role *models.ApprovalRole) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRole, error)
	List(ctx context.Context, tenantID string, activeOnly bool) ([]models.ApprovalRole, error)
	Update(ctx context.Context, role *models.ApprovalRole) error
	IsReferencedByRule(ctx context.Context, roleID uuid.UUID) (bool, error)
	Deactivate(ctx context.Context, tenantID string, id uuid.UUID) error
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
	FindUserApprovers(ctx context.Context, tenantID string, userID uuid.UUID) ([]models.UserApprover, error)
	CreateUserApprover(ctx context.Context, approver *models.UserApprover) error
	RevokeUserApprover(ctx context.Context, tenantID string, id uuid.UUID) error
}

// RoleRepository handles database operations for approval roles
type RoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new RoleRepository
func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create creates an approval role
func (r *RoleRepository) Create(ctx context.Context, role *models.ApprovalRole) error {
	err := r.db.WithContext(ctx).Create(role).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRole, error) {
	var role models.ApprovalRole
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// List retrieves roles for a tenant ordered by hierarchy level
func (r *RoleRepository) List(ctx context.Context, tenantID string, activeOnly bool) ([]models.ApprovalRole, error) {
	var roles []models.ApprovalRole
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = true")
	}
	err := query.Order("hierarchy_level ASC, code ASC").Find(&roles).Error
	return roles, err
}

// Update persists editable role fields
func (r *RoleRepository) Update(ctx context.Context, role *models.ApprovalRole) error {
	result := r.db.WithContext(ctx).
		Model(role).
		Select("name_en", "name_ar", "hierarchy_level", "permissions", "is_active", "updated_at").
		Updates(role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsReferencedByRule reports whether any rule approver entry points at the role.
// Referenced roles may only be soft-disabled, never removed.
func (r *RoleRepository) IsReferencedByRule(ctx context.Context, roleID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RuleApprover{}).
		Where("approval_role_id = ?", roleID).
		Count(&count).Error
	return count > 0, err
}

// Deactivate soft-disables a role
func (r *RoleRepository) Deactivate(ctx context.Context, tenantID string, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.ApprovalRole{}).
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

// Delete soft-deletes a role
func (r *RoleRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.ApprovalRole{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindUserApprovers retrieves the active approver capabilities of a user
func (r *RoleRepository) FindUserApprovers(ctx context.Context, tenantID string, userID uuid.UUID) ([]models.UserApprover, error) {
	var approvers []models.UserApprover
	err := r.db.WithContext(ctx).
		Preload("ApprovalRole").
		Where("tenant_id = ? AND user_id = ? AND is_active = true", tenantID, userID).
		Find(&approvers).Error
	return approvers, err
}

// CreateUserApprover records an approver capability for a user
func (r *RoleRepository) CreateUserApprover(ctx context.Context, approver *models.UserApprover) error {
	return r.db.WithContext(ctx).Create(approver).Error
}

// RevokeUserApprover disables an approver capability
func (r *RoleRepository) RevokeUserApprover(ctx context.Context, tenantID string, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.UserApprover{}).
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

// isUniqueViolation detects a Postgres unique constraint error
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value")
}
