package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"procurement-service/internal/models"
)

// RoleRequestRepositoryInterface defines database operations for role requests
type RoleRequestRepositoryInterface interface {
	Create(ctx context.Context, request *models.RoleRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RoleRequest, error)
	List(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.RoleRequest, int64, error)
	ListForUser(ctx context.Context, tenantID string, userID uuid.UUID) ([]models.RoleRequest, error)
	HasPendingRequest(ctx context.Context, tenantID string, userID uuid.UUID, role models.AppRole) (bool, error)
	Update(ctx context.Context, request *models.RoleRequest) error
	GrantAppRole(ctx context.Context, assignment *models.UserRoleAssignment) error
	WithTransaction(ctx context.Context, fn func(txRepo RoleRequestRepositoryInterface) error) error
}

// RoleRequestRepository handles database operations for role requests
type RoleRequestRepository struct {
	db *gorm.DB
}

// NewRoleRequestRepository creates a new RoleRequestRepository
func NewRoleRequestRepository(db *gorm.DB) *RoleRequestRepository {
	return &RoleRequestRepository{db: db}
}

// WithTransaction runs fn against a repository bound to one transaction.
// Admin approval uses this so the status change and the role grant
// commit together.
func (r *RoleRequestRepository) WithTransaction(ctx context.Context, fn func(txRepo RoleRequestRepositoryInterface) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&RoleRequestRepository{db: tx})
	})
}

// Create creates a new role request
func (r *RoleRequestRepository) Create(ctx context.Context, request *models.RoleRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// GetByID retrieves a role request by ID
func (r *RoleRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RoleRequest, error) {
	var request models.RoleRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// List retrieves role requests for a tenant with optional status filter
func (r *RoleRequestRepository) List(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.RoleRequest, int64, error) {
	var requests []models.RoleRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&models.RoleRequest{}).
		Where("tenant_id = ?", tenantID)

	if statusFilter != "" && statusFilter != "all" {
		query = query.Where("status = ?", statusFilter)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error

	return requests, total, err
}

// ListForUser retrieves all role requests made by a user
func (r *RoleRequestRepository) ListForUser(ctx context.Context, tenantID string, userID uuid.UUID) ([]models.RoleRequest, error) {
	var requests []models.RoleRequest
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// HasPendingRequest reports whether the user already has a pending
// request for the same role
func (r *RoleRequestRepository) HasPendingRequest(ctx context.Context, tenantID string, userID uuid.UUID, role models.AppRole) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RoleRequest{}).
		Where("tenant_id = ? AND user_id = ? AND requested_role = ? AND status = ?",
			tenantID, userID, role, models.RoleRequestStatusPending).
		Count(&count).Error
	return count > 0, err
}

// Update persists stage approval fields and status
func (r *RoleRequestRepository) Update(ctx context.Context, request *models.RoleRequest) error {
	result := r.db.WithContext(ctx).
		Model(request).
		Select("status", "line_manager_approved_at", "line_manager_declined_at",
			"line_manager_comments", "admin_approved_by", "admin_approved_at",
			"admin_comments").
		Updates(request)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GrantAppRole records a role assignment. Duplicate grants are a no-op.
func (r *RoleRequestRepository) GrantAppRole(ctx context.Context, assignment *models.UserRoleAssignment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(assignment).Error
}
