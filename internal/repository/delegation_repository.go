package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procurement-service/internal/models"
)

// DelegationRepositoryInterface defines database operations for
// approval delegations
type DelegationRepositoryInterface interface {
	CreateDelegation(ctx context.Context, delegation *models.ApprovalDelegation) error
	GetDelegationByID(ctx context.Context, id uuid.UUID) (*models.ApprovalDelegation, error)
	ListDelegationsByDelegator(ctx context.Context, tenantID string, delegatorID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error)
	ListDelegationsByDelegate(ctx context.Context, tenantID string, delegateID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error)
	FindActiveDelegations(ctx context.Context, tenantID string, delegateID uuid.UUID) ([]models.ApprovalDelegation, error)
	CheckOverlappingDelegation(ctx context.Context, tenantID string, delegatorID, delegateID uuid.UUID, roleID *uuid.UUID, startDate, endDate time.Time) (bool, error)
	RevokeDelegation(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, reason string) error
}

// DelegationRepository handles database operations for delegations
type DelegationRepository struct {
	db *gorm.DB
}

// NewDelegationRepository creates a new DelegationRepository
func NewDelegationRepository(db *gorm.DB) *DelegationRepository {
	return &DelegationRepository{db: db}
}

// CreateDelegation creates a new delegation record
func (r *DelegationRepository) CreateDelegation(ctx context.Context, delegation *models.ApprovalDelegation) error {
	return r.db.WithContext(ctx).Create(delegation).Error
}

// GetDelegationByID retrieves a delegation by ID
func (r *DelegationRepository) GetDelegationByID(ctx context.Context, id uuid.UUID) (*models.ApprovalDelegation, error) {
	var delegation models.ApprovalDelegation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&delegation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &delegation, nil
}

// ListDelegationsByDelegator retrieves all delegations created by a user
func (r *DelegationRepository) ListDelegationsByDelegator(ctx context.Context, tenantID string, delegatorID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	var delegations []models.ApprovalDelegation

	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegator_id = ?", tenantID, delegatorID)

	if !includeExpired {
		query = query.Where("is_active = ? AND end_date > ?", true, time.Now())
	}

	err := query.Order("created_at DESC").Find(&delegations).Error
	return delegations, err
}

// ListDelegationsByDelegate retrieves all delegations granted to a user
func (r *DelegationRepository) ListDelegationsByDelegate(ctx context.Context, tenantID string, delegateID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	var delegations []models.ApprovalDelegation

	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegate_id = ?", tenantID, delegateID)

	if !includeExpired {
		query = query.Where("is_active = ? AND end_date > ?", true, time.Now())
	}

	err := query.Order("created_at DESC").Find(&delegations).Error
	return delegations, err
}

// FindActiveDelegations finds all delegations currently in force for a delegate
func (r *DelegationRepository) FindActiveDelegations(ctx context.Context, tenantID string, delegateID uuid.UUID) ([]models.ApprovalDelegation, error) {
	var delegations []models.ApprovalDelegation
	now := time.Now()

	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegate_id = ? AND is_active = ?", tenantID, delegateID, true).
		Where("start_date <= ? AND end_date > ?", now, now).
		Where("revoked_at IS NULL").
		Find(&delegations).Error

	return delegations, err
}

// CheckOverlappingDelegation checks for an existing delegation between
// the same delegator/delegate/role pair whose period overlaps
func (r *DelegationRepository) CheckOverlappingDelegation(ctx context.Context, tenantID string, delegatorID, delegateID uuid.UUID, roleID *uuid.UUID, startDate, endDate time.Time) (bool, error) {
	var count int64

	query := r.db.WithContext(ctx).Model(&models.ApprovalDelegation{}).
		Where("tenant_id = ? AND delegator_id = ? AND delegate_id = ? AND is_active = ?",
			tenantID, delegatorID, delegateID, true).
		Where("revoked_at IS NULL").
		Where("(start_date < ? AND end_date > ?)", endDate, startDate)

	if roleID != nil {
		query = query.Where("approval_role_id = ? OR approval_role_id IS NULL", *roleID)
	}

	err := query.Count(&count).Error
	return count > 0, err
}

// RevokeDelegation revokes an existing delegation
func (r *DelegationRepository) RevokeDelegation(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, reason string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.ApprovalDelegation{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":     false,
			"revoked_at":    now,
			"revoked_by":    revokedBy,
			"revoke_reason": reason,
			"updated_at":    now,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
