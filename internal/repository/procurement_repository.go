package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procurement-service/internal/models"
)

// ProcurementRepositoryInterface defines database operations for RFQs,
// vendor quotes and purchase requests
type ProcurementRepositoryInterface interface {
	CreateRFQ(ctx context.Context, rfq *models.RFQ) error
	GetRFQByID(ctx context.Context, id uuid.UUID) (*models.RFQ, error)
	ListRFQs(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.RFQ, int64, error)
	CreateQuote(ctx context.Context, quote *models.VendorQuote) error
	CompleteRFQ(ctx context.Context, rfq *models.RFQ) error
	CreatePurchaseRequest(ctx context.Context, pr *models.PurchaseRequest) error
	GetPurchaseRequestByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error)
	UpdatePurchaseRequestStatus(ctx context.Context, id uuid.UUID, status string) error
	WithTransaction(ctx context.Context, fn func(txRepo ProcurementRepositoryInterface) error) error
}

// ProcurementRepository handles database operations for the RFQ to
// purchase request pipeline
type ProcurementRepository struct {
	db *gorm.DB
}

// NewProcurementRepository creates a new ProcurementRepository
func NewProcurementRepository(db *gorm.DB) *ProcurementRepository {
	return &ProcurementRepository{db: db}
}

// WithTransaction runs fn against a repository bound to one transaction.
// Vendor selection uses this so completing the RFQ and creating the
// purchase request commit together.
func (r *ProcurementRepository) WithTransaction(ctx context.Context, fn func(txRepo ProcurementRepositoryInterface) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ProcurementRepository{db: tx})
	})
}

// CreateRFQ creates a new RFQ
func (r *ProcurementRepository) CreateRFQ(ctx context.Context, rfq *models.RFQ) error {
	return r.db.WithContext(ctx).Create(rfq).Error
}

// GetRFQByID retrieves an RFQ with its quotes
func (r *ProcurementRepository) GetRFQByID(ctx context.Context, id uuid.UUID) (*models.RFQ, error) {
	var rfq models.RFQ
	err := r.db.WithContext(ctx).
		Preload("Quotes").
		Where("id = ?", id).
		First(&rfq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rfq, nil
}

// ListRFQs retrieves RFQs for a tenant with optional status filter
func (r *ProcurementRepository) ListRFQs(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.RFQ, int64, error) {
	var rfqs []models.RFQ
	var total int64

	query := r.db.WithContext(ctx).Model(&models.RFQ{}).
		Where("tenant_id = ?", tenantID)

	if statusFilter != "" && statusFilter != "all" {
		query = query.Where("status = ?", statusFilter)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Quotes").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rfqs).Error

	return rfqs, total, err
}

// CreateQuote adds a vendor quote to an RFQ
func (r *ProcurementRepository) CreateQuote(ctx context.Context, quote *models.VendorQuote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

// CompleteRFQ marks an RFQ completed, guarding against a concurrent
// selection on the same RFQ
func (r *ProcurementRepository) CompleteRFQ(ctx context.Context, rfq *models.RFQ) error {
	result := r.db.WithContext(ctx).Model(rfq).
		Where("id = ? AND status = ?", rfq.ID, models.RFQStatusOpen).
		Updates(map[string]interface{}{
			"status":       models.RFQStatusCompleted,
			"completed_at": rfq.CompletedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	rfq.Status = models.RFQStatusCompleted
	return nil
}

// CreatePurchaseRequest creates a new purchase request
func (r *ProcurementRepository) CreatePurchaseRequest(ctx context.Context, pr *models.PurchaseRequest) error {
	return r.db.WithContext(ctx).Create(pr).Error
}

// GetPurchaseRequestByID retrieves a purchase request by ID
func (r *ProcurementRepository) GetPurchaseRequestByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error) {
	var pr models.PurchaseRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pr, nil
}

// UpdatePurchaseRequestStatus updates a purchase request's status
func (r *ProcurementRepository) UpdatePurchaseRequestStatus(ctx context.Context, id uuid.UUID, status string) error {
	result := r.db.WithContext(ctx).Model(&models.PurchaseRequest{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
