package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"procurement-service/internal/events"
	"procurement-service/internal/models"
	"procurement-service/internal/repository"
)

var (
	ErrRFQNotFound           = errors.New("rfq not found")
	ErrRFQNotOpen            = errors.New("rfq is not open for selection")
	ErrQuoteNotFound         = errors.New("the selected vendor has not quoted on this rfq")
	ErrJustificationRequired = errors.New("selecting a non-recommended vendor requires a justification")
)

// VendorService runs the RFQ to purchase request pipeline, including
// the recommended-vendor override gate
type VendorService struct {
	repo      repository.ProcurementRepositoryInterface
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewVendorService creates a new VendorService
func NewVendorService(repo repository.ProcurementRepositoryInterface, publisher *events.Publisher, logger *logrus.Logger) *VendorService {
	if logger == nil {
		logger = logrus.New()
	}
	return &VendorService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithField("component", "vendor-service"),
	}
}

// CreateRFQInput is the payload for creating an RFQ
type CreateRFQInput struct {
	Reference           string     `json:"reference" binding:"required"`
	Title               string     `json:"title"`
	RecommendedVendorID *uuid.UUID `json:"recommendedVendorId"`
}

// SubmitQuoteInput is the payload for attaching a vendor quote
type SubmitQuoteInput struct {
	VendorID        uuid.UUID      `json:"vendorId" binding:"required"`
	LineItems       datatypes.JSON `json:"lineItems" binding:"required"`
	TotalAmount     float64        `json:"totalAmount" binding:"required"`
	TechnicalScore  *float64       `json:"technicalScore"`
	CommercialScore *float64       `json:"commercialScore"`
	RiskScore       *float64       `json:"riskScore"`
}

// SelectVendorInput is the payload for selecting a vendor on an RFQ.
// The acting user is never part of the payload; it comes from the
// authenticated request.
type SelectVendorInput struct {
	VendorID      uuid.UUID `json:"vendorId" binding:"required"`
	Justification string    `json:"justification"`
}

// CreateRFQ creates an open RFQ
func (s *VendorService) CreateRFQ(ctx context.Context, tenantID string, input CreateRFQInput) (*models.RFQ, error) {
	rfq := &models.RFQ{
		TenantID:            tenantID,
		Reference:           input.Reference,
		Title:               input.Title,
		Status:              models.RFQStatusOpen,
		RecommendedVendorID: input.RecommendedVendorID,
	}
	if err := s.repo.CreateRFQ(ctx, rfq); err != nil {
		return nil, fmt.Errorf("failed to create rfq: %w", err)
	}
	return rfq, nil
}

// GetRFQ retrieves an RFQ with its quotes
func (s *VendorService) GetRFQ(ctx context.Context, tenantID string, id uuid.UUID) (*models.RFQ, error) {
	rfq, err := s.repo.GetRFQByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRFQNotFound
		}
		return nil, err
	}
	if rfq.TenantID != tenantID {
		return nil, ErrRFQNotFound
	}
	return rfq, nil
}

// ListRFQs retrieves RFQs for a tenant
func (s *VendorService) ListRFQs(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.RFQ, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListRFQs(ctx, tenantID, statusFilter, limit, offset)
}

// SubmitQuote attaches a vendor quote to an open RFQ
func (s *VendorService) SubmitQuote(ctx context.Context, tenantID string, rfqID uuid.UUID, input SubmitQuoteInput) (*models.VendorQuote, error) {
	rfq, err := s.GetRFQ(ctx, tenantID, rfqID)
	if err != nil {
		return nil, err
	}
	if rfq.Status != models.RFQStatusOpen {
		return nil, ErrRFQNotOpen
	}
	if existing := rfq.QuoteForVendor(input.VendorID); existing != nil {
		return nil, fmt.Errorf("vendor %s has already quoted on this rfq", input.VendorID)
	}

	quote := &models.VendorQuote{
		RFQID:           rfq.ID,
		VendorID:        input.VendorID,
		LineItems:       input.LineItems,
		TotalAmount:     input.TotalAmount,
		TechnicalScore:  input.TechnicalScore,
		CommercialScore: input.CommercialScore,
		RiskScore:       input.RiskScore,
	}
	if err := s.repo.CreateQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}
	return quote, nil
}

// SelectVendor converts an RFQ into a purchase request for the chosen
// vendor's quote. Picking a vendor other than the recommended one is an
// override and requires a written justification; the justification is
// copied onto the purchase request for audit. The RFQ completion and
// the purchase request creation commit in one transaction.
func (s *VendorService) SelectVendor(ctx context.Context, tenantID string, rfqID, selectedBy uuid.UUID, input SelectVendorInput) (*models.PurchaseRequest, error) {
	rfq, err := s.GetRFQ(ctx, tenantID, rfqID)
	if err != nil {
		return nil, err
	}
	if rfq.Status != models.RFQStatusOpen {
		return nil, ErrRFQNotOpen
	}

	quote := rfq.QuoteForVendor(input.VendorID)
	if quote == nil {
		return nil, ErrQuoteNotFound
	}

	override := rfq.RecommendedVendorID != nil && *rfq.RecommendedVendorID != input.VendorID
	if override && input.Justification == "" {
		return nil, ErrJustificationRequired
	}

	now := time.Now()
	pr := &models.PurchaseRequest{
		TenantID:            tenantID,
		RFQID:               &rfq.ID,
		VendorID:            input.VendorID,
		LineItems:           quote.LineItems,
		TotalAmount:         quote.TotalAmount,
		VendorJustification: input.Justification,
		Status:              models.PurchaseRequestStatusDraft,
		CreatedBy:           selectedBy,
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repository.ProcurementRepositoryInterface) error {
		if err := txRepo.CreatePurchaseRequest(ctx, pr); err != nil {
			return fmt.Errorf("failed to create purchase request: %w", err)
		}
		rfq.CompletedAt = &now
		if err := txRepo.CompleteRFQ(ctx, rfq); err != nil {
			return fmt.Errorf("failed to complete rfq: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.PublishVendorSelected(ctx, rfq, pr, override)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":          tenantID,
		"rfqId":             rfq.ID,
		"vendorId":          input.VendorID,
		"purchaseRequestId": pr.ID,
		"override":          override,
	}).Info("Vendor selected")

	return pr, nil
}

// GetPurchaseRequest retrieves a purchase request
func (s *VendorService) GetPurchaseRequest(ctx context.Context, tenantID string, id uuid.UUID) (*models.PurchaseRequest, error) {
	pr, err := s.repo.GetPurchaseRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if pr.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return pr, nil
}

// SubmitPurchaseRequest moves a draft purchase request to submitted,
// from where an approval workflow is started
func (s *VendorService) SubmitPurchaseRequest(ctx context.Context, tenantID string, id uuid.UUID) (*models.PurchaseRequest, error) {
	pr, err := s.GetPurchaseRequest(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if pr.Status != models.PurchaseRequestStatusDraft {
		return nil, fmt.Errorf("purchase request is not in draft status")
	}
	if err := s.repo.UpdatePurchaseRequestStatus(ctx, id, models.PurchaseRequestStatusSubmitted); err != nil {
		return nil, err
	}
	pr.Status = models.PurchaseRequestStatusSubmitted
	return pr, nil
}
