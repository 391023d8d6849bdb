package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"procurement-service/internal/models"
	"procurement-service/internal/repository"
)

// Helper function to create an open RFQ with one quote per vendor
func createTestRFQ(tenantID string, recommendedVendorID *uuid.UUID, vendorIDs ...uuid.UUID) *models.RFQ {
	rfq := &models.RFQ{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		Reference:           "RFQ-2026-001",
		Title:               "Data center racks",
		Status:              models.RFQStatusOpen,
		RecommendedVendorID: recommendedVendorID,
	}
	for i, vendorID := range vendorIDs {
		rfq.Quotes = append(rfq.Quotes, models.VendorQuote{
			ID:          uuid.New(),
			RFQID:       rfq.ID,
			VendorID:    vendorID,
			LineItems:   datatypes.JSON(`[{"sku":"RACK-42U","qty":10}]`),
			TotalAmount: float64(50000 + i*5000),
		})
	}
	return rfq
}

func TestSubmitQuote_Success(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	vendorID := uuid.New()

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	rfq := createTestRFQ(tenantID, nil)
	mockRepo.On("GetRFQByID", ctx, rfq.ID).Return(rfq, nil)
	mockRepo.On("CreateQuote", ctx, mock.AnythingOfType("*models.VendorQuote")).Return(nil)

	quote, err := service.SubmitQuote(ctx, tenantID, rfq.ID, SubmitQuoteInput{
		VendorID:    vendorID,
		LineItems:   datatypes.JSON(`[{"sku":"RACK-42U","qty":10}]`),
		TotalAmount: 48000,
	})

	assert.NoError(t, err)
	assert.NotNil(t, quote)
	assert.Equal(t, rfq.ID, quote.RFQID)
	mockRepo.AssertExpectations(t)
}

func TestSubmitQuote_DuplicateVendor(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	vendorID := uuid.New()

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	rfq := createTestRFQ(tenantID, nil, vendorID)
	mockRepo.On("GetRFQByID", ctx, rfq.ID).Return(rfq, nil)

	quote, err := service.SubmitQuote(ctx, tenantID, rfq.ID, SubmitQuoteInput{
		VendorID:    vendorID,
		LineItems:   datatypes.JSON(`[]`),
		TotalAmount: 1000,
	})

	assert.Error(t, err)
	assert.Nil(t, quote)
	mockRepo.AssertNotCalled(t, "CreateQuote")
}

func TestSubmitQuote_ClosedRFQ(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	rfq := createTestRFQ(tenantID, nil)
	rfq.Status = models.RFQStatusCompleted
	mockRepo.On("GetRFQByID", ctx, rfq.ID).Return(rfq, nil)

	quote, err := service.SubmitQuote(ctx, tenantID, rfq.ID, SubmitQuoteInput{
		VendorID:    uuid.New(),
		LineItems:   datatypes.JSON(`[]`),
		TotalAmount: 1000,
	})

	assert.ErrorIs(t, err, ErrRFQNotOpen)
	assert.Nil(t, quote)
}

func TestSelectVendor_RecommendedVendorNeedsNoJustification(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	recommendedID := uuid.New()
	selectedBy := uuid.New()

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	rfq := createTestRFQ(tenantID, &recommendedID, recommendedID)
	mockRepo.On("GetRFQByID", ctx, rfq.ID).Return(rfq, nil)
	mockRepo.On("CreatePurchaseRequest", ctx, mock.AnythingOfType("*models.PurchaseRequest")).Return(nil)
	mockRepo.On("CompleteRFQ", ctx, rfq).Return(nil)

	pr, err := service.SelectVendor(ctx, tenantID, rfq.ID, selectedBy, SelectVendorInput{
		VendorID: recommendedID,
	})

	assert.NoError(t, err)
	assert.NotNil(t, pr)
	assert.Equal(t, models.PurchaseRequestStatusDraft, pr.Status)
	assert.Equal(t, rfq.Quotes[0].TotalAmount, pr.TotalAmount)
	assert.Equal(t, models.RFQStatusCompleted, rfq.Status)
	assert.Empty(t, pr.VendorJustification)
	mockRepo.AssertExpectations(t)
}

func TestSelectVendor_CreatorComesFromActingUser(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	vendorID := uuid.New()
	selectedBy := uuid.New()

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	rfq := createTestRFQ(tenantID, nil, vendorID)
	mockRepo.On("GetRFQByID", ctx, rfq.ID).Return(rfq, nil)
	mockRepo.On("CreatePurchaseRequest", ctx, mock.MatchedBy(func(pr *models.PurchaseRequest) bool {
		return pr.CreatedBy == selectedBy
	})).Return(nil)
	mockRepo.On("CompleteRFQ", ctx, rfq).Return(nil)

	pr, err := service.SelectVendor(ctx, tenantID, rfq.ID, selectedBy, SelectVendorInput{
		VendorID: vendorID,
	})

	assert.NoError(t, err)
	assert.Equal(t, selectedBy, pr.CreatedBy)
	mockRepo.AssertExpectations(t)
}

func TestSelectVendor_OverrideWithoutJustificationRefused(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	recommendedID := uuid.New()
	otherID := uuid.New()

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	rfq := createTestRFQ(tenantID, &recommendedID, recommendedID, otherID)
	mockRepo.On("GetRFQByID", ctx, rfq.ID).Return(rfq, nil)

	pr, err := service.SelectVendor(ctx, tenantID, rfq.ID, uuid.New(), SelectVendorInput{
		VendorID: otherID,
	})

	assert.ErrorIs(t, err, ErrJustificationRequired)
	assert.Nil(t, pr)
	assert.Equal(t, models.RFQStatusOpen, rfq.Status)
	mockRepo.AssertNotCalled(t, "CreatePurchaseRequest")
}

func TestSelectVendor_OverrideWithJustification(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	recommendedID := uuid.New()
	otherID := uuid.New()

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	rfq := createTestRFQ(tenantID, &recommendedID, recommendedID, otherID)
	mockRepo.On("GetRFQByID", ctx, rfq.ID).Return(rfq, nil)
	mockRepo.On("CreatePurchaseRequest", ctx, mock.AnythingOfType("*models.PurchaseRequest")).Return(nil)
	mockRepo.On("CompleteRFQ", ctx, rfq).Return(nil)

	pr, err := service.SelectVendor(ctx, tenantID, rfq.ID, uuid.New(), SelectVendorInput{
		VendorID:      otherID,
		Justification: "recommended vendor cannot meet the delivery window",
	})

	assert.NoError(t, err)
	assert.Equal(t, otherID, pr.VendorID)
	assert.Equal(t, "recommended vendor cannot meet the delivery window", pr.VendorJustification)
	assert.Equal(t, rfq.Quotes[1].TotalAmount, pr.TotalAmount)
	assert.Equal(t, rfq.Quotes[1].LineItems, pr.LineItems)
	mockRepo.AssertExpectations(t)
}

func TestSelectVendor_NoRecommendationNeedsNoJustification(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	vendorID := uuid.New()

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	rfq := createTestRFQ(tenantID, nil, vendorID)
	mockRepo.On("GetRFQByID", ctx, rfq.ID).Return(rfq, nil)
	mockRepo.On("CreatePurchaseRequest", ctx, mock.AnythingOfType("*models.PurchaseRequest")).Return(nil)
	mockRepo.On("CompleteRFQ", ctx, rfq).Return(nil)

	pr, err := service.SelectVendor(ctx, tenantID, rfq.ID, uuid.New(), SelectVendorInput{
		VendorID: vendorID,
	})

	assert.NoError(t, err)
	assert.NotNil(t, pr)
}

func TestSelectVendor_VendorWithoutQuote(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	rfq := createTestRFQ(tenantID, nil, uuid.New())
	mockRepo.On("GetRFQByID", ctx, rfq.ID).Return(rfq, nil)

	pr, err := service.SelectVendor(ctx, tenantID, rfq.ID, uuid.New(), SelectVendorInput{
		VendorID: uuid.New(),
	})

	assert.ErrorIs(t, err, ErrQuoteNotFound)
	assert.Nil(t, pr)
}

func TestSelectVendor_CompletedRFQRefused(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	vendorID := uuid.New()

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	rfq := createTestRFQ(tenantID, nil, vendorID)
	rfq.Status = models.RFQStatusCompleted
	mockRepo.On("GetRFQByID", ctx, rfq.ID).Return(rfq, nil)

	pr, err := service.SelectVendor(ctx, tenantID, rfq.ID, uuid.New(), SelectVendorInput{
		VendorID: vendorID,
	})

	assert.ErrorIs(t, err, ErrRFQNotOpen)
	assert.Nil(t, pr)
}

func TestSubmitPurchaseRequest_DraftOnly(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	pr := &models.PurchaseRequest{
		ID:          uuid.New(),
		TenantID:    tenantID,
		VendorID:    uuid.New(),
		LineItems:   datatypes.JSON(`[]`),
		TotalAmount: 1000,
		Status:      models.PurchaseRequestStatusSubmitted,
		CreatedBy:   uuid.New(),
	}
	mockRepo.On("GetPurchaseRequestByID", ctx, pr.ID).Return(pr, nil)

	result, err := service.SubmitPurchaseRequest(ctx, tenantID, pr.ID)

	assert.Error(t, err)
	assert.Nil(t, result)
	mockRepo.AssertNotCalled(t, "UpdatePurchaseRequestStatus")
}

func TestSubmitPurchaseRequest_Success(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	pr := &models.PurchaseRequest{
		ID:          uuid.New(),
		TenantID:    tenantID,
		VendorID:    uuid.New(),
		LineItems:   datatypes.JSON(`[]`),
		TotalAmount: 1000,
		Status:      models.PurchaseRequestStatusDraft,
		CreatedBy:   uuid.New(),
	}
	mockRepo.On("GetPurchaseRequestByID", ctx, pr.ID).Return(pr, nil)
	mockRepo.On("UpdatePurchaseRequestStatus", ctx, pr.ID, models.PurchaseRequestStatusSubmitted).Return(nil)

	result, err := service.SubmitPurchaseRequest(ctx, tenantID, pr.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.PurchaseRequestStatusSubmitted, result.Status)
	mockRepo.AssertExpectations(t)
}

func TestGetRFQ_TenantMismatch(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	rfq := createTestRFQ("tenant-123", nil)
	mockRepo.On("GetRFQByID", ctx, rfq.ID).Return(rfq, nil)

	result, err := service.GetRFQ(ctx, "tenant-456", rfq.ID)

	assert.ErrorIs(t, err, ErrRFQNotFound)
	assert.Nil(t, result)
}

func TestGetRFQ_NotFound(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	mockRepo := new(MockProcurementRepository)
	service := NewVendorService(mockRepo, nil, nil)

	mockRepo.On("GetRFQByID", ctx, id).Return(nil, repository.ErrNotFound)

	result, err := service.GetRFQ(ctx, "tenant-123", id)

	assert.ErrorIs(t, err, ErrRFQNotFound)
	assert.Nil(t, result)
}
