package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RFQ is a request for quotation. Vendor quotes are collected against
// it and one vendor is eventually selected, converting the RFQ into a
// purchase request. The recommended vendor is computed upstream from
// the price/technical/commercial composite and stored here.
type RFQ struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID            string     `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	Reference           string     `gorm:"type:varchar(100);not null" json:"reference"`
	Title               string     `gorm:"type:varchar(255)" json:"title,omitempty"`
	Status              string     `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	RecommendedVendorID *uuid.UUID `gorm:"type:uuid" json:"recommendedVendorId,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations
	Quotes []VendorQuote `gorm:"foreignKey:RFQID;constraint:OnDelete:CASCADE" json:"quotes,omitempty"`
}

// TableName returns the table name for RFQ
func (RFQ) TableName() string {
	return "rfqs"
}

// QuoteForVendor returns the quote submitted by a vendor, or nil
func (r *RFQ) QuoteForVendor(vendorID uuid.UUID) *VendorQuote {
	for i := range r.Quotes {
		if r.Quotes[i].VendorID == vendorID {
			return &r.Quotes[i]
		}
	}
	return nil
}

// VendorQuote is a vendor's priced response to an RFQ. LineItems holds
// the quoted lines as submitted; scores arrive from upstream analysis.
type VendorQuote struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RFQID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"rfqId"`
	VendorID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"vendorId"`
	LineItems       datatypes.JSON `gorm:"type:jsonb;not null" json:"lineItems"`
	TotalAmount     float64        `gorm:"not null" json:"totalAmount"`
	TechnicalScore  *float64       `json:"technicalScore,omitempty"`
	CommercialScore *float64       `json:"commercialScore,omitempty"`
	RiskScore       *float64       `json:"riskScore,omitempty"` // externally computed, opaque
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for VendorQuote
func (VendorQuote) TableName() string {
	return "vendor_quotes"
}

// PurchaseRequest is created when a vendor is selected on an RFQ. The
// chosen quote's line items and totals are copied verbatim; the
// override justification, when present, is kept for audit.
type PurchaseRequest struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID            string         `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	RFQID               *uuid.UUID     `gorm:"type:uuid;index" json:"rfqId,omitempty"`
	VendorID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"vendorId"`
	LineItems           datatypes.JSON `gorm:"type:jsonb;not null" json:"lineItems"`
	TotalAmount         float64        `gorm:"not null" json:"totalAmount"`
	VendorJustification string         `gorm:"type:text" json:"vendorJustification,omitempty"`
	Status              string         `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	CreatedBy           uuid.UUID      `gorm:"type:uuid;not null" json:"createdBy"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for PurchaseRequest
func (PurchaseRequest) TableName() string {
	return "purchase_requests"
}
