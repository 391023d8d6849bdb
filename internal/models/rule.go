package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalRule is a versioned approval-matrix entry: it binds an amount
// band within a document category to an ordered approver path and an
// optional auto-approval threshold.
type ApprovalRule struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID         string           `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	Category         DocumentCategory `gorm:"type:varchar(50);not null;index" json:"category"`
	NameEn           string           `gorm:"type:varchar(255);not null" json:"nameEn"`
	NameAr           string           `gorm:"type:varchar(255)" json:"nameAr,omitempty"`
	MinAmount        float64          `gorm:"not null;default:0" json:"minAmount"`
	MaxAmount        *float64         `json:"maxAmount,omitempty"`        // nil = unbounded
	AutoApproveBelow *float64         `json:"autoApproveBelow,omitempty"` // nil = no auto-approval
	Version          int              `gorm:"not null;default:1" json:"version"`
	IsActive         bool             `gorm:"default:true" json:"isActive"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`

	// Relations - the rule exclusively owns its approver list
	Approvers []RuleApprover `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE" json:"approvers,omitempty"`
}

// TableName returns the table name for ApprovalRule
func (ApprovalRule) TableName() string {
	return "approval_rules"
}

// Contains reports whether the rule's [min, max) band covers amount.
// A nil MaxAmount means the band is unbounded above.
func (r *ApprovalRule) Contains(amount float64) bool {
	if amount < r.MinAmount {
		return false
	}
	return r.MaxAmount == nil || amount < *r.MaxAmount
}

// Overlaps reports whether two amount bands intersect
func (r *ApprovalRule) Overlaps(other *ApprovalRule) bool {
	if r.MaxAmount != nil && *r.MaxAmount <= other.MinAmount {
		return false
	}
	if other.MaxAmount != nil && *other.MaxAmount <= r.MinAmount {
		return false
	}
	return true
}

// RuleApprover is one step of a rule's ordered approval path
type RuleApprover struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RuleID         uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_rule_approvers_rule_seq" json:"ruleId"`
	ApprovalRoleID uuid.UUID `gorm:"type:uuid;not null;index" json:"approvalRoleId"`
	SequenceOrder  int       `gorm:"not null;uniqueIndex:idx_rule_approvers_rule_seq" json:"sequenceOrder"` // 1..N
	IsMandatory    bool      `gorm:"default:true" json:"isMandatory"`
	CanDelegate    bool      `gorm:"default:false" json:"canDelegate"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`

	// Relations
	ApprovalRole *ApprovalRole `gorm:"foreignKey:ApprovalRoleID" json:"approvalRole,omitempty"`
}

// TableName returns the table name for RuleApprover
func (RuleApprover) TableName() string {
	return "rule_approvers"
}
