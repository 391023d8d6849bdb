package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleRequest is a user's request for an application role, approved in
// two sequential stages: line manager first, then an admin. Only the
// admin stage moves the overall status out of pending.
type RoleRequest struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID      string    `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	RequestedRole AppRole   `gorm:"type:varchar(20);not null" json:"requestedRole"`
	Justification string    `gorm:"type:text" json:"justification,omitempty"`
	Status        string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// Stage 1: line manager. A decline records the manager's negative
	// recommendation; it never moves the overall status out of pending.
	LineManagerID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"lineManagerId"`
	LineManagerApprovedAt *time.Time `json:"lineManagerApprovedAt,omitempty"`
	LineManagerDeclinedAt *time.Time `json:"lineManagerDeclinedAt,omitempty"`
	LineManagerComments   string     `gorm:"type:text" json:"lineManagerComments,omitempty"`

	// Stage 2: admin
	AdminApprovedBy *uuid.UUID `gorm:"type:uuid" json:"adminApprovedBy,omitempty"`
	AdminApprovedAt *time.Time `json:"adminApprovedAt,omitempty"`
	AdminComments   string     `gorm:"type:text" json:"adminComments,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for RoleRequest
func (RoleRequest) TableName() string {
	return "role_requests"
}

// StageOneComplete reports whether the line manager has signed off
func (r *RoleRequest) StageOneComplete() bool {
	return r.LineManagerApprovedAt != nil
}

// StageOneActed reports whether the line manager has recorded a
// decision either way
func (r *RoleRequest) StageOneActed() bool {
	return r.LineManagerApprovedAt != nil || r.LineManagerDeclinedAt != nil
}

// IsTerminal returns true if the request has been decided
func (r *RoleRequest) IsTerminal() bool {
	return r.Status == RoleRequestStatusApproved || r.Status == RoleRequestStatusRejected
}
