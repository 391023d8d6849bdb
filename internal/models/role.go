package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApprovalRole defines a named approval capability referenced by rule
// approver entries (e.g. BUYER_LEAD, FINANCE_MANAGER)
type ApprovalRole struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID       string         `gorm:"type:varchar(255);not null;index;uniqueIndex:idx_approval_roles_tenant_code" json:"tenantId"`
	Code           string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_approval_roles_tenant_code" json:"code"`
	NameEn         string         `gorm:"type:varchar(255);not null" json:"nameEn"`
	NameAr         string         `gorm:"type:varchar(255)" json:"nameAr,omitempty"`
	HierarchyLevel int            `gorm:"not null;default:1" json:"hierarchyLevel"` // 1..10
	Permissions    datatypes.JSON `gorm:"type:jsonb" json:"permissions,omitempty"`
	IsActive       bool           `gorm:"default:true" json:"isActive"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for ApprovalRole
func (ApprovalRole) TableName() string {
	return "approval_roles"
}

// Name returns the role name in the given language, falling back to English
func (r *ApprovalRole) Name(lang string) string {
	if lang == "ar" && r.NameAr != "" {
		return r.NameAr
	}
	return r.NameEn
}

// UserApprover grants a user the authority to act on workflow actions
// for a set of modules up to a maximum amount
type UserApprover struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID          string         `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	ApprovalRoleID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"approvalRoleId"`
	Modules           pq.StringArray `gorm:"type:text[]" json:"modules"`
	MaxApprovalAmount *float64       `json:"maxApprovalAmount,omitempty"` // nil = unlimited
	IsActive          bool           `gorm:"default:true" json:"isActive"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations
	ApprovalRole *ApprovalRole `gorm:"foreignKey:ApprovalRoleID" json:"approvalRole,omitempty"`
}

// TableName returns the table name for UserApprover
func (UserApprover) TableName() string {
	return "user_approvers"
}

// CoversModule reports whether the approver capability includes a module.
// An empty module list means all modules.
func (u *UserApprover) CoversModule(module string) bool {
	if len(u.Modules) == 0 {
		return true
	}
	for _, m := range u.Modules {
		if m == module {
			return true
		}
	}
	return false
}

// CoversAmount reports whether the approver may act on the given amount
func (u *UserApprover) CoversAmount(amount float64) bool {
	return u.MaxApprovalAmount == nil || amount <= *u.MaxApprovalAmount
}

// UserRoleAssignment records an application role granted to a user.
// The unique index makes duplicate grants a no-op at the database level.
type UserRoleAssignment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  string    `gorm:"type:varchar(255);not null;index;uniqueIndex:idx_user_roles_tenant_user_role" json:"tenantId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_roles_tenant_user_role" json:"userId"`
	Role      AppRole   `gorm:"type:varchar(20);not null;uniqueIndex:idx_user_roles_tenant_user_role" json:"role"`
	GrantedBy *uuid.UUID `gorm:"type:uuid" json:"grantedBy,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for UserRoleAssignment
func (UserRoleAssignment) TableName() string {
	return "user_role_assignments"
}
