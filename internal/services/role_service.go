package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"procurement-service/internal/models"
	"procurement-service/internal/repository"
)

var (
	ErrRoleNotFound     = errors.New("approval role not found")
	ErrRoleCodeTaken    = errors.New("approval role code already exists for this tenant")
	ErrInvalidRoleCode  = errors.New("role code must be uppercase letters, digits and underscores, starting with a letter")
	ErrInvalidHierarchy = errors.New("hierarchy level must be between 1 and 10")
	ErrRoleInUse        = errors.New("approval role is referenced by rules and can only be deactivated")
	ErrApproverNotFound = errors.New("user approver capability not found")
)

var roleCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,49}$`)

// RoleService manages approval roles and per-user approver capabilities
type RoleService struct {
	roleRepo repository.RoleRepositoryInterface
	logger   *logrus.Entry
}

// NewRoleService creates a new RoleService
func NewRoleService(roleRepo repository.RoleRepositoryInterface, logger *logrus.Logger) *RoleService {
	if logger == nil {
		logger = logrus.New()
	}
	return &RoleService{
		roleRepo: roleRepo,
		logger:   logger.WithField("component", "role-service"),
	}
}

// CreateRoleInput is the payload for creating an approval role
type CreateRoleInput struct {
	Code           string         `json:"code" binding:"required"`
	NameEn         string         `json:"nameEn" binding:"required"`
	NameAr         string         `json:"nameAr"`
	HierarchyLevel int            `json:"hierarchyLevel" binding:"required"`
	Permissions    datatypes.JSON `json:"permissions,omitempty"`
}

// UpdateRoleInput is the payload for a partial role update
type UpdateRoleInput struct {
	NameEn         *string `json:"nameEn"`
	NameAr         *string `json:"nameAr"`
	HierarchyLevel *int    `json:"hierarchyLevel"`
	IsActive       *bool   `json:"isActive"`
}

// AssignApproverInput grants a user an approver capability
type AssignApproverInput struct {
	UserID            uuid.UUID `json:"userId" binding:"required"`
	ApprovalRoleID    uuid.UUID `json:"approvalRoleId" binding:"required"`
	Modules           []string  `json:"modules"`
	MaxApprovalAmount *float64  `json:"maxApprovalAmount"`
}

// CreateRole validates and creates an approval role
func (s *RoleService) CreateRole(ctx context.Context, tenantID string, input CreateRoleInput) (*models.ApprovalRole, error) {
	if !roleCodePattern.MatchString(input.Code) {
		return nil, ErrInvalidRoleCode
	}
	if input.HierarchyLevel < 1 || input.HierarchyLevel > 10 {
		return nil, ErrInvalidHierarchy
	}

	role := &models.ApprovalRole{
		TenantID:       tenantID,
		Code:           input.Code,
		NameEn:         input.NameEn,
		NameAr:         input.NameAr,
		HierarchyLevel: input.HierarchyLevel,
		Permissions:    input.Permissions,
		IsActive:       true,
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRoleCodeTaken
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId": tenantID,
		"roleId":   role.ID,
		"code":     role.Code,
	}).Info("Approval role created")

	return role, nil
}

// GetRole retrieves a role by ID
func (s *RoleService) GetRole(ctx context.Context, tenantID string, id uuid.UUID) (*models.ApprovalRole, error) {
	role, err := s.roleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	if role.TenantID != tenantID {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

// ListRoles retrieves roles for a tenant
func (s *RoleService) ListRoles(ctx context.Context, tenantID string, activeOnly bool) ([]models.ApprovalRole, error) {
	return s.roleRepo.List(ctx, tenantID, activeOnly)
}

// UpdateRole applies a partial update to a role. The code is immutable
// once created since rules reference roles by it.
func (s *RoleService) UpdateRole(ctx context.Context, tenantID string, id uuid.UUID, input UpdateRoleInput) (*models.ApprovalRole, error) {
	role, err := s.GetRole(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if input.NameEn != nil {
		role.NameEn = *input.NameEn
	}
	if input.NameAr != nil {
		role.NameAr = *input.NameAr
	}
	if input.HierarchyLevel != nil {
		if *input.HierarchyLevel < 1 || *input.HierarchyLevel > 10 {
			return nil, ErrInvalidHierarchy
		}
		role.HierarchyLevel = *input.HierarchyLevel
	}
	if input.IsActive != nil {
		role.IsActive = *input.IsActive
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return role, nil
}

// DeactivateRole soft-disables a role. Roles referenced by rules keep
// their historical meaning for in-flight workflows.
func (s *RoleService) DeactivateRole(ctx context.Context, tenantID string, id uuid.UUID) error {
	if _, err := s.GetRole(ctx, tenantID, id); err != nil {
		return err
	}
	return s.roleRepo.Deactivate(ctx, tenantID, id)
}

// DeleteRole removes a role that no rule references. Referenced roles
// can only be deactivated so historical approver paths stay resolvable.
func (s *RoleService) DeleteRole(ctx context.Context, tenantID string, id uuid.UUID) error {
	if _, err := s.GetRole(ctx, tenantID, id); err != nil {
		return err
	}

	referenced, err := s.roleRepo.IsReferencedByRule(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check role references: %w", err)
	}
	if referenced {
		return ErrRoleInUse
	}

	return s.roleRepo.Delete(ctx, tenantID, id)
}

// AssignApprover grants a user the authority to act for an approval role
func (s *RoleService) AssignApprover(ctx context.Context, tenantID string, input AssignApproverInput) (*models.UserApprover, error) {
	role, err := s.GetRole(ctx, tenantID, input.ApprovalRoleID)
	if err != nil {
		return nil, err
	}
	if !role.IsActive {
		return nil, fmt.Errorf("approval role %s is inactive", role.Code)
	}

	approver := &models.UserApprover{
		TenantID:          tenantID,
		UserID:            input.UserID,
		ApprovalRoleID:    input.ApprovalRoleID,
		Modules:           input.Modules,
		MaxApprovalAmount: input.MaxApprovalAmount,
		IsActive:          true,
	}

	if err := s.roleRepo.CreateUserApprover(ctx, approver); err != nil {
		return nil, fmt.Errorf("failed to assign approver: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId": tenantID,
		"userId":   input.UserID,
		"roleCode": role.Code,
	}).Info("Approver capability granted")

	return approver, nil
}

// RevokeApprover disables an approver capability
func (s *RoleService) RevokeApprover(ctx context.Context, tenantID string, id uuid.UUID) error {
	err := s.roleRepo.RevokeUserApprover(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrApproverNotFound
	}
	return err
}

// ListUserApprovers retrieves a user's active approver capabilities
func (s *RoleService) ListUserApprovers(ctx context.Context, tenantID string, userID uuid.UUID) ([]models.UserApprover, error) {
	return s.roleRepo.FindUserApprovers(ctx, tenantID, userID)
}
