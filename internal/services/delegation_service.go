package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"procurement-service/internal/models"
	"procurement-service/internal/repository"
)

var (
	ErrDelegationNotFound    = errors.New("delegation not found")
	ErrSelfDelegation        = errors.New("cannot delegate to yourself")
	ErrInvalidDelegationSpan = errors.New("delegation end date must be after the start date")
	ErrDelegationOverlap     = errors.New("an overlapping delegation already exists for this pair")
	ErrNotDelegationOwner    = errors.New("only the delegator can revoke a delegation")
)

// DelegationService manages temporary approval authority handovers
type DelegationService struct {
	repo     repository.DelegationRepositoryInterface
	roleRepo repository.RoleRepositoryInterface
	logger   *logrus.Entry
}

// NewDelegationService creates a new DelegationService
func NewDelegationService(repo repository.DelegationRepositoryInterface, roleRepo repository.RoleRepositoryInterface, logger *logrus.Logger) *DelegationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &DelegationService{
		repo:     repo,
		roleRepo: roleRepo,
		logger:   logger.WithField("component", "delegation-service"),
	}
}

// CreateDelegationInput is the payload for creating a delegation
type CreateDelegationInput struct {
	DelegateID     uuid.UUID  `json:"delegateId" binding:"required"`
	ApprovalRoleID *uuid.UUID `json:"approvalRoleId"`
	Reason         string     `json:"reason"`
	StartDate      time.Time  `json:"startDate" binding:"required"`
	EndDate        time.Time  `json:"endDate" binding:"required"`
}

// CreateDelegation validates and creates a delegation from delegatorID
func (s *DelegationService) CreateDelegation(ctx context.Context, tenantID string, delegatorID uuid.UUID, input CreateDelegationInput) (*models.ApprovalDelegation, error) {
	if input.DelegateID == delegatorID {
		return nil, ErrSelfDelegation
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, ErrInvalidDelegationSpan
	}
	if input.EndDate.Before(time.Now()) {
		return nil, fmt.Errorf("%w: end date is in the past", ErrInvalidDelegationSpan)
	}

	if input.ApprovalRoleID != nil {
		role, err := s.roleRepo.GetByID(ctx, *input.ApprovalRoleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrRoleNotFound
			}
			return nil, err
		}
		if role.TenantID != tenantID {
			return nil, ErrRoleNotFound
		}
	}

	overlapping, err := s.repo.CheckOverlappingDelegation(ctx, tenantID, delegatorID, input.DelegateID, input.ApprovalRoleID, input.StartDate, input.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlapping delegations: %w", err)
	}
	if overlapping {
		return nil, ErrDelegationOverlap
	}

	delegation := &models.ApprovalDelegation{
		TenantID:       tenantID,
		DelegatorID:    delegatorID,
		DelegateID:     input.DelegateID,
		ApprovalRoleID: input.ApprovalRoleID,
		Reason:         input.Reason,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		IsActive:       true,
	}

	if err := s.repo.CreateDelegation(ctx, delegation); err != nil {
		return nil, fmt.Errorf("failed to create delegation: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":    tenantID,
		"delegatorId": delegatorID,
		"delegateId":  input.DelegateID,
	}).Info("Delegation created")

	return delegation, nil
}

// GetDelegation retrieves a delegation by ID
func (s *DelegationService) GetDelegation(ctx context.Context, tenantID string, id uuid.UUID) (*models.ApprovalDelegation, error) {
	delegation, err := s.repo.GetDelegationByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDelegationNotFound
		}
		return nil, err
	}
	if delegation.TenantID != tenantID {
		return nil, ErrDelegationNotFound
	}
	return delegation, nil
}

// ListForDelegator retrieves delegations created by a user
func (s *DelegationService) ListForDelegator(ctx context.Context, tenantID string, delegatorID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	return s.repo.ListDelegationsByDelegator(ctx, tenantID, delegatorID, includeExpired)
}

// ListForDelegate retrieves delegations granted to a user
func (s *DelegationService) ListForDelegate(ctx context.Context, tenantID string, delegateID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	return s.repo.ListDelegationsByDelegate(ctx, tenantID, delegateID, includeExpired)
}

// RevokeDelegation lets the delegator cancel a delegation early
func (s *DelegationService) RevokeDelegation(ctx context.Context, tenantID string, id, revokedBy uuid.UUID, reason string) error {
	delegation, err := s.GetDelegation(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if delegation.DelegatorID != revokedBy {
		return ErrNotDelegationOwner
	}

	if err := s.repo.RevokeDelegation(ctx, id, revokedBy, reason); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDelegationNotFound
		}
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":     tenantID,
		"delegationId": id,
	}).Info("Delegation revoked")

	return nil
}
