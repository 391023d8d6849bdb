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
	ErrRoleRequestNotFound = errors.New("role request not found")
	ErrRoleRequestDecided  = errors.New("role request has already been decided")
	ErrRoleRequestPending  = errors.New("user already has a pending request for this role")
	ErrNotLineManager      = errors.New("only the designated line manager can act on this stage")
	ErrStageOneIncomplete  = errors.New("line manager approval is required before the admin stage")
	ErrStageOneDone        = errors.New("line manager stage is already complete")
	ErrSelfRequestApproval = errors.New("requesters cannot approve their own role request")
)

// RoleRequestService runs the two-stage role request approval: line
// manager first, then an admin. The overall status only leaves pending
// at the admin stage.
type RoleRequestService struct {
	repo   repository.RoleRequestRepositoryInterface
	logger *logrus.Entry
}

// NewRoleRequestService creates a new RoleRequestService
func NewRoleRequestService(repo repository.RoleRequestRepositoryInterface, logger *logrus.Logger) *RoleRequestService {
	if logger == nil {
		logger = logrus.New()
	}
	return &RoleRequestService{
		repo:   repo,
		logger: logger.WithField("component", "role-request-service"),
	}
}

// CreateRoleRequestInput is the payload for requesting a role
type CreateRoleRequestInput struct {
	UserID        uuid.UUID `json:"userId" binding:"required"`
	RequestedRole string    `json:"requestedRole" binding:"required"`
	Justification string    `json:"justification"`
	LineManagerID uuid.UUID `json:"lineManagerId" binding:"required"`
}

// StageDecisionInput carries an approval or rejection for one stage
type StageDecisionInput struct {
	Comments string `json:"comments"`
}

// CreateRequest creates a role request in pending status
func (s *RoleRequestService) CreateRequest(ctx context.Context, tenantID string, input CreateRoleRequestInput) (*models.RoleRequest, error) {
	role, err := models.ParseAppRole(input.RequestedRole)
	if err != nil {
		return nil, fmt.Errorf("invalid requested role: %w", err)
	}
	if input.UserID == input.LineManagerID {
		return nil, fmt.Errorf("line manager must differ from the requesting user")
	}

	pending, err := s.repo.HasPendingRequest(ctx, tenantID, input.UserID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending {
		return nil, ErrRoleRequestPending
	}

	request := &models.RoleRequest{
		TenantID:      tenantID,
		UserID:        input.UserID,
		RequestedRole: role,
		Justification: input.Justification,
		Status:        models.RoleRequestStatusPending,
		LineManagerID: input.LineManagerID,
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create role request: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":  tenantID,
		"requestId": request.ID,
		"userId":    input.UserID,
		"role":      role,
	}).Info("Role request created")

	return request, nil
}

// GetRequest retrieves a role request
func (s *RoleRequestService) GetRequest(ctx context.Context, tenantID string, id uuid.UUID) (*models.RoleRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleRequestNotFound
		}
		return nil, err
	}
	if request.TenantID != tenantID {
		return nil, ErrRoleRequestNotFound
	}
	return request, nil
}

// ListRequests retrieves role requests for a tenant
func (s *RoleRequestService) ListRequests(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.RoleRequest, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, tenantID, statusFilter, limit, offset)
}

// ListMyRequests retrieves the role requests the user submitted
func (s *RoleRequestService) ListMyRequests(ctx context.Context, tenantID string, userID uuid.UUID) ([]models.RoleRequest, error) {
	return s.repo.ListForUser(ctx, tenantID, userID)
}

// LineManagerApprove records stage one sign-off. The request status
// stays pending until the admin stage.
func (s *RoleRequestService) LineManagerApprove(ctx context.Context, tenantID string, id, managerID uuid.UUID, input StageDecisionInput) (*models.RoleRequest, error) {
	request, err := s.GetRequest(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if request.IsTerminal() {
		return nil, ErrRoleRequestDecided
	}
	if request.LineManagerID != managerID {
		return nil, ErrNotLineManager
	}
	if request.StageOneActed() {
		return nil, ErrStageOneDone
	}

	now := time.Now()
	request.LineManagerApprovedAt = &now
	request.LineManagerComments = input.Comments

	if err := s.repo.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update role request: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":  tenantID,
		"requestId": id,
		"managerId": managerID,
	}).Info("Role request stage one approved")

	return request, nil
}

// LineManagerReject records the line manager's decline at stage one.
// The decline is a recommendation only: the request status stays
// pending and only the admin stage can terminate it.
func (s *RoleRequestService) LineManagerReject(ctx context.Context, tenantID string, id, managerID uuid.UUID, input StageDecisionInput) (*models.RoleRequest, error) {
	if input.Comments == "" {
		return nil, ErrCommentRequired
	}

	request, err := s.GetRequest(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if request.IsTerminal() {
		return nil, ErrRoleRequestDecided
	}
	if request.LineManagerID != managerID {
		return nil, ErrNotLineManager
	}
	if request.StageOneActed() {
		return nil, ErrStageOneDone
	}

	now := time.Now()
	request.LineManagerDeclinedAt = &now
	request.LineManagerComments = input.Comments

	if err := s.repo.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update role request: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":  tenantID,
		"requestId": id,
		"managerId": managerID,
	}).Info("Role request stage one declined")

	return request, nil
}

// AdminApprove completes stage two and grants the role. Stage one must
// be finished first; the status flip and the grant commit atomically.
func (s *RoleRequestService) AdminApprove(ctx context.Context, tenantID string, id, adminID uuid.UUID, input StageDecisionInput) (*models.RoleRequest, error) {
	request, err := s.GetRequest(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if request.IsTerminal() {
		return nil, ErrRoleRequestDecided
	}
	if !request.StageOneComplete() {
		return nil, ErrStageOneIncomplete
	}
	if request.UserID == adminID {
		return nil, ErrSelfRequestApproval
	}

	now := time.Now()
	err = s.repo.WithTransaction(ctx, func(txRepo repository.RoleRequestRepositoryInterface) error {
		txRequest, err := txRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if txRequest.IsTerminal() {
			return ErrRoleRequestDecided
		}

		txRequest.Status = models.RoleRequestStatusApproved
		txRequest.AdminApprovedBy = &adminID
		txRequest.AdminApprovedAt = &now
		txRequest.AdminComments = input.Comments
		if err := txRepo.Update(ctx, txRequest); err != nil {
			return fmt.Errorf("failed to update role request: %w", err)
		}

		assignment := &models.UserRoleAssignment{
			TenantID:  tenantID,
			UserID:    txRequest.UserID,
			Role:      txRequest.RequestedRole,
			GrantedBy: &adminID,
		}
		if err := txRepo.GrantAppRole(ctx, assignment); err != nil {
			return fmt.Errorf("failed to grant role: %w", err)
		}

		request = txRequest
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":  tenantID,
		"requestId": id,
		"adminId":   adminID,
		"role":      request.RequestedRole,
	}).Info("Role request approved and role granted")

	return request, nil
}

// AdminReject rejects the request at stage two. The admin may act once
// the line manager has recorded either decision, so a declined request
// can still be terminated.
func (s *RoleRequestService) AdminReject(ctx context.Context, tenantID string, id, adminID uuid.UUID, input StageDecisionInput) (*models.RoleRequest, error) {
	if input.Comments == "" {
		return nil, ErrCommentRequired
	}

	request, err := s.GetRequest(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if request.IsTerminal() {
		return nil, ErrRoleRequestDecided
	}
	if !request.StageOneActed() {
		return nil, ErrStageOneIncomplete
	}

	now := time.Now()
	request.Status = models.RoleRequestStatusRejected
	request.AdminApprovedBy = &adminID
	request.AdminApprovedAt = &now
	request.AdminComments = input.Comments

	if err := s.repo.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update role request: %w", err)
	}

	return request, nil
}
