package services

import (
	"context"
	"encoding/json"
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
	ErrWorkflowNotFound       = errors.New("approval workflow not found")
	ErrWorkflowAlreadyDecided = errors.New("workflow has already reached a terminal status")
	ErrActionNotCurrent       = errors.New("action is not the workflow's current step")
	ErrUnauthorizedApprover   = errors.New("user is not authorized to act on this step")
	ErrSelfApprovalNotAllowed = errors.New("self-approval is not allowed")
	ErrCommentRequired        = errors.New("a rejection requires a comment")
	ErrDuplicateWorkflow      = errors.New("document already has a pending workflow")
)

// WorkflowService runs the approval workflow state machine
type WorkflowService struct {
	repo      repository.WorkflowRepositoryInterface
	roleRepo  repository.RoleRepositoryInterface
	delegRepo repository.DelegationRepositoryInterface
	matcher   *MatcherService
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewWorkflowService creates a new WorkflowService. The publisher may
// be nil when eventing is disabled.
func NewWorkflowService(
	repo repository.WorkflowRepositoryInterface,
	roleRepo repository.RoleRepositoryInterface,
	delegRepo repository.DelegationRepositoryInterface,
	matcher *MatcherService,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *WorkflowService {
	if logger == nil {
		logger = logrus.New()
	}
	return &WorkflowService{
		repo:      repo,
		roleRepo:  roleRepo,
		delegRepo: delegRepo,
		matcher:   matcher,
		publisher: publisher,
		logger:    logger.WithField("component", "workflow-service"),
	}
}

// StartWorkflowInput is the payload for starting an approval workflow.
// Amount carries no required tag: zero is a valid document amount and
// negative values are refused during matching.
type StartWorkflowInput struct {
	DocumentID  uuid.UUID `json:"documentId" binding:"required"`
	Category    string    `json:"category" binding:"required"`
	Amount      float64   `json:"amount"`
	RequesterID uuid.UUID `json:"requesterId" binding:"required"`
}

// ActionInput carries an approver's decision on the current step
type ActionInput struct {
	ActionID *uuid.UUID `json:"actionId,omitempty"`
	Comments string     `json:"comments"`
}

// StartWorkflow matches the approval matrix and instantiates a workflow
// for a document. Amounts under the matched rule's auto-approval
// threshold complete immediately without any approver steps.
func (s *WorkflowService) StartWorkflow(ctx context.Context, tenantID string, input StartWorkflowInput) (*models.ApprovalWorkflow, error) {
	category, err := models.ParseDocumentCategory(input.Category)
	if err != nil {
		return nil, ErrInvalidCategory
	}

	if existing, err := s.repo.GetActiveWorkflowForDocument(ctx, tenantID, input.DocumentID); err == nil && existing != nil {
		return nil, ErrDuplicateWorkflow
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	match, err := s.matcher.MatchRule(ctx, tenantID, category, input.Amount)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	workflow := &models.ApprovalWorkflow{
		TenantID:    tenantID,
		DocumentID:  input.DocumentID,
		Category:    category,
		RuleID:      &match.Rule.ID,
		Amount:      input.Amount,
		RequesterID: input.RequesterID,
		Version:     1,
	}

	if match.AutoApproved {
		workflow.Status = models.WorkflowStatusAutoApproved
		workflow.CurrentLevel = 0
		workflow.CompletedAt = &now
	} else {
		workflow.Status = models.WorkflowStatusPending
		workflow.CurrentLevel = 1
		for _, approver := range match.Rule.Approvers {
			workflow.Actions = append(workflow.Actions, models.WorkflowAction{
				SequenceOrder:  approver.SequenceOrder,
				Status:         models.ActionStatusPending,
				ApprovalRoleID: approver.ApprovalRoleID,
				CanDelegate:    approver.CanDelegate,
			})
		}
	}

	if err := s.repo.CreateWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	eventType := models.AuditEventCreated
	if match.AutoApproved {
		eventType = models.AuditEventAutoApproved
	}
	s.audit(ctx, workflow, eventType, &input.RequesterID, map[string]interface{}{
		"ruleId":      match.Rule.ID.String(),
		"ruleVersion": match.Rule.Version,
	})

	if s.publisher != nil {
		s.publisher.PublishWorkflowCreated(ctx, workflow)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":   tenantID,
		"workflowId": workflow.ID,
		"documentId": input.DocumentID,
		"status":     workflow.Status,
	}).Info("Approval workflow started")

	return workflow, nil
}

// GetWorkflow retrieves a workflow with its actions
func (s *WorkflowService) GetWorkflow(ctx context.Context, tenantID string, id uuid.UUID) (*models.ApprovalWorkflow, error) {
	workflow, err := s.repo.GetWorkflowByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, err
	}
	if workflow.TenantID != tenantID {
		return nil, ErrWorkflowNotFound
	}
	return workflow, nil
}

// ListWorkflows retrieves workflows for a tenant
func (s *WorkflowService) ListWorkflows(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.ApprovalWorkflow, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListWorkflows(ctx, tenantID, statusFilter, limit, offset)
}

// ListMyWorkflows retrieves workflows the user submitted
func (s *WorkflowService) ListMyWorkflows(ctx context.Context, tenantID string, requesterID uuid.UUID, limit, offset int) ([]models.ApprovalWorkflow, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListWorkflowsByRequester(ctx, tenantID, requesterID, limit, offset)
}

// GetHistory retrieves the audit trail of a workflow
func (s *WorkflowService) GetHistory(ctx context.Context, tenantID string, id uuid.UUID) ([]models.ApprovalAuditLog, error) {
	if _, err := s.GetWorkflow(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return s.repo.GetWorkflowHistory(ctx, id)
}

// ApproveAction approves the workflow's current step. The action update
// and the workflow advance run in one transaction; a concurrent
// decision on the same step surfaces as a version conflict.
func (s *WorkflowService) ApproveAction(ctx context.Context, tenantID string, workflowID, approverID uuid.UUID, input ActionInput) (*models.ApprovalWorkflow, error) {
	workflow, err := s.GetWorkflow(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}

	action, err := s.resolveCurrentAction(workflow, input.ActionID)
	if err != nil {
		return nil, err
	}

	delegatedFrom, err := s.authorizeApprover(ctx, workflow, action, approverID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var result *models.ApprovalWorkflow

	err = s.repo.WithTransaction(ctx, func(txRepo repository.WorkflowRepositoryInterface) error {
		txWorkflow, err := txRepo.GetWorkflowByID(ctx, workflowID)
		if err != nil {
			return err
		}
		if txWorkflow.Status != models.WorkflowStatusPending {
			return ErrWorkflowAlreadyDecided
		}
		txAction := txWorkflow.CurrentAction()
		if txAction == nil || txAction.ID != action.ID {
			return ErrActionNotCurrent
		}

		txAction.Status = models.ActionStatusApproved
		txAction.ApproverID = &approverID
		txAction.Comments = input.Comments
		txAction.ActedAt = &now
		if err := txRepo.UpdateAction(ctx, txAction); err != nil {
			return fmt.Errorf("failed to update action: %w", err)
		}

		newStatus := models.WorkflowStatusPending
		newLevel := txWorkflow.CurrentLevel + 1
		var completedAt *time.Time
		if txWorkflow.CurrentLevel >= txWorkflow.LastLevel() {
			newStatus = models.WorkflowStatusApproved
			newLevel = txWorkflow.CurrentLevel
			completedAt = &now
		}

		if err := txRepo.AdvanceWorkflow(ctx, txWorkflow, newStatus, newLevel, completedAt); err != nil {
			return err
		}

		result = txWorkflow
		return nil
	})
	if err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{"comments": input.Comments}
	if delegatedFrom != nil {
		metadata["delegatedFrom"] = delegatedFrom.String()
	}

	if result.Status == models.WorkflowStatusApproved {
		s.audit(ctx, result, models.AuditEventApproved, &approverID, metadata)
		if s.publisher != nil {
			s.publisher.PublishWorkflowApproved(ctx, result, approverID, input.Comments)
		}
	} else {
		s.audit(ctx, result, models.AuditEventStepApproved, &approverID, metadata)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":   tenantID,
		"workflowId": workflowID,
		"approverId": approverID,
		"status":     result.Status,
		"level":      result.CurrentLevel,
	}).Info("Workflow step approved")

	return result, nil
}

// RejectAction rejects the workflow's current step, terminating the
// whole workflow. A comment is mandatory.
func (s *WorkflowService) RejectAction(ctx context.Context, tenantID string, workflowID, approverID uuid.UUID, input ActionInput) (*models.ApprovalWorkflow, error) {
	if input.Comments == "" {
		return nil, ErrCommentRequired
	}

	workflow, err := s.GetWorkflow(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}

	action, err := s.resolveCurrentAction(workflow, input.ActionID)
	if err != nil {
		return nil, err
	}

	delegatedFrom, err := s.authorizeApprover(ctx, workflow, action, approverID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var result *models.ApprovalWorkflow

	err = s.repo.WithTransaction(ctx, func(txRepo repository.WorkflowRepositoryInterface) error {
		txWorkflow, err := txRepo.GetWorkflowByID(ctx, workflowID)
		if err != nil {
			return err
		}
		if txWorkflow.Status != models.WorkflowStatusPending {
			return ErrWorkflowAlreadyDecided
		}
		txAction := txWorkflow.CurrentAction()
		if txAction == nil || txAction.ID != action.ID {
			return ErrActionNotCurrent
		}

		txAction.Status = models.ActionStatusRejected
		txAction.ApproverID = &approverID
		txAction.Comments = input.Comments
		txAction.ActedAt = &now
		if err := txRepo.UpdateAction(ctx, txAction); err != nil {
			return fmt.Errorf("failed to update action: %w", err)
		}

		if err := txRepo.AdvanceWorkflow(ctx, txWorkflow, models.WorkflowStatusRejected, txWorkflow.CurrentLevel, &now); err != nil {
			return err
		}

		result = txWorkflow
		return nil
	})
	if err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{"comments": input.Comments}
	if delegatedFrom != nil {
		metadata["delegatedFrom"] = delegatedFrom.String()
	}
	s.audit(ctx, result, models.AuditEventRejected, &approverID, metadata)

	if s.publisher != nil {
		s.publisher.PublishWorkflowRejected(ctx, result, approverID, input.Comments)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":   tenantID,
		"workflowId": workflowID,
		"approverId": approverID,
	}).Info("Workflow rejected")

	return result, nil
}

// EscalateWorkflow marks an overdue pending workflow as escalated.
// Escalated is terminal; a fresh workflow must be started after manual
// resolution.
func (s *WorkflowService) EscalateWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow, reason string) error {
	now := time.Now()
	err := s.repo.AdvanceWorkflow(ctx, workflow, models.WorkflowStatusEscalated, workflow.CurrentLevel, &now)
	if err != nil {
		return err
	}

	s.audit(ctx, workflow, models.AuditEventEscalated, nil, map[string]interface{}{"reason": reason})
	if s.publisher != nil {
		s.publisher.PublishWorkflowEscalated(ctx, workflow, reason)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":   workflow.TenantID,
		"workflowId": workflow.ID,
		"reason":     reason,
	}).Warn("Workflow escalated")

	return nil
}

// FindOverdueWorkflows lists pending workflows stalled past the threshold
func (s *WorkflowService) FindOverdueWorkflows(ctx context.Context, threshold time.Duration) ([]models.ApprovalWorkflow, error) {
	return s.repo.FindOverdueWorkflows(ctx, time.Now().Add(-threshold))
}

// resolveCurrentAction returns the workflow's current action, checking
// it matches the one the caller targeted when an ID was supplied
func (s *WorkflowService) resolveCurrentAction(workflow *models.ApprovalWorkflow, actionID *uuid.UUID) (*models.WorkflowAction, error) {
	if workflow.IsTerminal() {
		return nil, ErrWorkflowAlreadyDecided
	}
	current := workflow.CurrentAction()
	if current == nil {
		return nil, ErrActionNotCurrent
	}
	if actionID != nil && *actionID != current.ID {
		return nil, ErrActionNotCurrent
	}
	return current, nil
}

// authorizeApprover checks that the user may act on the action's
// approval role, either directly through an approver capability or via
// an active delegation when the step allows it. Returns the delegator
// ID for delegated decisions.
func (s *WorkflowService) authorizeApprover(ctx context.Context, workflow *models.ApprovalWorkflow, action *models.WorkflowAction, userID uuid.UUID) (*uuid.UUID, error) {
	if workflow.RequesterID == userID {
		return nil, ErrSelfApprovalNotAllowed
	}

	covers, err := s.userCoversAction(ctx, workflow, action, userID)
	if err != nil {
		return nil, err
	}
	if covers {
		return nil, nil
	}

	if !action.CanDelegate {
		return nil, ErrUnauthorizedApprover
	}

	delegations, err := s.delegRepo.FindActiveDelegations(ctx, workflow.TenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check delegations: %w", err)
	}
	for i := range delegations {
		d := &delegations[i]
		if !d.IsValidNow() || !d.CoversRole(action.ApprovalRoleID) {
			continue
		}
		if d.DelegatorID == workflow.RequesterID {
			continue
		}
		delegatorCovers, err := s.userCoversAction(ctx, workflow, action, d.DelegatorID)
		if err != nil {
			return nil, err
		}
		if delegatorCovers {
			return &d.DelegatorID, nil
		}
	}

	return nil, ErrUnauthorizedApprover
}

// userCoversAction checks a user's approver capabilities against the
// action's role, the workflow's category and its amount
func (s *WorkflowService) userCoversAction(ctx context.Context, workflow *models.ApprovalWorkflow, action *models.WorkflowAction, userID uuid.UUID) (bool, error) {
	approvers, err := s.roleRepo.FindUserApprovers(ctx, workflow.TenantID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load approver capabilities: %w", err)
	}
	for i := range approvers {
		a := &approvers[i]
		if a.ApprovalRoleID != action.ApprovalRoleID {
			continue
		}
		if a.CoversModule(string(workflow.Category)) && a.CoversAmount(workflow.Amount) {
			return true, nil
		}
	}
	return false, nil
}

// audit writes a best-effort audit log entry
func (s *WorkflowService) audit(ctx context.Context, workflow *models.ApprovalWorkflow, eventType string, actorID *uuid.UUID, metadata map[string]interface{}) {
	var metadataJSON datatypes.JSON
	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			metadataJSON = data
		}
	}

	log := &models.ApprovalAuditLog{
		WorkflowID: workflow.ID,
		TenantID:   workflow.TenantID,
		EventType:  eventType,
		ActorID:    actorID,
		Metadata:   metadataJSON,
	}
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.WithError(err).WithField("workflowId", workflow.ID).Error("Failed to write audit log")
	}
}
