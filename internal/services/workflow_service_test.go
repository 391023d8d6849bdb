package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"procurement-service/internal/models"
	"procurement-service/internal/repository"
)

func newTestWorkflowService(repo *MockWorkflowRepository, roleRepo *MockRoleRepository, delegRepo *MockDelegationRepository, ruleRepo *MockRuleRepository) *WorkflowService {
	matcher := NewMatcherService(ruleRepo, nil, nil)
	return NewWorkflowService(repo, roleRepo, delegRepo, matcher, nil, nil)
}

// Helper function to create a pending two-step workflow at level 1
func createTestPendingWorkflow(tenantID string, requesterID uuid.UUID) *models.ApprovalWorkflow {
	workflowID := uuid.New()
	return &models.ApprovalWorkflow{
		ID:           workflowID,
		TenantID:     tenantID,
		DocumentID:   uuid.New(),
		Category:     models.CategoryPurchaseRequest,
		Amount:       7000,
		RequesterID:  requesterID,
		Status:       models.WorkflowStatusPending,
		CurrentLevel: 1,
		Version:      1,
		Actions: []models.WorkflowAction{
			{ID: uuid.New(), WorkflowID: workflowID, SequenceOrder: 1, Status: models.ActionStatusPending, ApprovalRoleID: uuid.New(), CanDelegate: true},
			{ID: uuid.New(), WorkflowID: workflowID, SequenceOrder: 2, Status: models.ActionStatusPending, ApprovalRoleID: uuid.New()},
		},
	}
}

// Helper function granting a user the capability to act on an action's role
func approverFor(tenantID string, userID uuid.UUID, action *models.WorkflowAction) models.UserApprover {
	return models.UserApprover{
		ID:             uuid.New(),
		TenantID:       tenantID,
		UserID:         userID,
		ApprovalRoleID: action.ApprovalRoleID,
		IsActive:       true,
	}
}

// ===========================================
// Start Workflow Tests
// ===========================================

func TestStartWorkflow_AutoApproved(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	requesterID := uuid.New()

	mockRepo := new(MockWorkflowRepository)
	mockRuleRepo := new(MockRuleRepository)
	service := newTestWorkflowService(mockRepo, new(MockRoleRepository), new(MockDelegationRepository), mockRuleRepo)

	rule := createTestRule(tenantID, 0, floatPtr(10000), floatPtr(5000))

	mockRepo.On("GetActiveWorkflowForDocument", ctx, tenantID, mock.AnythingOfType("uuid.UUID")).
		Return(nil, repository.ErrNotFound)
	mockRuleRepo.On("FindActiveRules", ctx, tenantID, models.CategoryPurchaseRequest).
		Return([]models.ApprovalRule{rule}, nil)
	mockRepo.On("CreateWorkflow", ctx, mock.AnythingOfType("*models.ApprovalWorkflow")).
		Return(nil)
	mockRepo.On("CreateAuditLog", ctx, mock.AnythingOfType("*models.ApprovalAuditLog")).
		Return(nil)

	workflow, err := service.StartWorkflow(ctx, tenantID, StartWorkflowInput{
		DocumentID:  uuid.New(),
		Category:    "purchase_request",
		Amount:      3000,
		RequesterID: requesterID,
	})

	assert.NoError(t, err)
	assert.NotNil(t, workflow)
	assert.Equal(t, models.WorkflowStatusAutoApproved, workflow.Status)
	assert.NotNil(t, workflow.CompletedAt)
	assert.Empty(t, workflow.Actions)
	mockRepo.AssertExpectations(t)
}

func TestStartWorkflow_PendingWithActionPath(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockWorkflowRepository)
	mockRuleRepo := new(MockRuleRepository)
	service := newTestWorkflowService(mockRepo, new(MockRoleRepository), new(MockDelegationRepository), mockRuleRepo)

	rule := createTestRule(tenantID, 0, floatPtr(10000), floatPtr(5000))

	mockRepo.On("GetActiveWorkflowForDocument", ctx, tenantID, mock.AnythingOfType("uuid.UUID")).
		Return(nil, repository.ErrNotFound)
	mockRuleRepo.On("FindActiveRules", ctx, tenantID, models.CategoryPurchaseRequest).
		Return([]models.ApprovalRule{rule}, nil)
	mockRepo.On("CreateWorkflow", ctx, mock.AnythingOfType("*models.ApprovalWorkflow")).
		Return(nil)
	mockRepo.On("CreateAuditLog", ctx, mock.AnythingOfType("*models.ApprovalAuditLog")).
		Return(nil)

	workflow, err := service.StartWorkflow(ctx, tenantID, StartWorkflowInput{
		DocumentID:  uuid.New(),
		Category:    "purchase_request",
		Amount:      7000,
		RequesterID: uuid.New(),
	})

	assert.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPending, workflow.Status)
	assert.Equal(t, 1, workflow.CurrentLevel)
	assert.Len(t, workflow.Actions, 2)
	assert.Equal(t, rule.Approvers[0].ApprovalRoleID, workflow.Actions[0].ApprovalRoleID)
	assert.Equal(t, 2, workflow.Actions[1].SequenceOrder)
}

func TestStartWorkflow_DuplicateDocument(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockWorkflowRepository)
	service := newTestWorkflowService(mockRepo, new(MockRoleRepository), new(MockDelegationRepository), new(MockRuleRepository))

	existing := createTestPendingWorkflow(tenantID, uuid.New())
	mockRepo.On("GetActiveWorkflowForDocument", ctx, tenantID, existing.DocumentID).
		Return(existing, nil)

	workflow, err := service.StartWorkflow(ctx, tenantID, StartWorkflowInput{
		DocumentID:  existing.DocumentID,
		Category:    "purchase_request",
		Amount:      7000,
		RequesterID: uuid.New(),
	})

	assert.ErrorIs(t, err, ErrDuplicateWorkflow)
	assert.Nil(t, workflow)
	mockRepo.AssertNotCalled(t, "CreateWorkflow")
}

func TestStartWorkflow_NoRuleMatched(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockWorkflowRepository)
	mockRuleRepo := new(MockRuleRepository)
	service := newTestWorkflowService(mockRepo, new(MockRoleRepository), new(MockDelegationRepository), mockRuleRepo)

	mockRepo.On("GetActiveWorkflowForDocument", ctx, tenantID, mock.AnythingOfType("uuid.UUID")).
		Return(nil, repository.ErrNotFound)
	mockRuleRepo.On("FindActiveRules", ctx, tenantID, models.CategoryContracts).
		Return([]models.ApprovalRule{}, nil)

	workflow, err := service.StartWorkflow(ctx, tenantID, StartWorkflowInput{
		DocumentID:  uuid.New(),
		Category:    "contracts",
		Amount:      500,
		RequesterID: uuid.New(),
	})

	assert.ErrorIs(t, err, ErrNoRuleMatched)
	assert.Nil(t, workflow)
}

// ===========================================
// Approve Action Tests
// ===========================================

func TestApproveAction_AdvancesToNextLevel(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	approverID := uuid.New()

	mockRepo := new(MockWorkflowRepository)
	mockRoleRepo := new(MockRoleRepository)
	service := newTestWorkflowService(mockRepo, mockRoleRepo, new(MockDelegationRepository), new(MockRuleRepository))

	workflow := createTestPendingWorkflow(tenantID, uuid.New())

	mockRepo.On("GetWorkflowByID", ctx, workflow.ID).Return(workflow, nil)
	mockRoleRepo.On("FindUserApprovers", ctx, tenantID, approverID).
		Return([]models.UserApprover{approverFor(tenantID, approverID, &workflow.Actions[0])}, nil)
	mockRepo.On("UpdateAction", ctx, mock.AnythingOfType("*models.WorkflowAction")).Return(nil)
	mockRepo.On("AdvanceWorkflow", ctx, workflow, models.WorkflowStatusPending, 2, mock.Anything).Return(nil)
	mockRepo.On("CreateAuditLog", ctx, mock.AnythingOfType("*models.ApprovalAuditLog")).Return(nil)

	result, err := service.ApproveAction(ctx, tenantID, workflow.ID, approverID, ActionInput{Comments: "looks fine"})

	assert.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPending, result.Status)
	assert.Equal(t, 2, result.CurrentLevel)
	assert.Equal(t, models.ActionStatusApproved, result.Actions[0].Status)
	assert.Equal(t, &approverID, result.Actions[0].ApproverID)
	mockRepo.AssertExpectations(t)
}

func TestApproveAction_FinalLevelCompletesWorkflow(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	approverID := uuid.New()

	mockRepo := new(MockWorkflowRepository)
	mockRoleRepo := new(MockRoleRepository)
	service := newTestWorkflowService(mockRepo, mockRoleRepo, new(MockDelegationRepository), new(MockRuleRepository))

	workflow := createTestPendingWorkflow(tenantID, uuid.New())
	workflow.CurrentLevel = 2
	workflow.Actions[0].Status = models.ActionStatusApproved

	mockRepo.On("GetWorkflowByID", ctx, workflow.ID).Return(workflow, nil)
	mockRoleRepo.On("FindUserApprovers", ctx, tenantID, approverID).
		Return([]models.UserApprover{approverFor(tenantID, approverID, &workflow.Actions[1])}, nil)
	mockRepo.On("UpdateAction", ctx, mock.AnythingOfType("*models.WorkflowAction")).Return(nil)
	mockRepo.On("AdvanceWorkflow", ctx, workflow, models.WorkflowStatusApproved, 2, mock.Anything).Return(nil)
	mockRepo.On("CreateAuditLog", ctx, mock.AnythingOfType("*models.ApprovalAuditLog")).Return(nil)

	result, err := service.ApproveAction(ctx, tenantID, workflow.ID, approverID, ActionInput{})

	assert.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusApproved, result.Status)
	assert.NotNil(t, result.CompletedAt)
	mockRepo.AssertExpectations(t)
}

func TestApproveAction_SelfApprovalRefused(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	requesterID := uuid.New()

	mockRepo := new(MockWorkflowRepository)
	service := newTestWorkflowService(mockRepo, new(MockRoleRepository), new(MockDelegationRepository), new(MockRuleRepository))

	workflow := createTestPendingWorkflow(tenantID, requesterID)
	mockRepo.On("GetWorkflowByID", ctx, workflow.ID).Return(workflow, nil)

	result, err := service.ApproveAction(ctx, tenantID, workflow.ID, requesterID, ActionInput{})

	assert.ErrorIs(t, err, ErrSelfApprovalNotAllowed)
	assert.Nil(t, result)
	mockRepo.AssertNotCalled(t, "UpdateAction")
}

func TestApproveAction_UnauthorizedApprover(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	userID := uuid.New()

	mockRepo := new(MockWorkflowRepository)
	mockRoleRepo := new(MockRoleRepository)
	mockDelegRepo := new(MockDelegationRepository)
	service := newTestWorkflowService(mockRepo, mockRoleRepo, mockDelegRepo, new(MockRuleRepository))

	workflow := createTestPendingWorkflow(tenantID, uuid.New())
	mockRepo.On("GetWorkflowByID", ctx, workflow.ID).Return(workflow, nil)
	mockRoleRepo.On("FindUserApprovers", ctx, tenantID, userID).
		Return([]models.UserApprover{}, nil)
	mockDelegRepo.On("FindActiveDelegations", ctx, tenantID, userID).
		Return([]models.ApprovalDelegation{}, nil)

	result, err := service.ApproveAction(ctx, tenantID, workflow.ID, userID, ActionInput{})

	assert.ErrorIs(t, err, ErrUnauthorizedApprover)
	assert.Nil(t, result)
}

func TestApproveAction_ApproverAmountCapRefused(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	userID := uuid.New()

	mockRepo := new(MockWorkflowRepository)
	mockRoleRepo := new(MockRoleRepository)
	mockDelegRepo := new(MockDelegationRepository)
	service := newTestWorkflowService(mockRepo, mockRoleRepo, mockDelegRepo, new(MockRuleRepository))

	workflow := createTestPendingWorkflow(tenantID, uuid.New()) // amount 7000

	capped := approverFor(tenantID, userID, &workflow.Actions[0])
	capped.MaxApprovalAmount = floatPtr(5000)

	mockRepo.On("GetWorkflowByID", ctx, workflow.ID).Return(workflow, nil)
	mockRoleRepo.On("FindUserApprovers", ctx, tenantID, userID).
		Return([]models.UserApprover{capped}, nil)
	mockDelegRepo.On("FindActiveDelegations", ctx, tenantID, userID).
		Return([]models.ApprovalDelegation{}, nil)

	result, err := service.ApproveAction(ctx, tenantID, workflow.ID, userID, ActionInput{})

	assert.ErrorIs(t, err, ErrUnauthorizedApprover)
	assert.Nil(t, result)
}

func TestApproveAction_ViaDelegation(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	delegatorID := uuid.New()
	delegateID := uuid.New()

	mockRepo := new(MockWorkflowRepository)
	mockRoleRepo := new(MockRoleRepository)
	mockDelegRepo := new(MockDelegationRepository)
	service := newTestWorkflowService(mockRepo, mockRoleRepo, mockDelegRepo, new(MockRuleRepository))

	workflow := createTestPendingWorkflow(tenantID, uuid.New())
	delegation := createTestDelegation(tenantID, delegatorID, delegateID, nil)

	mockRepo.On("GetWorkflowByID", ctx, workflow.ID).Return(workflow, nil)
	mockRoleRepo.On("FindUserApprovers", ctx, tenantID, delegateID).
		Return([]models.UserApprover{}, nil)
	mockDelegRepo.On("FindActiveDelegations", ctx, tenantID, delegateID).
		Return([]models.ApprovalDelegation{*delegation}, nil)
	mockRoleRepo.On("FindUserApprovers", ctx, tenantID, delegatorID).
		Return([]models.UserApprover{approverFor(tenantID, delegatorID, &workflow.Actions[0])}, nil)
	mockRepo.On("UpdateAction", ctx, mock.AnythingOfType("*models.WorkflowAction")).Return(nil)
	mockRepo.On("AdvanceWorkflow", ctx, workflow, models.WorkflowStatusPending, 2, mock.Anything).Return(nil)
	mockRepo.On("CreateAuditLog", ctx, mock.AnythingOfType("*models.ApprovalAuditLog")).Return(nil)

	result, err := service.ApproveAction(ctx, tenantID, workflow.ID, delegateID, ActionInput{})

	assert.NoError(t, err)
	assert.Equal(t, 2, result.CurrentLevel)
	assert.Equal(t, &delegateID, result.Actions[0].ApproverID)
	mockRepo.AssertExpectations(t)
}

func TestApproveAction_NonCurrentActionRefused(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	approverID := uuid.New()

	mockRepo := new(MockWorkflowRepository)
	mockRoleRepo := new(MockRoleRepository)
	service := newTestWorkflowService(mockRepo, mockRoleRepo, new(MockDelegationRepository), new(MockRuleRepository))

	workflow := createTestPendingWorkflow(tenantID, uuid.New())
	mockRepo.On("GetWorkflowByID", ctx, workflow.ID).Return(workflow, nil)

	// Targeting step 2 while step 1 is current
	secondActionID := workflow.Actions[1].ID
	result, err := service.ApproveAction(ctx, tenantID, workflow.ID, approverID, ActionInput{ActionID: &secondActionID})

	assert.ErrorIs(t, err, ErrActionNotCurrent)
	assert.Nil(t, result)
}

func TestApproveAction_TerminalWorkflowRefused(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockWorkflowRepository)
	service := newTestWorkflowService(mockRepo, new(MockRoleRepository), new(MockDelegationRepository), new(MockRuleRepository))

	workflow := createTestPendingWorkflow(tenantID, uuid.New())
	workflow.Status = models.WorkflowStatusRejected
	mockRepo.On("GetWorkflowByID", ctx, workflow.ID).Return(workflow, nil)

	result, err := service.ApproveAction(ctx, tenantID, workflow.ID, uuid.New(), ActionInput{})

	assert.ErrorIs(t, err, ErrWorkflowAlreadyDecided)
	assert.Nil(t, result)
}

func TestApproveAction_VersionConflict(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	approverID := uuid.New()

	mockRepo := new(MockWorkflowRepository)
	mockRoleRepo := new(MockRoleRepository)
	service := newTestWorkflowService(mockRepo, mockRoleRepo, new(MockDelegationRepository), new(MockRuleRepository))

	workflow := createTestPendingWorkflow(tenantID, uuid.New())

	mockRepo.On("GetWorkflowByID", ctx, workflow.ID).Return(workflow, nil)
	mockRoleRepo.On("FindUserApprovers", ctx, tenantID, approverID).
		Return([]models.UserApprover{approverFor(tenantID, approverID, &workflow.Actions[0])}, nil)
	mockRepo.On("UpdateAction", ctx, mock.AnythingOfType("*models.WorkflowAction")).Return(nil)
	mockRepo.On("AdvanceWorkflow", ctx, workflow, models.WorkflowStatusPending, 2, mock.Anything).
		Return(repository.ErrVersionConflict)

	result, err := service.ApproveAction(ctx, tenantID, workflow.ID, approverID, ActionInput{})

	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.Nil(t, result)
}

// ===========================================
// Reject Action Tests
// ===========================================

func TestRejectAction_TerminatesWorkflow(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	approverID := uuid.New()

	mockRepo := new(MockWorkflowRepository)
	mockRoleRepo := new(MockRoleRepository)
	service := newTestWorkflowService(mockRepo, mockRoleRepo, new(MockDelegationRepository), new(MockRuleRepository))

	workflow := createTestPendingWorkflow(tenantID, uuid.New())

	mockRepo.On("GetWorkflowByID", ctx, workflow.ID).Return(workflow, nil)
	mockRoleRepo.On("FindUserApprovers", ctx, tenantID, approverID).
		Return([]models.UserApprover{approverFor(tenantID, approverID, &workflow.Actions[0])}, nil)
	mockRepo.On("UpdateAction", ctx, mock.AnythingOfType("*models.WorkflowAction")).Return(nil)
	mockRepo.On("AdvanceWorkflow", ctx, workflow, models.WorkflowStatusRejected, 1, mock.Anything).Return(nil)
	mockRepo.On("CreateAuditLog", ctx, mock.AnythingOfType("*models.ApprovalAuditLog")).Return(nil)

	result, err := service.RejectAction(ctx, tenantID, workflow.ID, approverID, ActionInput{Comments: "budget exceeded"})

	assert.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusRejected, result.Status)
	assert.NotNil(t, result.CompletedAt)
	assert.Equal(t, models.ActionStatusRejected, result.Actions[0].Status)
	mockRepo.AssertExpectations(t)
}

func TestRejectAction_CommentRequired(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockWorkflowRepository)
	service := newTestWorkflowService(mockRepo, new(MockRoleRepository), new(MockDelegationRepository), new(MockRuleRepository))

	result, err := service.RejectAction(ctx, "tenant-123", uuid.New(), uuid.New(), ActionInput{})

	assert.ErrorIs(t, err, ErrCommentRequired)
	assert.Nil(t, result)
	mockRepo.AssertNotCalled(t, "GetWorkflowByID")
}

// ===========================================
// Escalation Tests
// ===========================================

func TestEscalateWorkflow_MarksTerminal(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockWorkflowRepository)
	service := newTestWorkflowService(mockRepo, new(MockRoleRepository), new(MockDelegationRepository), new(MockRuleRepository))

	workflow := createTestPendingWorkflow(tenantID, uuid.New())

	mockRepo.On("AdvanceWorkflow", ctx, workflow, models.WorkflowStatusEscalated, 1, mock.Anything).Return(nil)
	mockRepo.On("CreateAuditLog", ctx, mock.AnythingOfType("*models.ApprovalAuditLog")).Return(nil)

	err := service.EscalateWorkflow(ctx, workflow, "pending for more than 72h0m0s")

	assert.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusEscalated, workflow.Status)
	assert.True(t, workflow.IsTerminal())
	mockRepo.AssertExpectations(t)
}

func TestEscalateWorkflow_VersionConflictSurfaces(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockWorkflowRepository)
	service := newTestWorkflowService(mockRepo, new(MockRoleRepository), new(MockDelegationRepository), new(MockRuleRepository))

	workflow := createTestPendingWorkflow("tenant-123", uuid.New())
	mockRepo.On("AdvanceWorkflow", ctx, workflow, models.WorkflowStatusEscalated, 1, mock.Anything).
		Return(repository.ErrVersionConflict)

	err := service.EscalateWorkflow(ctx, workflow, "stalled")

	assert.ErrorIs(t, err, repository.ErrVersionConflict)
}

func TestGetWorkflow_TenantMismatch(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockWorkflowRepository)
	service := newTestWorkflowService(mockRepo, new(MockRoleRepository), new(MockDelegationRepository), new(MockRuleRepository))

	workflow := createTestPendingWorkflow("tenant-123", uuid.New())
	mockRepo.On("GetWorkflowByID", ctx, workflow.ID).Return(workflow, nil)

	result, err := service.GetWorkflow(ctx, "tenant-456", workflow.ID)

	assert.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.Nil(t, result)
}

func TestListMyWorkflows_ClampsPaging(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	requesterID := uuid.New()

	mockRepo := new(MockWorkflowRepository)
	service := newTestWorkflowService(mockRepo, new(MockRoleRepository), new(MockDelegationRepository), new(MockRuleRepository))

	expected := []models.ApprovalWorkflow{*createTestPendingWorkflow(tenantID, requesterID)}
	mockRepo.On("ListWorkflowsByRequester", ctx, tenantID, requesterID, 20, 0).
		Return(expected, int64(1), nil)

	workflows, total, err := service.ListMyWorkflows(ctx, tenantID, requesterID, 500, -3)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, workflows, 1)
	assert.Equal(t, requesterID, workflows[0].RequesterID)
	mockRepo.AssertExpectations(t)
}
