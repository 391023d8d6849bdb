package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"procurement-service/internal/models"
	"procurement-service/internal/repository"
)

// MockRuleRepository is a mock implementation of RuleRepositoryInterface
type MockRuleRepository struct {
	mock.Mock
}

var _ repository.RuleRepositoryInterface = (*MockRuleRepository)(nil)

func (m *MockRuleRepository) Create(ctx context.Context, rule *models.ApprovalRule) error {
	args := m.Called(ctx, rule)
	if args.Error(0) == nil {
		rule.ID = uuid.New()
		rule.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRule), args.Error(1)
}

func (m *MockRuleRepository) List(ctx context.Context, tenantID string, category *models.DocumentCategory, activeOnly bool) ([]models.ApprovalRule, error) {
	args := m.Called(ctx, tenantID, category, activeOnly)
	return args.Get(0).([]models.ApprovalRule), args.Error(1)
}

func (m *MockRuleRepository) FindActiveRules(ctx context.Context, tenantID string, category models.DocumentCategory) ([]models.ApprovalRule, error) {
	args := m.Called(ctx, tenantID, category)
	return args.Get(0).([]models.ApprovalRule), args.Error(1)
}

func (m *MockRuleRepository) FindOverlapping(ctx context.Context, rule *models.ApprovalRule) ([]models.ApprovalRule, error) {
	args := m.Called(ctx, rule)
	return args.Get(0).([]models.ApprovalRule), args.Error(1)
}

func (m *MockRuleRepository) Update(ctx context.Context, rule *models.ApprovalRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockRuleRepository) ReplaceApprovers(ctx context.Context, ruleID uuid.UUID, approvers []models.RuleApprover) error {
	args := m.Called(ctx, ruleID, approvers)
	return args.Error(0)
}

func (m *MockRuleRepository) Deactivate(ctx context.Context, tenantID string, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockRoleRepository is a mock implementation of RoleRepositoryInterface
type MockRoleRepository struct {
	mock.Mock
}

var _ repository.RoleRepositoryInterface = (*MockRoleRepository)(nil)

func (m *MockRoleRepository) Create(ctx context.Context, role *models.ApprovalRole) error {
	args := m.Called(ctx, role)
	if args.Error(0) == nil {
		role.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockRoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRole, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalRole), args.Error(1)
}

func (m *MockRoleRepository) List(ctx context.Context, tenantID string, activeOnly bool) ([]models.ApprovalRole, error) {
	args := m.Called(ctx, tenantID, activeOnly)
	return args.Get(0).([]models.ApprovalRole), args.Error(1)
}

func (m *MockRoleRepository) Update(ctx context.Context, role *models.ApprovalRole) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) IsReferencedByRule(ctx context.Context, roleID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roleID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoleRepository) Deactivate(ctx context.Context, tenantID string, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockRoleRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockRoleRepository) FindUserApprovers(ctx context.Context, tenantID string, userID uuid.UUID) ([]models.UserApprover, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).([]models.UserApprover), args.Error(1)
}

func (m *MockRoleRepository) CreateUserApprover(ctx context.Context, approver *models.UserApprover) error {
	args := m.Called(ctx, approver)
	if args.Error(0) == nil {
		approver.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockRoleRepository) RevokeUserApprover(ctx context.Context, tenantID string, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of WorkflowRepositoryInterface
type MockWorkflowRepository struct {
	mock.Mock
}

var _ repository.WorkflowRepositoryInterface = (*MockWorkflowRepository)(nil)

func (m *MockWorkflowRepository) CreateWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	args := m.Called(ctx, workflow)
	if args.Error(0) == nil {
		workflow.ID = uuid.New()
		workflow.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockWorkflowRepository) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*models.ApprovalWorkflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalWorkflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetActiveWorkflowForDocument(ctx context.Context, tenantID string, documentID uuid.UUID) (*models.ApprovalWorkflow, error) {
	args := m.Called(ctx, tenantID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalWorkflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListWorkflows(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.ApprovalWorkflow, int64, error) {
	args := m.Called(ctx, tenantID, statusFilter, limit, offset)
	return args.Get(0).([]models.ApprovalWorkflow), args.Get(1).(int64), args.Error(2)
}

func (m *MockWorkflowRepository) ListWorkflowsByRequester(ctx context.Context, tenantID string, requesterID uuid.UUID, limit, offset int) ([]models.ApprovalWorkflow, int64, error) {
	args := m.Called(ctx, tenantID, requesterID, limit, offset)
	return args.Get(0).([]models.ApprovalWorkflow), args.Get(1).(int64), args.Error(2)
}

func (m *MockWorkflowRepository) UpdateAction(ctx context.Context, action *models.WorkflowAction) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

// AdvanceWorkflow mutates the workflow in place on success, mirroring
// the real repository
func (m *MockWorkflowRepository) AdvanceWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow, newStatus string, newLevel int, completedAt *time.Time) error {
	args := m.Called(ctx, workflow, newStatus, newLevel, completedAt)
	if args.Error(0) == nil {
		workflow.Status = newStatus
		workflow.CurrentLevel = newLevel
		workflow.CompletedAt = completedAt
		workflow.Version++
	}
	return args.Error(0)
}

func (m *MockWorkflowRepository) CreateAuditLog(ctx context.Context, log *models.ApprovalAuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockWorkflowRepository) GetWorkflowHistory(ctx context.Context, workflowID uuid.UUID) ([]models.ApprovalAuditLog, error) {
	args := m.Called(ctx, workflowID)
	return args.Get(0).([]models.ApprovalAuditLog), args.Error(1)
}

func (m *MockWorkflowRepository) FindOverdueWorkflows(ctx context.Context, pendingSince time.Time) ([]models.ApprovalWorkflow, error) {
	args := m.Called(ctx, pendingSince)
	return args.Get(0).([]models.ApprovalWorkflow), args.Error(1)
}

// WithTransaction executes the callback with the mock itself, standing
// in for a real database transaction
func (m *MockWorkflowRepository) WithTransaction(ctx context.Context, fn func(txRepo repository.WorkflowRepositoryInterface) error) error {
	return fn(m)
}

// MockRoleRequestRepository is a mock implementation of RoleRequestRepositoryInterface
type MockRoleRequestRepository struct {
	mock.Mock
}

var _ repository.RoleRequestRepositoryInterface = (*MockRoleRequestRepository)(nil)

func (m *MockRoleRequestRepository) Create(ctx context.Context, request *models.RoleRequest) error {
	args := m.Called(ctx, request)
	if args.Error(0) == nil {
		request.ID = uuid.New()
		request.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockRoleRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RoleRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoleRequest), args.Error(1)
}

func (m *MockRoleRequestRepository) List(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.RoleRequest, int64, error) {
	args := m.Called(ctx, tenantID, statusFilter, limit, offset)
	return args.Get(0).([]models.RoleRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockRoleRequestRepository) ListForUser(ctx context.Context, tenantID string, userID uuid.UUID) ([]models.RoleRequest, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).([]models.RoleRequest), args.Error(1)
}

func (m *MockRoleRequestRepository) HasPendingRequest(ctx context.Context, tenantID string, userID uuid.UUID, role models.AppRole) (bool, error) {
	args := m.Called(ctx, tenantID, userID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoleRequestRepository) Update(ctx context.Context, request *models.RoleRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRoleRequestRepository) GrantAppRole(ctx context.Context, assignment *models.UserRoleAssignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *MockRoleRequestRepository) WithTransaction(ctx context.Context, fn func(txRepo repository.RoleRequestRepositoryInterface) error) error {
	return fn(m)
}

// MockProcurementRepository is a mock implementation of ProcurementRepositoryInterface
type MockProcurementRepository struct {
	mock.Mock
}

var _ repository.ProcurementRepositoryInterface = (*MockProcurementRepository)(nil)

func (m *MockProcurementRepository) CreateRFQ(ctx context.Context, rfq *models.RFQ) error {
	args := m.Called(ctx, rfq)
	if args.Error(0) == nil {
		rfq.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockProcurementRepository) GetRFQByID(ctx context.Context, id uuid.UUID) (*models.RFQ, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RFQ), args.Error(1)
}

func (m *MockProcurementRepository) ListRFQs(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.RFQ, int64, error) {
	args := m.Called(ctx, tenantID, statusFilter, limit, offset)
	return args.Get(0).([]models.RFQ), args.Get(1).(int64), args.Error(2)
}

func (m *MockProcurementRepository) CreateQuote(ctx context.Context, quote *models.VendorQuote) error {
	args := m.Called(ctx, quote)
	if args.Error(0) == nil {
		quote.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockProcurementRepository) CompleteRFQ(ctx context.Context, rfq *models.RFQ) error {
	args := m.Called(ctx, rfq)
	if args.Error(0) == nil {
		rfq.Status = models.RFQStatusCompleted
	}
	return args.Error(0)
}

func (m *MockProcurementRepository) CreatePurchaseRequest(ctx context.Context, pr *models.PurchaseRequest) error {
	args := m.Called(ctx, pr)
	if args.Error(0) == nil {
		pr.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockProcurementRepository) GetPurchaseRequestByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseRequest), args.Error(1)
}

func (m *MockProcurementRepository) UpdatePurchaseRequestStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockProcurementRepository) WithTransaction(ctx context.Context, fn func(txRepo repository.ProcurementRepositoryInterface) error) error {
	return fn(m)
}

// MockDelegationRepository is a mock implementation of DelegationRepositoryInterface
type MockDelegationRepository struct {
	mock.Mock
}

var _ repository.DelegationRepositoryInterface = (*MockDelegationRepository)(nil)

func (m *MockDelegationRepository) CreateDelegation(ctx context.Context, delegation *models.ApprovalDelegation) error {
	args := m.Called(ctx, delegation)
	if args.Error(0) == nil {
		delegation.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockDelegationRepository) GetDelegationByID(ctx context.Context, id uuid.UUID) (*models.ApprovalDelegation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalDelegation), args.Error(1)
}

func (m *MockDelegationRepository) ListDelegationsByDelegator(ctx context.Context, tenantID string, delegatorID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	args := m.Called(ctx, tenantID, delegatorID, includeExpired)
	return args.Get(0).([]models.ApprovalDelegation), args.Error(1)
}

func (m *MockDelegationRepository) ListDelegationsByDelegate(ctx context.Context, tenantID string, delegateID uuid.UUID, includeExpired bool) ([]models.ApprovalDelegation, error) {
	args := m.Called(ctx, tenantID, delegateID, includeExpired)
	return args.Get(0).([]models.ApprovalDelegation), args.Error(1)
}

func (m *MockDelegationRepository) FindActiveDelegations(ctx context.Context, tenantID string, delegateID uuid.UUID) ([]models.ApprovalDelegation, error) {
	args := m.Called(ctx, tenantID, delegateID)
	return args.Get(0).([]models.ApprovalDelegation), args.Error(1)
}

func (m *MockDelegationRepository) CheckOverlappingDelegation(ctx context.Context, tenantID string, delegatorID, delegateID uuid.UUID, roleID *uuid.UUID, startDate, endDate time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, delegatorID, delegateID, roleID, startDate, endDate)
	return args.Bool(0), args.Error(1)
}

func (m *MockDelegationRepository) RevokeDelegation(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, reason string) error {
	args := m.Called(ctx, id, revokedBy, reason)
	return args.Error(0)
}
