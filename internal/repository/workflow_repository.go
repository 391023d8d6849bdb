package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procurement-service/internal/models"
)

// WorkflowRepositoryInterface defines database operations for approval
// workflow instances and their actions
type WorkflowRepositoryInterface interface {
	CreateWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow) error
	GetWorkflowByID(ctx context.Context, id uuid.UUID) (*models.ApprovalWorkflow, error)
	GetActiveWorkflowForDocument(ctx context.Context, tenantID string, documentID uuid.UUID) (*models.ApprovalWorkflow, error)
	ListWorkflows(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.ApprovalWorkflow, int64, error)
	ListWorkflowsByRequester(ctx context.Context, tenantID string, requesterID uuid.UUID, limit, offset int) ([]models.ApprovalWorkflow, int64, error)
	UpdateAction(ctx context.Context, action *models.WorkflowAction) error
	AdvanceWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow, newStatus string, newLevel int, completedAt *time.Time) error
	CreateAuditLog(ctx context.Context, log *models.ApprovalAuditLog) error
	GetWorkflowHistory(ctx context.Context, workflowID uuid.UUID) ([]models.ApprovalAuditLog, error)
	FindOverdueWorkflows(ctx context.Context, pendingSince time.Time) ([]models.ApprovalWorkflow, error)
	WithTransaction(ctx context.Context, fn func(txRepo WorkflowRepositoryInterface) error) error
}

// WorkflowRepository handles database operations for approval workflows
type WorkflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository creates a new WorkflowRepository
func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// WithTransaction runs fn against a repository bound to a single
// database transaction. Workflow transitions use this so the action
// update and the workflow status update commit or roll back together.
func (r *WorkflowRepository) WithTransaction(ctx context.Context, fn func(txRepo WorkflowRepositoryInterface) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&WorkflowRepository{db: tx})
	})
}

// CreateWorkflow creates a workflow together with its actions
func (r *WorkflowRepository) CreateWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	return r.db.WithContext(ctx).Create(workflow).Error
}

// GetWorkflowByID retrieves a workflow with its actions ordered by sequence
func (r *WorkflowRepository) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*models.ApprovalWorkflow, error) {
	var workflow models.ApprovalWorkflow
	err := r.db.WithContext(ctx).
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Preload("Actions.ApprovalRole").
		Where("id = ?", id).
		First(&workflow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &workflow, nil
}

// GetActiveWorkflowForDocument retrieves the pending workflow for a document, if any
func (r *WorkflowRepository) GetActiveWorkflowForDocument(ctx context.Context, tenantID string, documentID uuid.UUID) (*models.ApprovalWorkflow, error) {
	var workflow models.ApprovalWorkflow
	err := r.db.WithContext(ctx).
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Where("tenant_id = ? AND document_id = ? AND status = ?",
			tenantID, documentID, models.WorkflowStatusPending).
		First(&workflow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &workflow, nil
}

// ListWorkflows retrieves workflows for a tenant with optional status filter
func (r *WorkflowRepository) ListWorkflows(ctx context.Context, tenantID string, statusFilter string, limit, offset int) ([]models.ApprovalWorkflow, int64, error) {
	var workflows []models.ApprovalWorkflow
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ApprovalWorkflow{}).
		Where("tenant_id = ?", tenantID)

	if statusFilter != "" && statusFilter != "all" {
		query = query.Where("status = ?", statusFilter)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&workflows).Error

	return workflows, total, err
}

// ListWorkflowsByRequester retrieves workflows started by a specific user
func (r *WorkflowRepository) ListWorkflowsByRequester(ctx context.Context, tenantID string, requesterID uuid.UUID, limit, offset int) ([]models.ApprovalWorkflow, int64, error) {
	var workflows []models.ApprovalWorkflow
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ApprovalWorkflow{}).
		Where("tenant_id = ? AND requester_id = ?", tenantID, requesterID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&workflows).Error

	return workflows, total, err
}

// UpdateAction persists an action's resolution fields
func (r *WorkflowRepository) UpdateAction(ctx context.Context, action *models.WorkflowAction) error {
	result := r.db.WithContext(ctx).
		Model(action).
		Select("status", "approver_id", "comments", "acted_at").
		Updates(action)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdvanceWorkflow updates workflow status and current level with
// optimistic locking. Concurrent approvers racing on the same step
// lose with ErrVersionConflict instead of double-advancing the level.
func (r *WorkflowRepository) AdvanceWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow, newStatus string, newLevel int, completedAt *time.Time) error {
	oldVersion := workflow.Version

	result := r.db.WithContext(ctx).Model(workflow).
		Where("id = ? AND version = ?", workflow.ID, oldVersion).
		Updates(map[string]interface{}{
			"status":        newStatus,
			"current_level": newLevel,
			"completed_at":  completedAt,
			"version":       oldVersion + 1,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	workflow.Status = newStatus
	workflow.CurrentLevel = newLevel
	workflow.CompletedAt = completedAt
	workflow.Version = oldVersion + 1
	return nil
}

// CreateAuditLog creates an audit log entry
func (r *WorkflowRepository) CreateAuditLog(ctx context.Context, log *models.ApprovalAuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// GetWorkflowHistory retrieves audit history for a workflow
func (r *WorkflowRepository) GetWorkflowHistory(ctx context.Context, workflowID uuid.UUID) ([]models.ApprovalAuditLog, error) {
	var logs []models.ApprovalAuditLog
	err := r.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

// FindOverdueWorkflows finds pending workflows whose current action has
// been waiting since before the given time
func (r *WorkflowRepository) FindOverdueWorkflows(ctx context.Context, pendingSince time.Time) ([]models.ApprovalWorkflow, error) {
	var workflows []models.ApprovalWorkflow
	err := r.db.WithContext(ctx).
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Where("status = ? AND updated_at < ?", models.WorkflowStatusPending, pendingSince).
		Find(&workflows).Error
	return workflows, err
}
