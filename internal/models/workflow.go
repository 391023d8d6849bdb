package models

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalWorkflow is a running (or finished) approval instance for a
// single document. It owns one WorkflowAction per rule approver, in
// sequence order, and tracks which position is currently actionable.
type ApprovalWorkflow struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID     string           `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	DocumentID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"documentId"`
	Category     DocumentCategory `gorm:"type:varchar(50);not null;index" json:"category"`
	RuleID       *uuid.UUID       `gorm:"type:uuid;index" json:"ruleId,omitempty"`
	Amount       float64          `gorm:"not null" json:"amount"`
	RequesterID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"requesterId"`
	Status       string           `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	CurrentLevel int              `gorm:"not null;default:1" json:"currentLevel"`
	Version      int              `gorm:"not null;default:1" json:"version"` // Optimistic locking
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
	CompletedAt  *time.Time       `json:"completedAt,omitempty"`

	// Relations - the workflow exclusively owns its actions
	Actions []WorkflowAction `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE" json:"actions,omitempty"`
}

// TableName returns the table name for ApprovalWorkflow
func (ApprovalWorkflow) TableName() string {
	return "approval_workflows"
}

// IsTerminal returns true if the workflow can no longer be acted upon
func (w *ApprovalWorkflow) IsTerminal() bool {
	return w.Status == WorkflowStatusApproved ||
		w.Status == WorkflowStatusRejected ||
		w.Status == WorkflowStatusEscalated ||
		w.Status == WorkflowStatusAutoApproved
}

// CurrentAction returns the action at the workflow's current level, or nil
func (w *ApprovalWorkflow) CurrentAction() *WorkflowAction {
	for i := range w.Actions {
		if w.Actions[i].SequenceOrder == w.CurrentLevel {
			return &w.Actions[i]
		}
	}
	return nil
}

// LastLevel returns the highest sequence order across the workflow's actions
func (w *ApprovalWorkflow) LastLevel() int {
	last := 0
	for i := range w.Actions {
		if w.Actions[i].SequenceOrder > last {
			last = w.Actions[i].SequenceOrder
		}
	}
	return last
}

// WorkflowAction is a single approval step of a workflow instance,
// copied from a RuleApprover at instantiation time
type WorkflowAction struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkflowID     uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_workflow_actions_wf_seq" json:"workflowId"`
	SequenceOrder  int        `gorm:"not null;uniqueIndex:idx_workflow_actions_wf_seq" json:"sequenceOrder"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ApprovalRoleID uuid.UUID  `gorm:"type:uuid;not null" json:"approvalRoleId"`
	CanDelegate    bool       `gorm:"default:false" json:"canDelegate"`
	ApproverID     *uuid.UUID `gorm:"type:uuid" json:"approverId,omitempty"` // nil until acted
	Comments       string     `gorm:"type:text" json:"comments,omitempty"`
	ActedAt        *time.Time `json:"actedAt,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`

	// Relations
	ApprovalRole *ApprovalRole `gorm:"foreignKey:ApprovalRoleID" json:"approvalRole,omitempty"`
}

// TableName returns the table name for WorkflowAction
func (WorkflowAction) TableName() string {
	return "workflow_actions"
}
