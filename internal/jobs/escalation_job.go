package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"procurement-service/internal/repository"
	"procurement-service/internal/services"
)

// EscalationJob periodically marks overdue pending workflows as
// escalated. Escalation is terminal; the workflow surfaces in overdue
// dashboards and a fresh one is started after manual resolution.
type EscalationJob struct {
	workflowService *services.WorkflowService
	threshold       time.Duration
	interval        time.Duration
	logger          *logrus.Logger
	stopCh          chan struct{}
}

// NewEscalationJob creates a new escalation job
func NewEscalationJob(workflowService *services.WorkflowService, threshold, interval time.Duration, logger *logrus.Logger) *EscalationJob {
	return &EscalationJob{
		workflowService: workflowService,
		threshold:       threshold,
		interval:        interval,
		logger:          logger,
		stopCh:          make(chan struct{}),
	}
}

// Start begins the escalation job
func (j *EscalationJob) Start(ctx context.Context) {
	j.logger.WithFields(logrus.Fields{
		"threshold": j.threshold,
		"interval":  j.interval,
	}).Info("Escalation job started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run immediately on start
	j.runCheck(ctx)

	for {
		select {
		case <-ticker.C:
			j.runCheck(ctx)
		case <-j.stopCh:
			j.logger.Info("Escalation job stopped")
			return
		case <-ctx.Done():
			j.logger.Info("Escalation job context cancelled")
			return
		}
	}
}

// Stop signals the job to stop
func (j *EscalationJob) Stop() {
	close(j.stopCh)
}

// runCheck finds and escalates overdue workflows
func (j *EscalationJob) runCheck(ctx context.Context) {
	workflows, err := j.workflowService.FindOverdueWorkflows(ctx, j.threshold)
	if err != nil {
		j.logger.Errorf("Failed to find overdue workflows: %v", err)
		return
	}

	if len(workflows) == 0 {
		j.logger.Debug("No workflows need escalation")
		return
	}

	j.logger.Infof("Found %d overdue workflows", len(workflows))

	reason := fmt.Sprintf("pending for more than %s", j.threshold)
	for i := range workflows {
		workflow := &workflows[i]
		if err := j.workflowService.EscalateWorkflow(ctx, workflow, reason); err != nil {
			// Version conflicts mean another instance or an approver
			// got there first
			if err == repository.ErrVersionConflict {
				j.logger.Debugf("Workflow %s changed concurrently, skipping", workflow.ID)
				continue
			}
			j.logger.Errorf("Failed to escalate workflow %s: %v", workflow.ID, err)
		}
	}
}
