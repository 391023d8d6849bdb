package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"procurement-service/internal/models"
)

// Event subjects published by this service
const (
	SubjectApprovalRequested    = "approval.requested"
	SubjectApprovalGranted      = "approval.granted"
	SubjectApprovalRejected     = "approval.rejected"
	SubjectApprovalEscalated    = "approval.escalated"
	SubjectApprovalAutoApproved = "approval.auto_approved"
	SubjectVendorSelected       = "procurement.vendor_selected"
)

// ApprovalEvent is the wire payload for approval.* subjects
type ApprovalEvent struct {
	EventID      string  `json:"eventId"`
	EventType    string  `json:"eventType"`
	TenantID     string  `json:"tenantId"`
	WorkflowID   string  `json:"workflowId"`
	DocumentID   string  `json:"documentId"`
	Category     string  `json:"category"`
	Amount       float64 `json:"amount"`
	RequesterID  string  `json:"requesterId"`
	Status       string  `json:"status"`
	CurrentLevel int     `json:"currentLevel"`
	ApproverID   string  `json:"approverId,omitempty"`
	Comments     string  `json:"comments,omitempty"`
	Timestamp    string  `json:"timestamp"`
}

// VendorSelectedEvent is the wire payload for procurement.vendor_selected
type VendorSelectedEvent struct {
	EventID           string  `json:"eventId"`
	EventType         string  `json:"eventType"`
	TenantID          string  `json:"tenantId"`
	RFQID             string  `json:"rfqId"`
	PurchaseRequestID string  `json:"purchaseRequestId"`
	VendorID          string  `json:"vendorId"`
	TotalAmount       float64 `json:"totalAmount"`
	Override          bool    `json:"override"`
	SelectedBy        string  `json:"selectedBy"`
	Timestamp         string  `json:"timestamp"`
}

// Publisher publishes domain events to NATS JetStream
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the streams this service
// publishes to exist
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}
	log := logger.WithField("component", "events")

	nc, err := nats.Connect(natsURL,
		nats.Name("procurement-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &Publisher{nc: nc, js: js, logger: log}
	if err := p.ensureStreams(context.Background()); err != nil {
		log.WithError(err).Warn("Could not ensure event streams")
	}
	return p, nil
}

func (p *Publisher) ensureStreams(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "APPROVAL_EVENTS",
		Subjects:  []string{"approval.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	}); err != nil {
		return err
	}

	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "PROCUREMENT_EVENTS",
		Subjects:  []string{"procurement.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	return err
}

// Close drains the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// PublishWorkflowCreated publishes approval.requested, or
// approval.auto_approved when the workflow short-circuited
func (p *Publisher) PublishWorkflowCreated(ctx context.Context, workflow *models.ApprovalWorkflow) {
	subject := SubjectApprovalRequested
	if workflow.Status == models.WorkflowStatusAutoApproved {
		subject = SubjectApprovalAutoApproved
	}
	p.publish(subject, p.buildApprovalEvent(subject, workflow))
}

// PublishWorkflowApproved publishes approval.granted
func (p *Publisher) PublishWorkflowApproved(ctx context.Context, workflow *models.ApprovalWorkflow, approverID uuid.UUID, comments string) {
	event := p.buildApprovalEvent(SubjectApprovalGranted, workflow)
	event.ApproverID = approverID.String()
	event.Comments = comments
	p.publish(SubjectApprovalGranted, event)
}

// PublishWorkflowRejected publishes approval.rejected
func (p *Publisher) PublishWorkflowRejected(ctx context.Context, workflow *models.ApprovalWorkflow, approverID uuid.UUID, comments string) {
	event := p.buildApprovalEvent(SubjectApprovalRejected, workflow)
	event.ApproverID = approverID.String()
	event.Comments = comments
	p.publish(SubjectApprovalRejected, event)
}

// PublishWorkflowEscalated publishes approval.escalated
func (p *Publisher) PublishWorkflowEscalated(ctx context.Context, workflow *models.ApprovalWorkflow, reason string) {
	event := p.buildApprovalEvent(SubjectApprovalEscalated, workflow)
	event.Comments = reason
	p.publish(SubjectApprovalEscalated, event)
}

// PublishVendorSelected publishes procurement.vendor_selected
func (p *Publisher) PublishVendorSelected(ctx context.Context, rfq *models.RFQ, pr *models.PurchaseRequest, override bool) {
	event := &VendorSelectedEvent{
		EventID:           uuid.New().String(),
		EventType:         SubjectVendorSelected,
		TenantID:          pr.TenantID,
		RFQID:             rfq.ID.String(),
		PurchaseRequestID: pr.ID.String(),
		VendorID:          pr.VendorID.String(),
		TotalAmount:       pr.TotalAmount,
		Override:          override,
		SelectedBy:        pr.CreatedBy.String(),
		Timestamp:         time.Now().Format(time.RFC3339),
	}
	p.publish(SubjectVendorSelected, event)
}

func (p *Publisher) buildApprovalEvent(eventType string, workflow *models.ApprovalWorkflow) *ApprovalEvent {
	return &ApprovalEvent{
		EventID:      uuid.New().String(),
		EventType:    eventType,
		TenantID:     workflow.TenantID,
		WorkflowID:   workflow.ID.String(),
		DocumentID:   workflow.DocumentID.String(),
		Category:     string(workflow.Category),
		Amount:       workflow.Amount,
		RequesterID:  workflow.RequesterID.String(),
		Status:       workflow.Status,
		CurrentLevel: workflow.CurrentLevel,
		Timestamp:    time.Now().Format(time.RFC3339),
	}
}

// publish marshals and sends an event asynchronously. Event delivery is
// best effort; failures are logged and never surfaced to the caller.
func (p *Publisher) publish(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithField("subject", subject).WithError(err).Error("Failed to marshal event")
		return
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := p.js.Publish(pubCtx, subject, data); err != nil {
			p.logger.WithFields(logrus.Fields{
				"subject": subject,
			}).WithError(err).Error("Failed to publish event")
			return
		}
		p.logger.WithField("subject", subject).Debug("Event published")
	}()
}
