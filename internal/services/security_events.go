package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"tenantcore/internal/models"
	"tenantcore/internal/repositories"

	"github.com/google/uuid"
)

// SecurityEventService is the append side of the audit log. Every access
// denial, structural violation and session fault in the system funnels
// through Record; nothing else writes to the event stream.
type SecurityEventService interface {
	Record(ctx context.Context, eventType string, principal *models.Principal, details models.JSONB, severity models.Severity) error
	RecordDecision(ctx context.Context, principal *models.Principal, decision models.AccessDecision) error
	List(ctx context.Context, filters *models.SecurityEventFilters) ([]*models.SecurityEvent, error)
	ShipBatch(ctx context.Context, batchSize int) (int, error)
}

type securityEventService struct {
	repo    repositories.SecurityEventsRepository
	shipper AuditShipper
	seq     atomic.Int64
}

// NewSecurityEventService creates the audit event service. The shipper may
// be nil, in which case ShipBatch is a no-op.
func NewSecurityEventService(repo repositories.SecurityEventsRepository, shipper AuditShipper) SecurityEventService {
	s := &securityEventService{repo: repo, shipper: shipper}
	// Seed the sequence from the clock so it keeps increasing across
	// restarts. Within a process it is strictly monotonic, which makes
	// every principal's sub-stream ordered as well.
	s.seq.Store(time.Now().UnixNano())
	return s
}

func (s *securityEventService) Record(ctx context.Context, eventType string, principal *models.Principal, details models.JSONB, severity models.Severity) error {
	if details == nil {
		details = models.JSONB{}
	}
	event := &models.SecurityEvent{
		ID:        uuid.New(),
		Seq:       s.seq.Add(1),
		Timestamp: time.Now(),
		EventType: eventType,
		Principal: principal.Snapshot(),
		Details:   details,
		Severity:  severity,
	}
	if err := s.repo.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to append security event %s: %w", eventType, err)
	}
	if severity == models.SeverityCritical || severity == models.SeverityHigh {
		log.Printf("SECURITY [%s] %s: %v", severity, eventType, details)
	}
	return nil
}

// RecordDecision logs a denied access decision. Allowed decisions are not
// logged; only refusals enter the audit trail.
func (s *securityEventService) RecordDecision(ctx context.Context, principal *models.Principal, decision models.AccessDecision) error {
	if decision.Allowed {
		return nil
	}
	details := models.JSONB{
		"operation": decision.Operation,
		"reason":    decision.Reason,
	}
	if decision.TenantID != nil {
		details["target_tenant_id"] = decision.TenantID.String()
	}
	return s.Record(ctx, models.EventOperationDenied, principal, details, models.SeverityMedium)
}

func (s *securityEventService) List(ctx context.Context, filters *models.SecurityEventFilters) ([]*models.SecurityEvent, error) {
	if filters == nil {
		filters = &models.SecurityEventFilters{}
	}
	return s.repo.List(ctx, filters)
}

// ShipBatch drains unshipped events into one JSONL object in the audit
// bucket and marks them shipped. Returns the number of events shipped.
func (s *securityEventService) ShipBatch(ctx context.Context, batchSize int) (int, error) {
	if s.shipper == nil {
		return 0, nil
	}
	events, err := s.repo.ListUnshipped(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unshipped events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	var payload []byte
	ids := make([]uuid.UUID, 0, len(events))
	for _, event := range events {
		line, err := json.Marshal(event)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize event %s: %w", event.ID, err)
		}
		payload = append(payload, line...)
		payload = append(payload, '\n')
		ids = append(ids, event.ID)
	}

	objectName := shipObjectName(time.Now(), uuid.NewString())
	if err := s.shipper.Ship(ctx, objectName, payload); err != nil {
		return 0, fmt.Errorf("failed to ship audit batch: %w", err)
	}
	// Mark only after the object landed: a crash between ship and mark
	// duplicates events in the sink rather than losing them.
	if err := s.repo.MarkShipped(ctx, ids); err != nil {
		return 0, fmt.Errorf("failed to mark events shipped: %w", err)
	}
	return len(events), nil
}
