package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"tenantcore/internal/models"

	"github.com/google/uuid"
)

// SecurityEventsRepository is append-only: events are inserted and marked
// shipped, never updated or deleted by the application. Retention is an
// external operational concern.
type SecurityEventsRepository interface {
	Append(ctx context.Context, event *models.SecurityEvent) error
	List(ctx context.Context, filters *models.SecurityEventFilters) ([]*models.SecurityEvent, error)
	ListUnshipped(ctx context.Context, limit int) ([]*models.SecurityEvent, error)
	MarkShipped(ctx context.Context, ids []uuid.UUID) error
}

type securityEventsRepo struct {
	db Database
}

func NewSecurityEventsRepo(db Database) SecurityEventsRepository {
	return &securityEventsRepo{db: db}
}

func (r *securityEventsRepo) Append(ctx context.Context, event *models.SecurityEvent) error {
	var principalJSON []byte
	if event.Principal != nil {
		var err error
		principalJSON, err = json.Marshal(event.Principal)
		if err != nil {
			return fmt.Errorf("failed to serialize principal snapshot: %w", err)
		}
	}

	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to serialize event details: %w", err)
	}

	query := `
		INSERT INTO security_events (id, seq, event_type, principal, details, severity, shipped, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`
	_, err = r.db.Exec(ctx, query,
		event.ID, event.Seq, event.EventType, principalJSON, detailsJSON,
		event.Severity, event.Timestamp,
	)
	return err
}

const securityEventColumns = `id, seq, event_type, principal, details, severity, shipped, created_at`

func scanSecurityEvent(row interface{ Scan(dest ...any) error }) (*models.SecurityEvent, error) {
	event := &models.SecurityEvent{}
	var principalJSON, detailsJSON []byte
	err := row.Scan(
		&event.ID, &event.Seq, &event.EventType, &principalJSON,
		&detailsJSON, &event.Severity, &event.Shipped, &event.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	if len(principalJSON) > 0 {
		if err := json.Unmarshal(principalJSON, &event.Principal); err != nil {
			return nil, err
		}
	}
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &event.Details); err != nil {
			return nil, err
		}
	}
	return event, nil
}

func (r *securityEventsRepo) List(ctx context.Context, filters *models.SecurityEventFilters) ([]*models.SecurityEvent, error) {
	query := `SELECT ` + securityEventColumns + ` FROM security_events WHERE 1=1`
	args := []any{}
	argPos := 1

	if filters.EventType != nil {
		query += fmt.Sprintf(" AND event_type = $%d", argPos)
		args = append(args, *filters.EventType)
		argPos++
	}
	if filters.Severity != nil {
		query += fmt.Sprintf(" AND severity = $%d", argPos)
		args = append(args, *filters.Severity)
		argPos++
	}
	if filters.PrincipalID != nil {
		query += fmt.Sprintf(" AND principal->>'id' = $%d", argPos)
		args = append(args, filters.PrincipalID.String())
		argPos++
	}
	if filters.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, *filters.StartDate)
		argPos++
	}
	if filters.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argPos)
		args = append(args, *filters.EndDate)
		argPos++
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY seq ASC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.SecurityEvent
	for rows.Next() {
		event, err := scanSecurityEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *securityEventsRepo) ListUnshipped(ctx context.Context, limit int) ([]*models.SecurityEvent, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT ` + securityEventColumns + ` FROM security_events WHERE shipped = FALSE ORDER BY seq ASC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.SecurityEvent
	for rows.Next() {
		event, err := scanSecurityEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *securityEventsRepo) MarkShipped(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE security_events SET shipped = TRUE WHERE id = ANY($1)`
	_, err := r.db.Exec(ctx, query, ids)
	return err
}
