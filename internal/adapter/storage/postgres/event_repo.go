package postgres

import (
	"context"
	"fmt"

	"chemdist-fulfillment/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EventRepo implements ports.EventRepository as a transactional outbox.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Insert stores an event in the same transaction as the state change it
// describes.
func (r *EventRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.WorkflowEvent) error {
	query := `INSERT INTO workflow_events (id, event_type, order_id, customer_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		e.ID, string(e.EventType), e.OrderID, e.CustomerID, e.Payload, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow event: %w", err)
	}
	return nil
}

// FetchUnpublished returns the oldest unpublished events for the dispatcher.
func (r *EventRepo) FetchUnpublished(ctx context.Context, limit int) ([]domain.WorkflowEvent, error) {
	query := `SELECT id, event_type, order_id, customer_id, payload, created_at, published_at, last_error
		FROM workflow_events WHERE published_at IS NULL
		ORDER BY created_at ASC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished events: %w", err)
	}
	defer rows.Close()

	var events []domain.WorkflowEvent
	for rows.Next() {
		var e domain.WorkflowEvent
		var eventType string
		if err := rows.Scan(&e.ID, &eventType, &e.OrderID, &e.CustomerID,
			&e.Payload, &e.CreatedAt, &e.PublishedAt, &e.LastError); err != nil {
			return nil, fmt.Errorf("scan workflow event: %w", err)
		}
		e.EventType = domain.EventType(eventType)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow events: %w", err)
	}
	return events, nil
}

// MarkPublished stamps a successfully delivered event.
func (r *EventRepo) MarkPublished(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE workflow_events SET published_at = NOW(), last_error = NULL WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}

// MarkFailed records the delivery error; the event stays eligible for retry.
func (r *EventRepo) MarkFailed(ctx context.Context, id uuid.UUID, publishErr error) error {
	query := `UPDATE workflow_events SET last_error = $1 WHERE id = $2`

	if _, err := r.pool.Exec(ctx, query, publishErr.Error(), id); err != nil {
		return fmt.Errorf("mark event failed: %w", err)
	}
	return nil
}
