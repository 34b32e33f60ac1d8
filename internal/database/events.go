package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nestling-app/nestling-api/internal/models"
)

// DefaultEventListLimit bounds unpaginated event listings.
const DefaultEventListLimit = 2000

// EventRepository handles care event database operations.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event. The occurrence time is immutable after this
// point.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, profile_id, kind, quantity, occurred_at, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		event.ID,
		event.ProfileID,
		event.Kind,
		event.Quantity,
		event.OccurredAt,
		event.Note,
		now,
		now,
	).Scan(&event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

// GetByID retrieves an event by ID. Soft-deleted events are not returned.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event := &models.Event{}
	var note sql.NullString

	query := `
		SELECT id, profile_id, kind, quantity, occurred_at, note, created_at, updated_at
		FROM events
		WHERE id = $1 AND deleted_at IS NULL
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.ProfileID,
		&event.Kind,
		&event.Quantity,
		&event.OccurredAt,
		&note,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	event.Note = note.String

	return event, nil
}

// ListByProfile retrieves events for a profile, newest occurrence first,
// optionally filtered by kind. Soft-deleted events are excluded. A limit of 0
// applies DefaultEventListLimit.
func (r *EventRepository) ListByProfile(ctx context.Context, profileID uuid.UUID, kind *models.EventKind, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventListLimit
	}

	query := `
		SELECT id, profile_id, kind, quantity, occurred_at, note, created_at, updated_at
		FROM events
		WHERE profile_id = $1 AND deleted_at IS NULL
	`
	args := []any{profileID}
	argIndex := 2

	if kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argIndex)
		args = append(args, string(*kind))
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		var note sql.NullString

		err := rows.Scan(
			&event.ID,
			&event.ProfileID,
			&event.Kind,
			&event.Quantity,
			&event.OccurredAt,
			&note,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		event.Note = note.String
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// Update modifies the kind, quantity and note of an existing event. The
// occurrence time never changes; correcting a mis-timed entry means deleting
// it and recording a new one.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET kind = $2, quantity = $3, note = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING occurred_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		event.ID,
		event.Kind,
		event.Quantity,
		event.Note,
		time.Now(),
	).Scan(&event.OccurredAt, &event.UpdatedAt)

	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return nil
}

// SoftDelete marks an event as deleted without removing the row, so it stops
// contributing to aggregation and listings.
func (r *EventRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE events
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
