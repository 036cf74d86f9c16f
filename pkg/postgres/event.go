package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// GetEvent retrieves a single event by ID.
func (d *DB) GetEvent(ctx context.Context, id string) (*db.Event, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, title, location, event_date, start_time, end_time,
		       hourly_rate, employees_needed, employees_to_ask, status
		FROM event
		WHERE id = $1
	`, id)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, db.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	return event, nil
}

// ListEvents retrieves events matching the filter, oldest first.
func (d *DB) ListEvents(ctx context.Context, filter db.EventFilter) ([]db.Event, error) {
	statuses := make([]string, len(filter.Statuses))
	for i, s := range filter.Statuses {
		statuses[i] = string(s)
	}

	rows, err := d.pool.Query(ctx, `
		SELECT id, title, location, event_date, start_time, end_time,
		       hourly_rate, employees_needed, employees_to_ask, status
		FROM event
		WHERE cardinality($1::text[]) = 0 OR status = ANY($1)
		ORDER BY event_date, id
	`, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []db.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// InsertEvent inserts a new event record.
func (d *DB) InsertEvent(ctx context.Context, event *db.Event) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO event (id, title, location, event_date, start_time, end_time,
		                   hourly_rate, employees_needed, employees_to_ask, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, event.ID, event.Title, event.Location, event.Date, event.StartTime, event.EndTime,
		event.HourlyRate, event.EmployeesNeeded, event.EmployeesToAsk, string(event.Status))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// InsertEventIfAbsent inserts the event unless one with the same title and
// date already exists. Returns false when the occurrence was already
// materialized.
func (d *DB) InsertEventIfAbsent(ctx context.Context, event *db.Event) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		INSERT INTO event (id, title, location, event_date, start_time, end_time,
		                   hourly_rate, employees_needed, employees_to_ask, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (title, event_date) DO NOTHING
	`, event.ID, event.Title, event.Location, event.Date, event.StartTime, event.EndTime,
		event.HourlyRate, event.EmployeesNeeded, event.EmployeesToAsk, string(event.Status))
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateEventStatus moves the event between statuses. The write is
// conditional on the current status; losing the condition yields
// ErrConflict so a racing sweep cannot double-transition.
func (d *DB) UpdateEventStatus(ctx context.Context, id string, from, to model.EventStatus) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE event SET status = $3 WHERE id = $1 AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Distinguish a missing event from a stale precondition.
	var current string
	err = d.pool.QueryRow(ctx, `SELECT status FROM event WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("event %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query event status: %w", err)
	}
	return fmt.Errorf("event %s is %s, expected %s: %w", id, current, from, db.ErrConflict)
}

func scanEvent(row pgx.Row) (*db.Event, error) {
	var (
		event  db.Event
		status string
		date   time.Time
	)
	if err := row.Scan(&event.ID, &event.Title, &event.Location, &date,
		&event.StartTime, &event.EndTime, &event.HourlyRate,
		&event.EmployeesNeeded, &event.EmployeesToAsk, &status); err != nil {
		return nil, err
	}
	event.Date = date
	event.Status = model.EventStatus(status)
	return &event, nil
}
