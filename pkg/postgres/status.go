package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// GetEmployeeEventStatuses retrieves all status rows for the event.
func (d *DB) GetEmployeeEventStatuses(ctx context.Context, eventID string) ([]db.EmployeeEventStatus, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT employee_id, event_id, status, responded_at, response_method, updated_at
		FROM employee_event_status
		WHERE event_id = $1
		ORDER BY employee_id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses: %w", err)
	}
	defer rows.Close()

	var statuses []db.EmployeeEventStatus
	for rows.Next() {
		var (
			s           db.EmployeeEventStatus
			status      string
			respondedAt *time.Time
		)
		if err := rows.Scan(&s.EmployeeID, &s.EventID, &status, &respondedAt, &s.ResponseMethod, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		s.Status = model.ParticipationStatus(status)
		s.RespondedAt = respondedAt
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statuses: %w", err)
	}
	return statuses, nil
}

// UpsertEmployeeEventStatus inserts or replaces the row keyed on
// (employee_id, event_id): last write wins by updated_at.
func (d *DB) UpsertEmployeeEventStatus(ctx context.Context, status db.EmployeeEventStatus) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO employee_event_status
			(employee_id, event_id, status, responded_at, response_method, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (employee_id, event_id) DO UPDATE SET
			status = EXCLUDED.status,
			responded_at = EXCLUDED.responded_at,
			response_method = EXCLUDED.response_method,
			updated_at = NOW()
	`, status.EmployeeID, status.EventID, string(status.Status), status.RespondedAt, status.ResponseMethod)
	if err != nil {
		return fmt.Errorf("failed to upsert status: %w", err)
	}
	return nil
}

// DeleteEmployeeEventStatuses clears every status row of the event.
func (d *DB) DeleteEmployeeEventStatuses(ctx context.Context, eventID string) error {
	_, err := d.pool.Exec(ctx, `
		DELETE FROM employee_event_status WHERE event_id = $1
	`, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete statuses: %w", err)
	}
	return nil
}
