package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonasweber/staffwerk/pkg/db"
)

// GetWorkAssignments retrieves all assignments for the event.
func (d *DB) GetWorkAssignments(ctx context.Context, eventID string) ([]db.WorkAssignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT employee_id, work_area_id, event_id, created_at
		FROM work_assignment
		WHERE event_id = $1
		ORDER BY employee_id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []db.WorkAssignment
	for rows.Next() {
		var wa db.WorkAssignment
		if err := rows.Scan(&wa.EmployeeID, &wa.WorkAreaID, &wa.EventID, &wa.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, wa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}
	return assignments, nil
}

// UpsertWorkAssignment assigns the employee to the area. The area row is
// locked before the occupancy check, so two operators assigning different
// employees concurrently serialize on the lock instead of both reading a
// stale count and overshooting max_capacity. The upsert on
// (employee_id, event_id) means re-assigning moves the employee instead of
// duplicating them.
func (d *DB) UpsertWorkAssignment(ctx context.Context, employeeID, workAreaID, eventID string) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var maxCapacity int
	err = tx.QueryRow(ctx, `
		SELECT max_capacity FROM work_area WHERE id = $1 FOR UPDATE
	`, workAreaID).Scan(&maxCapacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("work area %s: %w", workAreaID, db.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock work area: %w", err)
	}

	var occupied int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM work_assignment WHERE work_area_id = $1 AND employee_id <> $2
	`, workAreaID, employeeID).Scan(&occupied)
	if err != nil {
		return fmt.Errorf("failed to count occupancy: %w", err)
	}
	if occupied >= maxCapacity {
		return fmt.Errorf("work area %s is at capacity: %w", workAreaID, db.ErrConflict)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO work_assignment (employee_id, work_area_id, event_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (employee_id, event_id) DO UPDATE SET
			work_area_id = EXCLUDED.work_area_id
	`, employeeID, workAreaID, eventID); err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit assignment: %w", err)
	}
	return nil
}

// DeleteWorkAssignment removes the employee's assignment for the event.
func (d *DB) DeleteWorkAssignment(ctx context.Context, employeeID, eventID string) error {
	tag, err := d.pool.Exec(ctx, `
		DELETE FROM work_assignment WHERE employee_id = $1 AND event_id = $2
	`, employeeID, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignment for employee %s at event %s: %w", employeeID, eventID, db.ErrNotFound)
	}
	return nil
}

// DeleteWorkAssignments clears every assignment of the event.
func (d *DB) DeleteWorkAssignments(ctx context.Context, eventID string) error {
	_, err := d.pool.Exec(ctx, `
		DELETE FROM work_assignment WHERE event_id = $1
	`, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	return nil
}
