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

// OpenTimeRecord inserts the record unless an active one already exists
// for the (employee, event) pair; the partial unique index makes the
// insert-if-absent atomic. Returns false when a record was already open.
func (d *DB) OpenTimeRecord(ctx context.Context, record *db.TimeRecord) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		INSERT INTO time_record (id, employee_id, event_id, sign_in_time, hourly_rate, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		ON CONFLICT (employee_id, event_id) WHERE status = 'active' DO NOTHING
	`, record.ID, record.EmployeeID, record.EventID, record.SignInTime.UTC(), record.HourlyRate)
	if err != nil {
		return false, fmt.Errorf("failed to open time record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetActiveTimeRecord retrieves the open work session for the employee at
// the event.
func (d *DB) GetActiveTimeRecord(ctx context.Context, employeeID, eventID string) (*db.TimeRecord, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, employee_id, event_id, sign_in_time, sign_out_time,
		       hourly_rate, total_hours, total_payment, status
		FROM time_record
		WHERE employee_id = $1 AND event_id = $2 AND status = 'active'
	`, employeeID, eventID)

	var (
		record  db.TimeRecord
		status  string
		signOut *time.Time
	)
	err := row.Scan(&record.ID, &record.EmployeeID, &record.EventID, &record.SignInTime,
		&signOut, &record.HourlyRate, &record.TotalHours, &record.TotalPayment, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("active time record for employee %s at event %s: %w", employeeID, eventID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query time record: %w", err)
	}
	record.SignOutTime = signOut
	record.Status = model.TimeRecordStatus(status)
	return &record, nil
}

// CloseTimeRecord finalizes an active record. The update is conditional on
// status still being active; a record closed concurrently yields
// ErrConflict.
func (d *DB) CloseTimeRecord(ctx context.Context, id string, signOut time.Time, totalHours, totalPayment float64) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE time_record
		SET sign_out_time = $2, total_hours = $3, total_payment = $4, status = 'completed'
		WHERE id = $1 AND status = 'active'
	`, id, signOut.UTC(), totalHours, totalPayment)
	if err != nil {
		return fmt.Errorf("failed to close time record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("time record %s is not active: %w", id, db.ErrConflict)
	}
	return nil
}

// DeleteTimeRecords clears every time record of the event. Used only by
// the operator event reset.
func (d *DB) DeleteTimeRecords(ctx context.Context, eventID string) error {
	_, err := d.pool.Exec(ctx, `
		DELETE FROM time_record WHERE event_id = $1
	`, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete time records: %w", err)
	}
	return nil
}
