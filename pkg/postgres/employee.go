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

// GetEmployee retrieves a single employee by ID.
func (d *DB) GetEmployee(ctx context.Context, id string) (*db.Employee, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, name, email, role, capabilities, employment_type,
		       always_needed, last_worked_date, total_hours_worked
		FROM employee
		WHERE id = $1
	`, id)

	emp, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("employee %s: %w", id, db.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query employee: %w", err)
	}
	return emp, nil
}

// ListEmployees retrieves employees matching the filter, ordered by ID for
// deterministic output.
func (d *DB) ListEmployees(ctx context.Context, filter db.EmployeeFilter) ([]db.Employee, error) {
	query := `
		SELECT id, name, email, role, capabilities, employment_type,
		       always_needed, last_worked_date, total_hours_worked
		FROM employee
		WHERE ($1 = '' OR role = $1)
		  AND ($2 = '' OR employment_type = $2)
		  AND ($3::boolean IS NULL OR always_needed = $3)
		ORDER BY id
	`
	rows, err := d.pool.Query(ctx, query, string(filter.Role), string(filter.EmploymentType), filter.AlwaysNeeded)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []db.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, *emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}
	return employees, nil
}

// UpdateEmployeeCapabilities replaces the stored capability set with the
// one derived from the employee's role.
func (d *DB) UpdateEmployeeCapabilities(ctx context.Context, id string, capabilities []model.Role) error {
	caps := make([]string, len(capabilities))
	for i, c := range capabilities {
		caps[i] = string(c)
	}

	tag, err := d.pool.Exec(ctx, `
		UPDATE employee SET capabilities = $2 WHERE id = $1
	`, id, caps)
	if err != nil {
		return fmt.Errorf("failed to update capabilities: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("employee %s: %w", id, db.ErrNotFound)
	}
	return nil
}

// RecordEmployeeWork folds a completed work session into the employee's
// history. last_worked_date only ever moves forward.
func (d *DB) RecordEmployeeWork(ctx context.Context, id string, workedAt time.Time, hours float64) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE employee
		SET last_worked_date = GREATEST(COALESCE(last_worked_date, $2), $2),
		    total_hours_worked = total_hours_worked + $3
		WHERE id = $1
	`, id, workedAt.UTC(), hours)
	if err != nil {
		return fmt.Errorf("failed to record employee work: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("employee %s: %w", id, db.ErrNotFound)
	}
	return nil
}

func scanEmployee(row pgx.Row) (*db.Employee, error) {
	var (
		emp        db.Employee
		role       string
		caps       []string
		employment string
		lastWorked *time.Time
	)
	if err := row.Scan(&emp.ID, &emp.Name, &emp.Email, &role, &caps, &employment,
		&emp.AlwaysNeeded, &lastWorked, &emp.TotalHoursWorked); err != nil {
		return nil, err
	}

	emp.Role = model.Role(role)
	emp.EmploymentType = model.EmploymentType(employment)
	emp.LastWorkedDate = lastWorked
	emp.Capabilities = make([]model.Role, len(caps))
	for i, c := range caps {
		emp.Capabilities[i] = model.Role(c)
	}
	return &emp, nil
}
