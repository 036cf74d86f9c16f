package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// WorkSessionStore defines the database operations needed for sign-in and
// sign-out.
type WorkSessionStore interface {
	GetEvent(ctx context.Context, id string) (*db.Event, error)
	GetEmployee(ctx context.Context, id string) (*db.Employee, error)
	OpenTimeRecord(ctx context.Context, record *db.TimeRecord) (bool, error)
	GetActiveTimeRecord(ctx context.Context, employeeID, eventID string) (*db.TimeRecord, error)
	CloseTimeRecord(ctx context.Context, id string, signOut time.Time, totalHours, totalPayment float64) error
	RecordEmployeeWork(ctx context.Context, id string, workedAt time.Time, hours float64) error
}

// SignIn opens a work session for the employee at the event. At most one
// active record may exist per (employee, event); signing in twice yields a
// conflict.
func SignIn(ctx context.Context, store WorkSessionStore, logger *zap.Logger, employeeID, eventID string, at time.Time) (*db.TimeRecord, error) {
	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if _, err := store.GetEmployee(ctx, employeeID); err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}

	record := &db.TimeRecord{
		ID:         uuid.New().String(),
		EmployeeID: employeeID,
		EventID:    eventID,
		SignInTime: at,
		HourlyRate: event.HourlyRate,
		Status:     model.TimeRecordActive,
	}
	created, err := store.OpenTimeRecord(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to open time record: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("employee %s already signed in for event %s: %w", employeeID, eventID, db.ErrConflict)
	}

	logger.Info("Employee signed in",
		zap.String("employee_id", employeeID),
		zap.String("event_id", eventID),
		zap.Time("at", at))
	return record, nil
}

// SignOut closes the employee's active work session, computing total hours
// and payment from the hourly rate captured at sign-in, and folds the hours
// into the employee's work history so future fairness rankings see them.
// Fails when no active record exists.
func SignOut(ctx context.Context, store WorkSessionStore, logger *zap.Logger, employeeID, eventID string, at time.Time) (*db.TimeRecord, error) {
	record, err := store.GetActiveTimeRecord(ctx, employeeID, eventID)
	if err != nil {
		return nil, fmt.Errorf("no active time record for employee %s at event %s: %w", employeeID, eventID, err)
	}
	if at.Before(record.SignInTime) {
		return nil, fmt.Errorf("sign-out %s precedes sign-in %s", at.Format(time.RFC3339), record.SignInTime.Format(time.RFC3339))
	}

	totalHours := at.Sub(record.SignInTime).Hours()
	totalPayment := totalHours * record.HourlyRate

	if err := store.CloseTimeRecord(ctx, record.ID, at, totalHours, totalPayment); err != nil {
		return nil, fmt.Errorf("failed to close time record: %w", err)
	}
	if err := store.RecordEmployeeWork(ctx, employeeID, at, totalHours); err != nil {
		return nil, fmt.Errorf("failed to update work history: %w", err)
	}

	signOut := at
	record.SignOutTime = &signOut
	record.TotalHours = totalHours
	record.TotalPayment = totalPayment
	record.Status = model.TimeRecordCompleted

	logger.Info("Employee signed out",
		zap.String("employee_id", employeeID),
		zap.String("event_id", eventID),
		zap.Float64("total_hours", totalHours),
		zap.Float64("total_payment", totalPayment))
	return record, nil
}
