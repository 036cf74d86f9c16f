package db

import (
	"context"
	"time"

	"github.com/jonasweber/staffwerk/pkg/core/model"
)

// EmployeeStore defines the employee registry operations.
type EmployeeStore interface {
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
	// UpdateEmployeeCapabilities replaces the stored capability set. Used by
	// the sync operation that repairs capabilities drifted from the role.
	UpdateEmployeeCapabilities(ctx context.Context, id string, capabilities []model.Role) error
	// RecordEmployeeWork advances last_worked_date (never backwards) and
	// accumulates total hours after a completed work session.
	RecordEmployeeWork(ctx context.Context, id string, workedAt time.Time, hours float64) error
}

// EventStore defines the event registry operations.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	InsertEvent(ctx context.Context, event *Event) error
	// InsertEventIfAbsent inserts the event unless one with the same title
	// and date already exists. Returns false when the row was already there.
	InsertEventIfAbsent(ctx context.Context, event *Event) (bool, error)
	// UpdateEventStatus moves the event from one status to another. The
	// write is conditional on the current status; a stale "from" yields
	// ErrConflict, an unknown event ErrNotFound.
	UpdateEventStatus(ctx context.Context, id string, from, to model.EventStatus) error
}

// ParticipationStore defines the per-event employee status operations.
type ParticipationStore interface {
	GetEmployeeEventStatuses(ctx context.Context, eventID string) ([]EmployeeEventStatus, error)
	// UpsertEmployeeEventStatus inserts or replaces the row keyed on
	// (employee_id, event_id). Last write wins by updated_at.
	UpsertEmployeeEventStatus(ctx context.Context, status EmployeeEventStatus) error
	DeleteEmployeeEventStatuses(ctx context.Context, eventID string) error
}

// WorkAreaStore defines work area operations.
type WorkAreaStore interface {
	GetWorkAreas(ctx context.Context, eventID string) ([]WorkArea, error)
	InsertWorkArea(ctx context.Context, area *WorkArea) error
}

// AssignmentStore defines work assignment operations. Writes are atomic
// conditional writes keyed on (employee_id, event_id).
type AssignmentStore interface {
	GetWorkAssignments(ctx context.Context, eventID string) ([]WorkAssignment, error)
	// UpsertWorkAssignment assigns the employee to the area, replacing any
	// existing assignment for the same event. Returns ErrConflict when the
	// target area is at max capacity.
	UpsertWorkAssignment(ctx context.Context, employeeID, workAreaID, eventID string) error
	DeleteWorkAssignment(ctx context.Context, employeeID, eventID string) error
	DeleteWorkAssignments(ctx context.Context, eventID string) error
}

// TimeRecordStore defines work session operations.
type TimeRecordStore interface {
	// OpenTimeRecord inserts the record unless an active one already exists
	// for the (employee, event) pair. Returns false when it was already open.
	OpenTimeRecord(ctx context.Context, record *TimeRecord) (bool, error)
	GetActiveTimeRecord(ctx context.Context, employeeID, eventID string) (*TimeRecord, error)
	// CloseTimeRecord finalizes an active record with computed totals. The
	// update is conditional on status=active; a record closed in between
	// yields ErrConflict.
	CloseTimeRecord(ctx context.Context, id string, signOut time.Time, totalHours, totalPayment float64) error
	DeleteTimeRecords(ctx context.Context, eventID string) error
}

// Store aggregates every store interface; the postgres implementation
// satisfies all of them. Services declare their own narrow interfaces and
// accept this (or a fake) through them.
type Store interface {
	EmployeeStore
	EventStore
	ParticipationStore
	WorkAreaStore
	AssignmentStore
	TimeRecordStore
}
