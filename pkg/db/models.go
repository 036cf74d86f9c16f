package db

import (
	"time"

	"github.com/jonasweber/staffwerk/pkg/core/model"
)

// Employee is the authoritative employee record.
type Employee struct {
	ID             string
	Name           string
	Email          string
	Role           model.Role
	Capabilities   []model.Role
	EmploymentType model.EmploymentType
	AlwaysNeeded   bool
	// LastWorkedDate is nil for employees who have never worked an event.
	LastWorkedDate   *time.Time
	TotalHoursWorked float64
}

// Event is the authoritative event record.
type Event struct {
	ID       string
	Title    string
	Location string
	Date     time.Time
	// StartTime and EndTime are clock times in "15:04" format. EndTime may
	// be empty, in which case the event runs until end of day.
	StartTime       string
	EndTime         string
	HourlyRate      float64
	EmployeesNeeded int
	EmployeesToAsk  int
	Status          model.EventStatus
}

// StartAt combines the event date with its start time.
func (e Event) StartAt() time.Time {
	return atClockTime(e.Date, e.StartTime, 0, 0)
}

// EndAt combines the event date with its end time, defaulting to 23:59 when
// no end time is recorded.
func (e Event) EndAt() time.Time {
	return atClockTime(e.Date, e.EndTime, 23, 59)
}

func atClockTime(date time.Time, clock string, defaultHour, defaultMinute int) time.Time {
	hour, minute := defaultHour, defaultMinute
	if t, err := time.Parse("15:04", clock); err == nil {
		hour, minute = t.Hour(), t.Minute()
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}

// EmployeeEventStatus tracks one employee's recruitment state for one event.
// Exactly one row exists per (employee, event) pair; writes are upserts on
// that composite key.
type EmployeeEventStatus struct {
	EmployeeID     string
	EventID        string
	Status         model.ParticipationStatus
	RespondedAt    *time.Time
	ResponseMethod string
	UpdatedAt      time.Time
}

// WorkArea is a capacity-bounded staffing slot within an event.
type WorkArea struct {
	ID       string
	EventID  string
	Name     string
	Location string
	// MaxCapacity is the hard upper bound on assigned employees (>= 1).
	MaxCapacity int
	// RoleRequirements holds minimum counts per role that should be filled
	// before general capacity.
	RoleRequirements map[model.Role]int
	IsActive         bool
	PositionOrder    int
}

// WorkAssignment places an employee in a work area. An employee holds at
// most one assignment per event.
type WorkAssignment struct {
	EmployeeID string
	WorkAreaID string
	EventID    string
	CreatedAt  time.Time
}

// TimeRecord is a work session. At most one active record exists per
// (employee, event); sign-out closes it with computed totals.
type TimeRecord struct {
	ID           string
	EmployeeID   string
	EventID      string
	SignInTime   time.Time
	SignOutTime  *time.Time
	HourlyRate   float64
	TotalHours   float64
	TotalPayment float64
	Status       model.TimeRecordStatus
}

// EmployeeFilter narrows ListEmployees results. Zero value matches everyone.
type EmployeeFilter struct {
	Role           model.Role
	EmploymentType model.EmploymentType
	AlwaysNeeded   *bool
}

// EventFilter narrows ListEvents results. Zero value matches everything.
type EventFilter struct {
	Statuses []model.EventStatus
}
