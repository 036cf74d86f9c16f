// Package services contains the orchestration layer: each operation wires
// the pure core (recruiting, assignment, model) to the store and collabora-
// tors, with the database operations it needs declared as a narrow
// interface next to the service itself.
package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/pkg/core/assignment"
	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// AssignStore defines the database operations needed for work area
// assignment.
type AssignStore interface {
	GetEvent(ctx context.Context, id string) (*db.Event, error)
	GetEmployee(ctx context.Context, id string) (*db.Employee, error)
	ListEmployees(ctx context.Context, filter db.EmployeeFilter) ([]db.Employee, error)
	GetWorkAreas(ctx context.Context, eventID string) ([]db.WorkArea, error)
	GetEmployeeEventStatuses(ctx context.Context, eventID string) ([]db.EmployeeEventStatus, error)
	UpsertEmployeeEventStatus(ctx context.Context, status db.EmployeeEventStatus) error
	GetWorkAssignments(ctx context.Context, eventID string) ([]db.WorkAssignment, error)
	UpsertWorkAssignment(ctx context.Context, employeeID, workAreaID, eventID string) error
	DeleteWorkAssignment(ctx context.Context, employeeID, eventID string) error
	DeleteWorkAssignments(ctx context.Context, eventID string) error
}

// SkippedPlacement records one placement the store rejected, typically a
// capacity conflict from a concurrent assignment.
type SkippedPlacement struct {
	Placement assignment.Placement
	Err       error
}

// AssignResult reports what an auto-assignment run actually did.
type AssignResult struct {
	Applied           []assignment.Placement
	Skipped           []SkippedPlacement
	Unassigned        []string
	UnmetRequirements []assignment.UnmetRequirement
}

// AutoAssignWorkAreas plans placements for every committed employee of the
// event and applies them. Conflicting placements are skipped individually;
// the rest of the batch proceeds.
func AutoAssignWorkAreas(ctx context.Context, store AssignStore, logger *zap.Logger, eventID string) (*AssignResult, error) {
	logger.Debug("Starting auto-assignment", zap.String("event_id", eventID))

	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	areas, err := store.GetWorkAreas(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load work areas: %w", err)
	}
	statuses, err := store.GetEmployeeEventStatuses(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load statuses: %w", err)
	}
	employees, err := store.ListEmployees(ctx, db.EmployeeFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	existing, err := store.GetWorkAssignments(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	committed := committedEmployees(employees, statuses)
	logger.Debug("Planning placements",
		zap.Int("committed", len(committed)),
		zap.Int("areas", len(areas)),
		zap.Int("existing", len(existing)))

	plan := assignment.BuildPlan(areas, committed, existing)

	result := &AssignResult{
		Unassigned:        plan.Unassigned,
		UnmetRequirements: plan.UnmetRequirements,
	}

	statusByEmployee := make(map[string]db.EmployeeEventStatus, len(statuses))
	for _, s := range statuses {
		statusByEmployee[s.EmployeeID] = s
	}

	for _, placement := range plan.Placements {
		if err := store.UpsertWorkAssignment(ctx, placement.EmployeeID, placement.WorkAreaID, event.ID); err != nil {
			logger.Warn("Placement skipped",
				zap.String("employee_id", placement.EmployeeID),
				zap.String("work_area_id", placement.WorkAreaID),
				zap.Error(err))
			result.Skipped = append(result.Skipped, SkippedPlacement{Placement: placement, Err: err})
			continue
		}
		if err := markSelected(ctx, store, statusByEmployee[placement.EmployeeID], placement.EmployeeID, event.ID); err != nil {
			result.Skipped = append(result.Skipped, SkippedPlacement{Placement: placement, Err: err})
			continue
		}
		result.Applied = append(result.Applied, placement)
	}

	logger.Info("Auto-assignment finished",
		zap.String("event_id", event.ID),
		zap.Int("applied", len(result.Applied)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("unassigned", len(result.Unassigned)),
		zap.Int("unmet_requirements", len(result.UnmetRequirements)))
	return result, nil
}

// AssignEmployee manually places one employee into a work area, replacing
// any existing assignment for the same event. Capacity is validated by the
// store's conditional write.
func AssignEmployee(ctx context.Context, store AssignStore, logger *zap.Logger, employeeID, workAreaID, eventID string) error {
	if _, err := store.GetEmployee(ctx, employeeID); err != nil {
		return fmt.Errorf("failed to load employee: %w", err)
	}

	areas, err := store.GetWorkAreas(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load work areas: %w", err)
	}
	var target *db.WorkArea
	for i := range areas {
		if areas[i].ID == workAreaID {
			target = &areas[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("work area %s: %w", workAreaID, db.ErrNotFound)
	}
	if !target.IsActive {
		return fmt.Errorf("work area %s is not active", workAreaID)
	}

	if err := store.UpsertWorkAssignment(ctx, employeeID, workAreaID, eventID); err != nil {
		return fmt.Errorf("failed to assign employee %s to %s: %w", employeeID, workAreaID, err)
	}

	statuses, err := store.GetEmployeeEventStatuses(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load statuses: %w", err)
	}
	var current db.EmployeeEventStatus
	for _, s := range statuses {
		if s.EmployeeID == employeeID {
			current = s
			break
		}
	}
	if err := markSelected(ctx, store, current, employeeID, eventID); err != nil {
		return err
	}

	logger.Info("Employee assigned",
		zap.String("employee_id", employeeID),
		zap.String("work_area_id", workAreaID),
		zap.String("event_id", eventID))
	return nil
}

// RemoveAssignment deletes an employee's assignment and reverts their
// status to available (always-needed employees keep their commitment).
func RemoveAssignment(ctx context.Context, store AssignStore, logger *zap.Logger, employeeID, eventID string) error {
	if err := store.DeleteWorkAssignment(ctx, employeeID, eventID); err != nil {
		return fmt.Errorf("failed to remove assignment: %w", err)
	}
	if err := revertCommitment(ctx, store, employeeID, eventID); err != nil {
		return err
	}
	logger.Info("Assignment removed",
		zap.String("employee_id", employeeID),
		zap.String("event_id", eventID))
	return nil
}

// ResetAssignments clears every assignment of the event and reverts all
// selected employees, so auto-assignment can be re-run from a clean slate.
func ResetAssignments(ctx context.Context, store AssignStore, logger *zap.Logger, eventID string) error {
	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to load event: %w", err)
	}
	if err := store.DeleteWorkAssignments(ctx, eventID); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}

	statuses, err := store.GetEmployeeEventStatuses(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load statuses: %w", err)
	}
	reverted := 0
	for _, status := range statuses {
		if status.Status != model.ParticipationSelected {
			continue
		}
		if err := revertCommitment(ctx, store, status.EmployeeID, eventID); err != nil {
			return err
		}
		reverted++
	}

	logger.Info("Assignments reset",
		zap.String("event_id", eventID),
		zap.Int("reverted", reverted))
	return nil
}

func committedEmployees(employees []db.Employee, statuses []db.EmployeeEventStatus) []db.Employee {
	committed := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		if s.Status.IsCommitted() {
			committed[s.EmployeeID] = true
		}
	}
	out := make([]db.Employee, 0, len(committed))
	for _, emp := range employees {
		if committed[emp.ID] {
			out = append(out, emp)
		}
	}
	return out
}

// markSelected promotes a committed status to selected. Always-needed
// commitments are left untouched so a reset can restore them.
func markSelected(ctx context.Context, store AssignStore, current db.EmployeeEventStatus, employeeID, eventID string) error {
	if current.Status == model.ParticipationAlwaysNeeded {
		return nil
	}
	current.EmployeeID = employeeID
	current.EventID = eventID
	current.Status = model.ParticipationSelected
	if err := store.UpsertEmployeeEventStatus(ctx, current); err != nil {
		return fmt.Errorf("failed to mark employee %s selected: %w", employeeID, err)
	}
	return nil
}

func revertCommitment(ctx context.Context, store AssignStore, employeeID, eventID string) error {
	employee, err := store.GetEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load employee: %w", err)
	}

	status := model.ParticipationAvailable
	if employee.AlwaysNeeded {
		status = model.ParticipationAlwaysNeeded
	}
	if err := store.UpsertEmployeeEventStatus(ctx, db.EmployeeEventStatus{
		EmployeeID: employeeID,
		EventID:    eventID,
		Status:     status,
	}); err != nil {
		return fmt.Errorf("failed to revert status for %s: %w", employeeID, err)
	}
	return nil
}
