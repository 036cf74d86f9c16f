package services

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// EmployeeSyncStore defines the database operations needed for the
// capability sync.
type EmployeeSyncStore interface {
	ListEmployees(ctx context.Context, filter db.EmployeeFilter) ([]db.Employee, error)
	UpdateEmployeeCapabilities(ctx context.Context, id string, capabilities []model.Role) error
}

// SyncEmployeeCapabilities re-derives every employee's capability set from
// their role and repairs rows that drifted. Re-running it reaches a fixed
// point immediately: a second sync repairs nothing.
func SyncEmployeeCapabilities(ctx context.Context, store EmployeeSyncStore, logger *zap.Logger) (int, error) {
	employees, err := store.ListEmployees(ctx, db.EmployeeFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list employees: %w", err)
	}

	repaired := 0
	for _, emp := range employees {
		want := model.CapabilitySet(emp.Role)
		if want == nil {
			logger.Warn("Employee has unknown role, skipping",
				zap.String("employee_id", emp.ID),
				zap.String("role", string(emp.Role)))
			continue
		}
		if slices.Equal(emp.Capabilities, want) {
			continue
		}
		if err := store.UpdateEmployeeCapabilities(ctx, emp.ID, want); err != nil {
			return repaired, fmt.Errorf("failed to repair capabilities for %s: %w", emp.ID, err)
		}
		logger.Info("Capabilities repaired",
			zap.String("employee_id", emp.ID),
			zap.String("role", string(emp.Role)))
		repaired++
	}

	logger.Info("Capability sync finished",
		zap.Int("employees", len(employees)),
		zap.Int("repaired", repaired))
	return repaired, nil
}
