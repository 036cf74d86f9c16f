package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// GetWorkAreas retrieves the event's work areas in position order.
func (d *DB) GetWorkAreas(ctx context.Context, eventID string) ([]db.WorkArea, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, event_id, name, location, max_capacity, role_requirements,
		       is_active, position_order
		FROM work_area
		WHERE event_id = $1
		ORDER BY position_order, id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query work areas: %w", err)
	}
	defer rows.Close()

	var areas []db.WorkArea
	for rows.Next() {
		var (
			area         db.WorkArea
			requirements []byte
		)
		if err := rows.Scan(&area.ID, &area.EventID, &area.Name, &area.Location,
			&area.MaxCapacity, &requirements, &area.IsActive, &area.PositionOrder); err != nil {
			return nil, fmt.Errorf("failed to scan work area: %w", err)
		}

		var raw map[string]int
		if err := json.Unmarshal(requirements, &raw); err != nil {
			return nil, fmt.Errorf("invalid role requirements for work area %s: %w", area.ID, err)
		}
		area.RoleRequirements = make(map[model.Role]int, len(raw))
		for role, count := range raw {
			area.RoleRequirements[model.Role(role)] = count
		}

		areas = append(areas, area)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating work areas: %w", err)
	}
	return areas, nil
}

// InsertWorkArea inserts a new work area record.
func (d *DB) InsertWorkArea(ctx context.Context, area *db.WorkArea) error {
	raw := make(map[string]int, len(area.RoleRequirements))
	for role, count := range area.RoleRequirements {
		raw[string(role)] = count
	}
	requirements, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode role requirements: %w", err)
	}

	_, err = d.pool.Exec(ctx, `
		INSERT INTO work_area (id, event_id, name, location, max_capacity,
		                       role_requirements, is_active, position_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, area.ID, area.EventID, area.Name, area.Location, area.MaxCapacity,
		requirements, area.IsActive, area.PositionOrder)
	if err != nil {
		return fmt.Errorf("failed to insert work area: %w", err)
	}
	return nil
}
