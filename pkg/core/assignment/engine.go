// Package assignment plans the placement of committed employees into
// capacity-bounded work areas. Planning is pure: the services layer applies
// a Plan through conditional store writes so capacity holds even under
// concurrent operators.
package assignment

import (
	"cmp"
	"slices"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/core/recruiting"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// Placement assigns one employee to one work area.
type Placement struct {
	EmployeeID string
	WorkAreaID string
	// ForRole is set when the placement satisfies a role requirement rather
	// than general capacity.
	ForRole model.Role
}

// UnmetRequirement reports a role minimum that could not be satisfied.
type UnmetRequirement struct {
	WorkAreaID string
	Role       model.Role
	Missing    int
}

// Plan is the outcome of one auto-assignment run.
type Plan struct {
	Placements        []Placement
	Unassigned        []string
	UnmetRequirements []UnmetRequirement
}

// BuildPlan fills work areas in position order: role minimums first
// (exact-role matches before capability-derived ones), then remaining
// capacity in fairness order. Employees already holding an assignment for
// the event are left alone and count against their area's capacity. Each
// employee receives at most one placement.
func BuildPlan(areas []db.WorkArea, available []db.Employee, existing []db.WorkAssignment) Plan {
	active := make([]db.WorkArea, 0, len(areas))
	for _, area := range areas {
		if area.IsActive {
			active = append(active, area)
		}
	}
	slices.SortStableFunc(active, func(a, b db.WorkArea) int {
		if c := cmp.Compare(a.PositionOrder, b.PositionOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	assignedEmployees := make(map[string]bool, len(existing))
	occupied := make(map[string]int, len(existing))
	for _, wa := range existing {
		assignedEmployees[wa.EmployeeID] = true
		occupied[wa.WorkAreaID]++
	}

	pool := make([]db.Employee, 0, len(available))
	for _, emp := range available {
		if !assignedEmployees[emp.ID] {
			pool = append(pool, emp)
		}
	}
	recruiting.SortByFairness(pool)

	plan := Plan{}
	for _, area := range active {
		capacity := area.MaxCapacity - occupied[area.ID]
		if capacity <= 0 {
			continue
		}

		// Phase 1: role minimums, exact matches before capability matches.
		for _, role := range model.Roles() {
			needed := area.RoleRequirements[role]
			if needed <= 0 {
				continue
			}
			filled := 0
			for _, exact := range []bool{true, false} {
				for filled < needed && capacity > 0 {
					idx := findCandidate(pool, role, exact)
					if idx < 0 {
						break
					}
					plan.Placements = append(plan.Placements, Placement{
						EmployeeID: pool[idx].ID,
						WorkAreaID: area.ID,
						ForRole:    role,
					})
					pool = slices.Delete(pool, idx, idx+1)
					filled++
					capacity--
				}
			}
			if filled < needed {
				plan.UnmetRequirements = append(plan.UnmetRequirements, UnmetRequirement{
					WorkAreaID: area.ID,
					Role:       role,
					Missing:    needed - filled,
				})
			}
		}

		// Phase 2: fill remaining capacity from the pool in fairness order.
		for capacity > 0 && len(pool) > 0 {
			plan.Placements = append(plan.Placements, Placement{
				EmployeeID: pool[0].ID,
				WorkAreaID: area.ID,
			})
			pool = pool[1:]
			capacity--
		}
	}

	for _, emp := range pool {
		plan.Unassigned = append(plan.Unassigned, emp.ID)
	}
	return plan
}

// findCandidate returns the index of the first pool member (fairness order)
// matching the role, exactly or by capability.
func findCandidate(pool []db.Employee, role model.Role, exact bool) int {
	for i, emp := range pool {
		if exact && emp.Role == role {
			return i
		}
		if !exact && emp.Role.CanPerform(role) {
			return i
		}
	}
	return -1
}
