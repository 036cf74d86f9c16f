package assignment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

func area(id string, order, capacity int, requirements map[model.Role]int) db.WorkArea {
	return db.WorkArea{
		ID:               id,
		EventID:          "ev1",
		Name:             id,
		MaxCapacity:      capacity,
		RoleRequirements: requirements,
		IsActive:         true,
		PositionOrder:    order,
	}
}

func placementsByArea(plan Plan) map[string][]string {
	byArea := make(map[string][]string)
	for _, p := range plan.Placements {
		byArea[p.WorkAreaID] = append(byArea[p.WorkAreaID], p.EmployeeID)
	}
	return byArea
}

func TestBuildPlan_RespectsCapacity(t *testing.T) {
	areas := []db.WorkArea{area("bar", 1, 2, nil)}
	employees := []db.Employee{
		{ID: "a", Role: model.RoleEssen},
		{ID: "b", Role: model.RoleEssen},
		{ID: "c", Role: model.RoleEssen},
	}

	plan := BuildPlan(areas, employees, nil)

	assert.Len(t, plan.Placements, 2)
	assert.Equal(t, []string{"c"}, plan.Unassigned)
}

func TestBuildPlan_ExactRoleBeforeCapability(t *testing.T) {
	// One versorger slot, one exact versorger and one allrounder available.
	// The exact match takes the slot even though the allrounder ranks higher
	// in fairness order.
	areas := []db.WorkArea{area("kitchen", 1, 1, map[model.Role]int{model.RoleVersorger: 1})}
	employees := []db.Employee{
		{ID: "allrounder", Role: model.RoleAllrounder},
		{ID: "versorger", Role: model.RoleVersorger, TotalHoursWorked: 100},
	}

	plan := BuildPlan(areas, employees, nil)

	require.Len(t, plan.Placements, 1)
	assert.Equal(t, "versorger", plan.Placements[0].EmployeeID)
	assert.Equal(t, model.RoleVersorger, plan.Placements[0].ForRole)
	assert.Equal(t, []string{"allrounder"}, plan.Unassigned)
}

func TestBuildPlan_CapabilityFallback(t *testing.T) {
	// No exact versorger: the allrounder covers the requirement instead.
	areas := []db.WorkArea{area("kitchen", 1, 1, map[model.Role]int{model.RoleVersorger: 1})}
	employees := []db.Employee{
		{ID: "verkauf", Role: model.RoleVerkauf},
		{ID: "allrounder", Role: model.RoleAllrounder},
	}

	plan := BuildPlan(areas, employees, nil)

	require.Len(t, plan.Placements, 1)
	assert.Equal(t, "allrounder", plan.Placements[0].EmployeeID)
}

func TestBuildPlan_UnmetRequirementReported(t *testing.T) {
	areas := []db.WorkArea{area("kitchen", 1, 3, map[model.Role]int{model.RoleVersorger: 2})}
	employees := []db.Employee{
		{ID: "essen", Role: model.RoleEssen},
	}

	plan := BuildPlan(areas, employees, nil)

	require.Len(t, plan.UnmetRequirements, 1)
	assert.Equal(t, UnmetRequirement{WorkAreaID: "kitchen", Role: model.RoleVersorger, Missing: 2}, plan.UnmetRequirements[0])
	// General capacity still gets filled.
	require.Len(t, plan.Placements, 1)
	assert.Equal(t, "essen", plan.Placements[0].EmployeeID)
}

func TestBuildPlan_AreasFilledInPositionOrder(t *testing.T) {
	areas := []db.WorkArea{
		area("second", 2, 2, nil),
		area("first", 1, 1, nil),
	}
	employees := []db.Employee{
		{ID: "a", Role: model.RoleEssen, TotalHoursWorked: 1},
		{ID: "b", Role: model.RoleEssen, TotalHoursWorked: 2},
		{ID: "c", Role: model.RoleEssen, TotalHoursWorked: 3},
	}

	plan := BuildPlan(areas, employees, nil)

	byArea := placementsByArea(plan)
	assert.Equal(t, []string{"a"}, byArea["first"])
	assert.Equal(t, []string{"b", "c"}, byArea["second"])
}

func TestBuildPlan_ExistingAssignmentsCountAgainstCapacity(t *testing.T) {
	areas := []db.WorkArea{area("bar", 1, 2, nil)}
	existing := []db.WorkAssignment{
		{EmployeeID: "held", WorkAreaID: "bar", EventID: "ev1", CreatedAt: time.Now()},
	}
	employees := []db.Employee{
		{ID: "held", Role: model.RoleEssen},
		{ID: "new1", Role: model.RoleEssen},
		{ID: "new2", Role: model.RoleEssen},
	}

	plan := BuildPlan(areas, employees, existing)

	// One slot is taken, so only one new placement fits, and the already
	// assigned employee is never re-placed.
	require.Len(t, plan.Placements, 1)
	assert.Equal(t, "new1", plan.Placements[0].EmployeeID)
	assert.Equal(t, []string{"new2"}, plan.Unassigned)
}

func TestBuildPlan_InactiveAreasIgnored(t *testing.T) {
	inactive := area("closed", 1, 5, nil)
	inactive.IsActive = false
	areas := []db.WorkArea{inactive}
	employees := []db.Employee{{ID: "a", Role: model.RoleEssen}}

	plan := BuildPlan(areas, employees, nil)

	assert.Empty(t, plan.Placements)
	assert.Equal(t, []string{"a"}, plan.Unassigned)
}

func TestBuildPlan_OnePlacementPerEmployee(t *testing.T) {
	areas := []db.WorkArea{
		area("a1", 1, 2, map[model.Role]int{model.RoleVerkauf: 1}),
		area("a2", 2, 2, map[model.Role]int{model.RoleVerkauf: 1}),
	}
	employees := []db.Employee{
		{ID: "only", Role: model.RoleVerkauf},
	}

	plan := BuildPlan(areas, employees, nil)

	require.Len(t, plan.Placements, 1)
	assert.Equal(t, "a1", plan.Placements[0].WorkAreaID)
	// The second area's requirement stays unmet rather than double-booking.
	require.Len(t, plan.UnmetRequirements, 1)
	assert.Equal(t, "a2", plan.UnmetRequirements[0].WorkAreaID)
}
