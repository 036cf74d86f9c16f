package recruiting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

func status(employeeID string, s model.ParticipationStatus) db.EmployeeEventStatus {
	return db.EmployeeEventStatus{EmployeeID: employeeID, EventID: "ev1", Status: s}
}

func TestSelectCandidates_ExcludesAlreadyTouched(t *testing.T) {
	employees := []db.Employee{
		{ID: "fresh", Role: model.RoleVerkauf},
		{ID: "asked", Role: model.RoleVerkauf},
		{ID: "declined", Role: model.RoleVerkauf},
		{ID: "committed", Role: model.RoleVerkauf},
		{ID: "explicit-not-asked", Role: model.RoleVerkauf},
	}
	statuses := []db.EmployeeEventStatus{
		status("asked", model.ParticipationAsked),
		status("declined", model.ParticipationUnavailable),
		status("committed", model.ParticipationAvailable),
		status("explicit-not-asked", model.ParticipationNotAsked),
	}

	got := SelectCandidates(employees, statuses, nil, 10)

	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.ElementsMatch(t, []string{"fresh", "explicit-not-asked"}, ids)
}

func TestSelectCandidates_SkipsAlwaysNeeded(t *testing.T) {
	employees := []db.Employee{
		{ID: "regular", Role: model.RoleEssen},
		{ID: "fixture", Role: model.RoleManager, AlwaysNeeded: true},
	}

	got := SelectCandidates(employees, nil, nil, 10)

	assert.Len(t, got, 1)
	assert.Equal(t, "regular", got[0].ID)
}

func TestSelectCandidates_CapabilityFilter(t *testing.T) {
	// The only active area needs versorger staff, so employees below that
	// rank cannot help and must not be asked.
	areas := []db.WorkArea{
		{ID: "wa1", IsActive: true, RoleRequirements: map[model.Role]int{model.RoleVersorger: 2}},
		{ID: "wa2", IsActive: false, RoleRequirements: map[model.Role]int{model.RoleEssen: 1}},
	}
	employees := []db.Employee{
		{ID: "manager", Role: model.RoleManager},
		{ID: "versorger", Role: model.RoleVersorger},
		{ID: "verkauf", Role: model.RoleVerkauf},
		{ID: "essen", Role: model.RoleEssen},
	}

	got := SelectCandidates(employees, nil, areas, 10)

	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.ElementsMatch(t, []string{"manager", "versorger"}, ids)
}

func TestSelectCandidates_NoAreaDetailMeansEveryoneQualifies(t *testing.T) {
	areas := []db.WorkArea{{ID: "wa1", IsActive: true, MaxCapacity: 5}}
	employees := []db.Employee{
		{ID: "essen", Role: model.RoleEssen},
	}

	got := SelectCandidates(employees, nil, areas, 10)

	assert.Len(t, got, 1)
}

func TestSelectCandidates_CapsAtRequestedCount(t *testing.T) {
	employees := []db.Employee{
		{ID: "e1", Role: model.RoleEssen},
		{ID: "e2", Role: model.RoleEssen, TotalHoursWorked: 5},
		{ID: "e3", Role: model.RoleEssen, TotalHoursWorked: 10},
	}

	got := SelectCandidates(employees, nil, nil, 2)

	assert.Len(t, got, 2)
	// Fairness order decides who makes the cut.
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "e2", got[1].ID)
}

func TestSelectCandidates_ZeroOrNegativeRequest(t *testing.T) {
	employees := []db.Employee{{ID: "e1", Role: model.RoleEssen}}

	assert.Nil(t, SelectCandidates(employees, nil, nil, 0))
	assert.Nil(t, SelectCandidates(employees, nil, nil, -1))
}
