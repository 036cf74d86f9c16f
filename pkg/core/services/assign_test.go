package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// mockAssignStore is a test double for AssignStore.
type mockAssignStore struct {
	event       *db.Event
	employees   map[string]*db.Employee
	areas       []db.WorkArea
	statuses    []db.EmployeeEventStatus
	assignments []db.WorkAssignment

	upsertErrFor map[string]error // employeeID -> injected assignment error

	upsertedAssignments []string
	deletedAssignments  []string
	clearedEvents       []string
	upsertedStatuses    []db.EmployeeEventStatus
}

func (m *mockAssignStore) GetEvent(ctx context.Context, id string) (*db.Event, error) {
	if m.event == nil {
		return nil, db.ErrNotFound
	}
	return m.event, nil
}

func (m *mockAssignStore) GetEmployee(ctx context.Context, id string) (*db.Employee, error) {
	emp, ok := m.employees[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return emp, nil
}

func (m *mockAssignStore) ListEmployees(ctx context.Context, filter db.EmployeeFilter) ([]db.Employee, error) {
	out := make([]db.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		out = append(out, *emp)
	}
	return out, nil
}

func (m *mockAssignStore) GetWorkAreas(ctx context.Context, eventID string) ([]db.WorkArea, error) {
	return m.areas, nil
}

func (m *mockAssignStore) GetEmployeeEventStatuses(ctx context.Context, eventID string) ([]db.EmployeeEventStatus, error) {
	return m.statuses, nil
}

func (m *mockAssignStore) UpsertEmployeeEventStatus(ctx context.Context, status db.EmployeeEventStatus) error {
	m.upsertedStatuses = append(m.upsertedStatuses, status)
	return nil
}

func (m *mockAssignStore) GetWorkAssignments(ctx context.Context, eventID string) ([]db.WorkAssignment, error) {
	return m.assignments, nil
}

func (m *mockAssignStore) UpsertWorkAssignment(ctx context.Context, employeeID, workAreaID, eventID string) error {
	if err, ok := m.upsertErrFor[employeeID]; ok {
		return err
	}
	m.upsertedAssignments = append(m.upsertedAssignments, employeeID+"->"+workAreaID)
	return nil
}

func (m *mockAssignStore) DeleteWorkAssignment(ctx context.Context, employeeID, eventID string) error {
	m.deletedAssignments = append(m.deletedAssignments, employeeID)
	return nil
}

func (m *mockAssignStore) DeleteWorkAssignments(ctx context.Context, eventID string) error {
	m.clearedEvents = append(m.clearedEvents, eventID)
	return nil
}

func statusUpsertsFor(m *mockAssignStore, employeeID string) []model.ParticipationStatus {
	var out []model.ParticipationStatus
	for _, s := range m.upsertedStatuses {
		if s.EmployeeID == employeeID {
			out = append(out, s.Status)
		}
	}
	return out
}

func newAssignMock() *mockAssignStore {
	return &mockAssignStore{
		event: &db.Event{ID: "ev1", Status: model.EventRecruiting},
		employees: map[string]*db.Employee{
			"a": {ID: "a", Role: model.RoleVerkauf},
			"b": {ID: "b", Role: model.RoleEssen},
		},
		areas: []db.WorkArea{
			{ID: "bar", EventID: "ev1", MaxCapacity: 2, IsActive: true, PositionOrder: 1},
		},
		statuses: []db.EmployeeEventStatus{
			{EmployeeID: "a", EventID: "ev1", Status: model.ParticipationAvailable},
			{EmployeeID: "b", EventID: "ev1", Status: model.ParticipationAvailable},
		},
	}
}

func TestAutoAssignWorkAreas_PlacesCommittedAndMarksSelected(t *testing.T) {
	mock := newAssignMock()

	result, err := AutoAssignWorkAreas(context.Background(), mock, zap.NewNop(), "ev1")
	require.NoError(t, err)

	assert.Len(t, result.Applied, 2)
	assert.ElementsMatch(t, []string{"a->bar", "b->bar"}, mock.upsertedAssignments)
	assert.Equal(t, []model.ParticipationStatus{model.ParticipationSelected}, statusUpsertsFor(mock, "a"))
	assert.Equal(t, []model.ParticipationStatus{model.ParticipationSelected}, statusUpsertsFor(mock, "b"))
}

func TestAutoAssignWorkAreas_OnlyCommittedAreConsidered(t *testing.T) {
	mock := newAssignMock()
	mock.statuses = []db.EmployeeEventStatus{
		{EmployeeID: "a", EventID: "ev1", Status: model.ParticipationAvailable},
		{EmployeeID: "b", EventID: "ev1", Status: model.ParticipationAsked},
	}

	result, err := AutoAssignWorkAreas(context.Background(), mock, zap.NewNop(), "ev1")
	require.NoError(t, err)

	assert.Len(t, result.Applied, 1)
	assert.Equal(t, "a", result.Applied[0].EmployeeID)
}

func TestAutoAssignWorkAreas_ConflictSkipsOnlyThatPlacement(t *testing.T) {
	mock := newAssignMock()
	mock.upsertErrFor = map[string]error{"a": db.ErrConflict}

	result, err := AutoAssignWorkAreas(context.Background(), mock, zap.NewNop(), "ev1")
	require.NoError(t, err)

	assert.Len(t, result.Applied, 1)
	assert.Equal(t, "b", result.Applied[0].EmployeeID)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "a", result.Skipped[0].Placement.EmployeeID)
	assert.ErrorIs(t, result.Skipped[0].Err, db.ErrConflict)
	// The skipped employee keeps their old status.
	assert.Empty(t, statusUpsertsFor(mock, "a"))
}

func TestAutoAssignWorkAreas_AlwaysNeededKeepsStatus(t *testing.T) {
	mock := newAssignMock()
	mock.employees["a"].AlwaysNeeded = true
	mock.statuses[0].Status = model.ParticipationAlwaysNeeded

	_, err := AutoAssignWorkAreas(context.Background(), mock, zap.NewNop(), "ev1")
	require.NoError(t, err)

	// Placed but never demoted to selected, so a later reset can restore
	// the always-needed commitment.
	assert.Contains(t, mock.upsertedAssignments, "a->bar")
	assert.Empty(t, statusUpsertsFor(mock, "a"))
}

func TestAssignEmployee_RejectsInactiveArea(t *testing.T) {
	mock := newAssignMock()
	mock.areas[0].IsActive = false

	err := AssignEmployee(context.Background(), mock, zap.NewNop(), "a", "bar", "ev1")
	assert.Error(t, err)
	assert.Empty(t, mock.upsertedAssignments)
}

func TestAssignEmployee_UnknownArea(t *testing.T) {
	mock := newAssignMock()

	err := AssignEmployee(context.Background(), mock, zap.NewNop(), "a", "missing", "ev1")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestAssignEmployee_PropagatesCapacityConflict(t *testing.T) {
	mock := newAssignMock()
	mock.upsertErrFor = map[string]error{"a": db.ErrConflict}

	err := AssignEmployee(context.Background(), mock, zap.NewNop(), "a", "bar", "ev1")
	assert.ErrorIs(t, err, db.ErrConflict)
}

func TestRemoveAssignment_RevertsToAvailable(t *testing.T) {
	mock := newAssignMock()

	err := RemoveAssignment(context.Background(), mock, zap.NewNop(), "a", "ev1")
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, mock.deletedAssignments)
	assert.Equal(t, []model.ParticipationStatus{model.ParticipationAvailable}, statusUpsertsFor(mock, "a"))
}

func TestRemoveAssignment_AlwaysNeededRevertsToAlwaysNeeded(t *testing.T) {
	mock := newAssignMock()
	mock.employees["a"].AlwaysNeeded = true

	err := RemoveAssignment(context.Background(), mock, zap.NewNop(), "a", "ev1")
	require.NoError(t, err)

	assert.Equal(t, []model.ParticipationStatus{model.ParticipationAlwaysNeeded}, statusUpsertsFor(mock, "a"))
}

func TestResetAssignments_RevertsSelectedOnly(t *testing.T) {
	mock := newAssignMock()
	mock.statuses = []db.EmployeeEventStatus{
		{EmployeeID: "a", EventID: "ev1", Status: model.ParticipationSelected},
		{EmployeeID: "b", EventID: "ev1", Status: model.ParticipationUnavailable},
	}

	err := ResetAssignments(context.Background(), mock, zap.NewNop(), "ev1")
	require.NoError(t, err)

	assert.Equal(t, []string{"ev1"}, mock.clearedEvents)
	assert.Equal(t, []model.ParticipationStatus{model.ParticipationAvailable}, statusUpsertsFor(mock, "a"))
	// Declined employees are left alone.
	assert.Empty(t, statusUpsertsFor(mock, "b"))
}
