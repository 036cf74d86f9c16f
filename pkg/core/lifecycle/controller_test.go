package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/core/recruiting"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// fakeStore is an in-memory Store double.
type fakeStore struct {
	mu        sync.Mutex
	events    map[string]*db.Event
	employees []db.Employee
	statuses  map[string]map[string]db.EmployeeEventStatus
	areas     map[string][]db.WorkArea
	records   map[string]map[string]db.TimeRecord

	openRecordCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:   make(map[string]*db.Event),
		statuses: make(map[string]map[string]db.EmployeeEventStatus),
		areas:    make(map[string][]db.WorkArea),
		records:  make(map[string]map[string]db.TimeRecord),
	}
}

func (f *fakeStore) addEvent(event db.Event) {
	f.events[event.ID] = &event
}

func (f *fakeStore) setStatus(eventID, employeeID string, status model.ParticipationStatus) {
	if f.statuses[eventID] == nil {
		f.statuses[eventID] = make(map[string]db.EmployeeEventStatus)
	}
	f.statuses[eventID][employeeID] = db.EmployeeEventStatus{
		EmployeeID: employeeID,
		EventID:    eventID,
		Status:     status,
	}
}

func (f *fakeStore) GetEvent(ctx context.Context, id string) (*db.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (f *fakeStore) ListEvents(ctx context.Context, filter db.EventFilter) ([]db.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Event
	for _, event := range f.events {
		if len(filter.Statuses) == 0 {
			out = append(out, *event)
			continue
		}
		for _, s := range filter.Statuses {
			if event.Status == s {
				out = append(out, *event)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateEventStatus(ctx context.Context, id string, from, to model.EventStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return db.ErrNotFound
	}
	if event.Status != from {
		return db.ErrConflict
	}
	event.Status = to
	return nil
}

func (f *fakeStore) ListEmployees(ctx context.Context, filter db.EmployeeFilter) ([]db.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]db.Employee, len(f.employees))
	copy(out, f.employees)
	return out, nil
}

func (f *fakeStore) GetEmployeeEventStatuses(ctx context.Context, eventID string) ([]db.EmployeeEventStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.EmployeeEventStatus
	for _, s := range f.statuses[eventID] {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) UpsertEmployeeEventStatus(ctx context.Context, status db.EmployeeEventStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses[status.EventID] == nil {
		f.statuses[status.EventID] = make(map[string]db.EmployeeEventStatus)
	}
	f.statuses[status.EventID][status.EmployeeID] = status
	return nil
}

func (f *fakeStore) GetWorkAreas(ctx context.Context, eventID string) ([]db.WorkArea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.areas[eventID], nil
}

func (f *fakeStore) OpenTimeRecord(ctx context.Context, record *db.TimeRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openRecordCalls++
	if f.records[record.EventID] == nil {
		f.records[record.EventID] = make(map[string]db.TimeRecord)
	}
	if _, exists := f.records[record.EventID][record.EmployeeID]; exists {
		return false, nil
	}
	f.records[record.EventID][record.EmployeeID] = *record
	return true, nil
}

func (f *fakeStore) statusOf(eventID, employeeID string) model.ParticipationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[eventID][employeeID].Status
}

// fakeNotifier records invitations and can fail for chosen employees.
type fakeNotifier struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]error
}

func (f *fakeNotifier) Notify(ctx context.Context, employee db.Employee, event db.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[employee.ID]; ok {
		return "", err
	}
	f.sent = append(f.sent, employee.ID)
	return "msg-" + employee.ID, nil
}

func (f *fakeNotifier) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testController(store *fakeStore, notifier *fakeNotifier) *Controller {
	return NewController(store, notifier, zap.NewNop(), Config{
		Now: func() time.Time { return testNow },
	})
}

func recruitingEvent(id string, needed, toAsk int) db.Event {
	return db.Event{
		ID:              id,
		Title:           "Sommerfest",
		Date:            time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		StartTime:       "18:00",
		EndTime:         "23:00",
		EmployeesNeeded: needed,
		EmployeesToAsk:  toAsk,
		Status:          model.EventRecruiting,
	}
}

func TestSweep_DispatchesInitialRound(t *testing.T) {
	store := newFakeStore()
	store.addEvent(recruitingEvent("ev1", 2, 2))
	store.employees = []db.Employee{
		{ID: "a", Role: model.RoleEssen},
		{ID: "b", Role: model.RoleEssen, TotalHoursWorked: 5},
		{ID: "c", Role: model.RoleEssen, TotalHoursWorked: 10},
	}
	notifier := &fakeNotifier{}
	c := testController(store, notifier)

	require.NoError(t, c.Sweep(context.Background()))

	// Only the configured ask pool size goes out, fairest first.
	assert.ElementsMatch(t, []string{"a", "b"}, notifier.sentTo())
	assert.Equal(t, model.ParticipationAsked, store.statusOf("ev1", "a"))
	assert.Equal(t, model.ParticipationAsked, store.statusOf("ev1", "b"))
	assert.Equal(t, model.ParticipationStatus(""), store.statusOf("ev1", "c"))
}

func TestSweep_CommitsAlwaysNeeded(t *testing.T) {
	store := newFakeStore()
	store.addEvent(recruitingEvent("ev1", 1, 1))
	store.employees = []db.Employee{
		{ID: "fixture", Role: model.RoleManager, AlwaysNeeded: true},
	}
	notifier := &fakeNotifier{}
	c := testController(store, notifier)

	require.NoError(t, c.Sweep(context.Background()))

	// The always-needed employee fully staffs the event without any
	// invitation going out.
	assert.Equal(t, model.ParticipationAlwaysNeeded, store.statusOf("ev1", "fixture"))
	assert.Empty(t, notifier.sentTo())

	event, err := store.GetEvent(context.Background(), "ev1")
	require.NoError(t, err)
	assert.Equal(t, model.EventPlanned, event.Status)
}

func TestSweep_PromotesWhenFullyStaffed(t *testing.T) {
	store := newFakeStore()
	store.addEvent(recruitingEvent("ev1", 2, 4))
	store.employees = []db.Employee{
		{ID: "a", Role: model.RoleEssen},
		{ID: "b", Role: model.RoleEssen},
	}
	store.setStatus("ev1", "a", model.ParticipationAvailable)
	store.setStatus("ev1", "b", model.ParticipationAvailable)
	notifier := &fakeNotifier{}
	c := testController(store, notifier)

	require.NoError(t, c.Sweep(context.Background()))

	event, err := store.GetEvent(context.Background(), "ev1")
	require.NoError(t, err)
	assert.Equal(t, model.EventPlanned, event.Status)
	assert.Empty(t, notifier.sentTo())
}

func TestSweep_ActivatesInWindow(t *testing.T) {
	store := newFakeStore()
	event := recruitingEvent("ev1", 2, 2)
	event.StartTime = "12:00" // sweep runs at exactly 12:00
	event.Status = model.EventPlanned
	store.addEvent(event)
	store.employees = []db.Employee{
		{ID: "a", Role: model.RoleEssen},
		{ID: "b", Role: model.RoleEssen},
	}
	store.setStatus("ev1", "a", model.ParticipationAvailable)
	store.setStatus("ev1", "b", model.ParticipationSelected)
	c := testController(store, &fakeNotifier{})

	require.NoError(t, c.Sweep(context.Background()))

	got, err := store.GetEvent(context.Background(), "ev1")
	require.NoError(t, err)
	assert.Equal(t, model.EventActive, got.Status)
	assert.Equal(t, model.ParticipationWorking, store.statusOf("ev1", "a"))
	assert.Equal(t, model.ParticipationWorking, store.statusOf("ev1", "b"))
	assert.Len(t, store.records["ev1"], 2)
}

func TestSweep_ActivationIsIdempotent(t *testing.T) {
	store := newFakeStore()
	event := recruitingEvent("ev1", 1, 1)
	event.StartTime = "12:00"
	store.addEvent(event)
	store.employees = []db.Employee{{ID: "a", Role: model.RoleEssen}}
	store.setStatus("ev1", "a", model.ParticipationAvailable)
	c := testController(store, &fakeNotifier{})

	require.NoError(t, c.Sweep(context.Background()))
	require.NoError(t, c.Sweep(context.Background()))

	// The second sweep sees an active event inside its window and leaves it
	// alone; exactly one time record exists.
	assert.Len(t, store.records["ev1"], 1)

	got, err := store.GetEvent(context.Background(), "ev1")
	require.NoError(t, err)
	assert.Equal(t, model.EventActive, got.Status)
}

func TestSweep_CompletesAfterGrace(t *testing.T) {
	store := newFakeStore()
	event := recruitingEvent("ev1", 1, 1)
	event.StartTime = "06:00"
	event.EndTime = "09:00" // grace of 2h expired at 11:00, now is 12:00
	event.Status = model.EventActive
	store.addEvent(event)
	store.employees = []db.Employee{{ID: "a", Role: model.RoleEssen}}
	store.setStatus("ev1", "a", model.ParticipationWorking)
	c := testController(store, &fakeNotifier{})

	require.NoError(t, c.Sweep(context.Background()))

	got, err := store.GetEvent(context.Background(), "ev1")
	require.NoError(t, err)
	assert.Equal(t, model.EventCompleted, got.Status)
	assert.Equal(t, model.ParticipationCompleted, store.statusOf("ev1", "a"))
}

func TestSweep_ActiveEventWithinGraceStaysActive(t *testing.T) {
	store := newFakeStore()
	event := recruitingEvent("ev1", 1, 1)
	event.StartTime = "09:00"
	event.EndTime = "11:00" // grace runs until 13:00
	event.Status = model.EventActive
	store.addEvent(event)
	c := testController(store, &fakeNotifier{})

	require.NoError(t, c.Sweep(context.Background()))

	got, err := store.GetEvent(context.Background(), "ev1")
	require.NoError(t, err)
	assert.Equal(t, model.EventActive, got.Status)
}

func TestDispatchInvitations_FailureDoesNotMarkAsked(t *testing.T) {
	store := newFakeStore()
	store.addEvent(recruitingEvent("ev1", 2, 2))
	store.employees = []db.Employee{
		{ID: "good", Role: model.RoleEssen},
		{ID: "bad", Role: model.RoleEssen},
	}
	notifier := &fakeNotifier{failFor: map[string]error{"bad": errors.New("smtp down")}}
	c := testController(store, notifier)

	require.NoError(t, c.Sweep(context.Background()))

	assert.Equal(t, model.ParticipationAsked, store.statusOf("ev1", "good"))
	// The failed candidate stays untouched and will be picked again next
	// round.
	assert.Equal(t, model.ParticipationStatus(""), store.statusOf("ev1", "bad"))
}

func TestTriggerAdditionalRecruitment_NotRecruiting(t *testing.T) {
	store := newFakeStore()
	event := recruitingEvent("ev1", 2, 2)
	event.Status = model.EventPlanned
	store.addEvent(event)
	notifier := &fakeNotifier{}
	c := testController(store, notifier)

	report, err := c.TriggerAdditionalRecruitment(context.Background(), "ev1")
	require.NoError(t, err)

	assert.Empty(t, report.Invited)
	assert.Empty(t, notifier.sentTo())
}

func TestTriggerAdditionalRecruitment_InvitesNextByFairness(t *testing.T) {
	store := newFakeStore()
	store.addEvent(recruitingEvent("ev1", 2, 1))
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store.employees = []db.Employee{
		{ID: "asked", Role: model.RoleEssen},
		{ID: "recent", Role: model.RoleEssen, LastWorkedDate: &newer},
		{ID: "rested", Role: model.RoleEssen, LastWorkedDate: &older},
	}
	// One asked against a pool of one: plateaued, two short.
	store.setStatus("ev1", "asked", model.ParticipationAsked)
	notifier := &fakeNotifier{}
	c := testController(store, notifier)

	report, err := c.TriggerAdditionalRecruitment(context.Background(), "ev1")
	require.NoError(t, err)

	require.True(t, report.Evaluation.NeedsMoreRecruitment)
	assert.ElementsMatch(t, []string{"rested", "recent"}, report.Invited)
	assert.Equal(t, model.ParticipationAsked, store.statusOf("ev1", "rested"))
	assert.Equal(t, model.ParticipationAsked, store.statusOf("ev1", "recent"))
}

func TestTriggerAdditionalRecruitment_UnknownEvent(t *testing.T) {
	store := newFakeStore()
	c := testController(store, &fakeNotifier{})

	_, err := c.TriggerAdditionalRecruitment(context.Background(), "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

// gatedStore holds a sweep open inside ListEvents until released.
type gatedStore struct {
	*fakeStore
	enterOnce sync.Once
	entered   chan struct{}
	release   chan struct{}
}

func (g *gatedStore) ListEvents(ctx context.Context, filter db.EventFilter) ([]db.Event, error) {
	g.enterOnce.Do(func() { close(g.entered) })
	<-g.release
	return g.fakeStore.ListEvents(ctx, filter)
}

func TestSweep_RejectsOverlappingSweep(t *testing.T) {
	gated := &gatedStore{
		fakeStore: newFakeStore(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	c := NewController(gated, &fakeNotifier{}, zap.NewNop(), Config{
		Now: func() time.Time { return testNow },
	})

	done := make(chan error, 1)
	go func() { done <- c.Sweep(context.Background()) }()

	// A second sweep started while the first one is held open must bounce
	// instead of queueing behind it.
	<-gated.entered
	assert.ErrorIs(t, c.Sweep(context.Background()), ErrSweepInProgress)

	close(gated.release)
	require.NoError(t, <-done)

	// Once the first sweep finished the lock is free again.
	require.NoError(t, c.Sweep(context.Background()))
}

func TestRunSweep_SwallowsInProgress(t *testing.T) {
	gated := &gatedStore{
		fakeStore: newFakeStore(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	c := NewController(gated, &fakeNotifier{}, zap.NewNop(), Config{
		Now: func() time.Time { return testNow },
	})

	done := make(chan struct{})
	go func() {
		c.runSweep(context.Background())
		close(done)
	}()

	<-gated.entered
	// The dropped tick must return quietly; a panic or a blocked call here
	// would hang the runner loop.
	c.runSweep(context.Background())

	close(gated.release)
	<-done
}

func TestNewController_Defaults(t *testing.T) {
	c := NewController(newFakeStore(), &fakeNotifier{}, zap.NewNop(), Config{})

	assert.Equal(t, DefaultWindows(), c.cfg.Windows)
	assert.Equal(t, 10*time.Second, c.cfg.NotifyTimeout)
	assert.NotNil(t, c.cfg.Now)
	assert.Equal(t, recruiting.PlateauPolicy{}, c.cfg.Plateau)
}
