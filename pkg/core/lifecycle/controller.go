// Package lifecycle drives events through their status state machine:
// recruiting -> planned -> active -> completed. A single controller sweeps
// all non-terminal events, dispatches invitations while recruiting, opens
// work sessions on activation and closes participations on completion.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/core/recruiting"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// ErrSweepInProgress is returned when a sweep is requested while a previous
// one is still running. The caller should simply try again on the next tick.
var ErrSweepInProgress = errors.New("lifecycle sweep already in progress")

// Store defines the persistence operations the controller needs.
type Store interface {
	GetEvent(ctx context.Context, id string) (*db.Event, error)
	ListEvents(ctx context.Context, filter db.EventFilter) ([]db.Event, error)
	UpdateEventStatus(ctx context.Context, id string, from, to model.EventStatus) error
	ListEmployees(ctx context.Context, filter db.EmployeeFilter) ([]db.Employee, error)
	GetEmployeeEventStatuses(ctx context.Context, eventID string) ([]db.EmployeeEventStatus, error)
	UpsertEmployeeEventStatus(ctx context.Context, status db.EmployeeEventStatus) error
	GetWorkAreas(ctx context.Context, eventID string) ([]db.WorkArea, error)
	OpenTimeRecord(ctx context.Context, record *db.TimeRecord) (bool, error)
}

// Notifier sends an invitation for the event to the employee and returns
// the provider's message ID.
type Notifier interface {
	Notify(ctx context.Context, employee db.Employee, event db.Event) (string, error)
}

// Windows holds the timing constants of the state machine. The historical
// values (-15m/+60m around start, 2h grace after end) carried no documented
// rationale, so they stay configurable.
type Windows struct {
	// ActiveBefore is how long before the scheduled start an event may be
	// marked active.
	ActiveBefore time.Duration
	// ActiveAfter is how long after the scheduled start an event may still
	// be marked active.
	ActiveAfter time.Duration
	// CompletionGrace is how long after the scheduled end an active event
	// is left open before being completed.
	CompletionGrace time.Duration
}

func DefaultWindows() Windows {
	return Windows{
		ActiveBefore:    15 * time.Minute,
		ActiveAfter:     60 * time.Minute,
		CompletionGrace: 2 * time.Hour,
	}
}

// Config bundles the controller's tunables.
type Config struct {
	Windows Windows
	Plateau recruiting.PlateauPolicy
	// NotifyTimeout bounds each individual invitation send so a slow
	// notifier cannot stall a sweep.
	NotifyTimeout time.Duration
	// Now is the clock; defaults to time.Now. Injectable for tests.
	Now func() time.Time
}

// Controller is the singleton lifecycle driver.
type Controller struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	cfg      Config

	sweepMu sync.Mutex
}

func NewController(store Store, notifier Notifier, logger *zap.Logger, cfg Config) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	if cfg.Windows == (Windows{}) {
		cfg.Windows = DefaultWindows()
	}
	return &Controller{
		store:    store,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
}

// Sweep re-evaluates every non-terminal event exactly once. Each event is
// handled in isolation: a failure is logged and skipped so the remaining
// events are still evaluated. Only one sweep runs at a time.
func (c *Controller) Sweep(ctx context.Context) error {
	if !c.sweepMu.TryLock() {
		return ErrSweepInProgress
	}
	defer c.sweepMu.Unlock()

	events, err := c.store.ListEvents(ctx, db.EventFilter{
		Statuses: []model.EventStatus{
			model.EventRecruiting,
			model.EventPlanned,
			model.EventActive,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to list open events: %w", err)
	}

	c.logger.Debug("Sweeping events", zap.Int("count", len(events)))

	for _, event := range events {
		if err := c.sweepEvent(ctx, event); err != nil {
			c.logger.Error("Event sweep failed, skipping until next sweep",
				zap.String("event_id", event.ID),
				zap.String("status", string(event.Status)),
				zap.Error(err))
		}
	}
	return nil
}

func (c *Controller) sweepEvent(ctx context.Context, event db.Event) error {
	now := c.cfg.Now()

	switch event.Status {
	case model.EventRecruiting, model.EventPlanned:
		if c.inActiveWindow(event, now) {
			return c.activate(ctx, event, now)
		}
		if event.Status == model.EventRecruiting {
			return c.progressRecruitment(ctx, event)
		}
	case model.EventActive:
		if now.After(event.EndAt().Add(c.cfg.Windows.CompletionGrace)) {
			return c.complete(ctx, event)
		}
	}
	return nil
}

func (c *Controller) inActiveWindow(event db.Event, now time.Time) bool {
	start := event.StartAt()
	return !now.Before(start.Add(-c.cfg.Windows.ActiveBefore)) &&
		!now.After(start.Add(c.cfg.Windows.ActiveAfter))
}

// progressRecruitment commits always-needed employees, evaluates the
// headcount and either promotes the event to planned or dispatches another
// round of invitations.
func (c *Controller) progressRecruitment(ctx context.Context, event db.Event) error {
	employees, statuses, areas, err := c.loadEventContext(ctx, event.ID)
	if err != nil {
		return err
	}

	statuses, err = c.commitAlwaysNeeded(ctx, event, employees, statuses)
	if err != nil {
		return err
	}

	eval := recruiting.Evaluate(event, employees, statuses, areas, c.cfg.Plateau)

	if eval.EmployeesAvailable >= eval.EmployeesNeeded {
		if err := c.store.UpdateEventStatus(ctx, event.ID, model.EventRecruiting, model.EventPlanned); err != nil {
			return fmt.Errorf("failed to promote event to planned: %w", err)
		}
		c.logger.Info("Event fully staffed, promoted to planned",
			zap.String("event_id", event.ID),
			zap.Int("available", eval.EmployeesAvailable),
			zap.Int("needed", eval.EmployeesNeeded))
		return nil
	}

	askCount := 0
	switch {
	case eval.EmployeesAsked == 0:
		// Initial round: use the event's configured ask pool size.
		askCount = min(event.EmployeesToAsk, eval.RemainingPool)
	case eval.NeedsMoreRecruitment:
		askCount = eval.SuggestedAdditionalAsks
	}
	if askCount == 0 {
		return nil
	}

	candidates := recruiting.SelectCandidates(employees, statuses, areas, askCount)
	invited, failures := c.dispatchInvitations(ctx, event, candidates)
	c.logger.Info("Recruitment round dispatched",
		zap.String("event_id", event.ID),
		zap.Int("invited", len(invited)),
		zap.Int("failed", len(failures)))
	return nil
}

// commitAlwaysNeeded upserts the always_needed status for flagged employees
// that have not been touched for this event yet. They bypass the fairness
// ranking entirely.
func (c *Controller) commitAlwaysNeeded(
	ctx context.Context,
	event db.Event,
	employees []db.Employee,
	statuses []db.EmployeeEventStatus,
) ([]db.EmployeeEventStatus, error) {
	statusByEmployee := make(map[string]model.ParticipationStatus, len(statuses))
	for _, s := range statuses {
		statusByEmployee[s.EmployeeID] = s.Status
	}

	for _, emp := range employees {
		if !emp.AlwaysNeeded {
			continue
		}
		if status, ok := statusByEmployee[emp.ID]; ok && status != model.ParticipationNotAsked {
			continue
		}
		record := db.EmployeeEventStatus{
			EmployeeID: emp.ID,
			EventID:    event.ID,
			Status:     model.ParticipationAlwaysNeeded,
			UpdatedAt:  c.cfg.Now(),
		}
		if err := c.store.UpsertEmployeeEventStatus(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to commit always-needed employee %s: %w", emp.ID, err)
		}
		statuses = append(statuses, record)
	}
	return statuses, nil
}

// activate transitions committed employees to working, opening one time
// record each. The batch is idempotent: re-running opens no second record
// thanks to the store's insert-if-absent semantics. Any per-employee failure
// leaves the event status untouched so the next sweep retries the batch.
func (c *Controller) activate(ctx context.Context, event db.Event, now time.Time) error {
	statuses, err := c.store.GetEmployeeEventStatuses(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to load statuses: %w", err)
	}

	failed := 0
	for _, status := range statuses {
		if !status.Status.IsCommitted() {
			continue
		}
		record := &db.TimeRecord{
			ID:         uuid.New().String(),
			EmployeeID: status.EmployeeID,
			EventID:    event.ID,
			SignInTime: now,
			HourlyRate: event.HourlyRate,
			Status:     model.TimeRecordActive,
		}
		created, err := c.store.OpenTimeRecord(ctx, record)
		if err != nil {
			c.logger.Error("Failed to open time record",
				zap.String("event_id", event.ID),
				zap.String("employee_id", status.EmployeeID),
				zap.Error(err))
			failed++
			continue
		}
		if !created {
			c.logger.Debug("Time record already open",
				zap.String("event_id", event.ID),
				zap.String("employee_id", status.EmployeeID))
		}

		status.Status = model.ParticipationWorking
		status.UpdatedAt = now
		if err := c.store.UpsertEmployeeEventStatus(ctx, status); err != nil {
			c.logger.Error("Failed to mark employee working",
				zap.String("event_id", event.ID),
				zap.String("employee_id", status.EmployeeID),
				zap.Error(err))
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d employees could not be started; event stays %s for retry", failed, event.Status)
	}

	if err := c.store.UpdateEventStatus(ctx, event.ID, event.Status, model.EventActive); err != nil {
		return fmt.Errorf("failed to mark event active: %w", err)
	}
	c.logger.Info("Event activated", zap.String("event_id", event.ID), zap.Time("at", now))
	return nil
}

// complete closes out every still-working participation. Open time records
// are deliberately left alone: sign-out is an explicit operation.
func (c *Controller) complete(ctx context.Context, event db.Event) error {
	statuses, err := c.store.GetEmployeeEventStatuses(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to load statuses: %w", err)
	}

	now := c.cfg.Now()
	failed := 0
	for _, status := range statuses {
		if status.Status != model.ParticipationWorking {
			continue
		}
		status.Status = model.ParticipationCompleted
		status.UpdatedAt = now
		if err := c.store.UpsertEmployeeEventStatus(ctx, status); err != nil {
			c.logger.Error("Failed to complete participation",
				zap.String("event_id", event.ID),
				zap.String("employee_id", status.EmployeeID),
				zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d participations could not be completed; retrying next sweep", failed)
	}

	if err := c.store.UpdateEventStatus(ctx, event.ID, model.EventActive, model.EventCompleted); err != nil {
		return fmt.Errorf("failed to mark event completed: %w", err)
	}
	c.logger.Info("Event completed", zap.String("event_id", event.ID))
	return nil
}

func (c *Controller) loadEventContext(ctx context.Context, eventID string) ([]db.Employee, []db.EmployeeEventStatus, []db.WorkArea, error) {
	employees, err := c.store.ListEmployees(ctx, db.EmployeeFilter{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list employees: %w", err)
	}
	statuses, err := c.store.GetEmployeeEventStatuses(ctx, eventID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load statuses: %w", err)
	}
	areas, err := c.store.GetWorkAreas(ctx, eventID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load work areas: %w", err)
	}
	return employees, statuses, areas, nil
}
