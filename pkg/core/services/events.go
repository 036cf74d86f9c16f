package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/internal/config"
	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

var validate = validator.New()

// EventStore defines the database operations needed for event management.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*db.Event, error)
	InsertEvent(ctx context.Context, event *db.Event) error
	InsertEventIfAbsent(ctx context.Context, event *db.Event) (bool, error)
	UpdateEventStatus(ctx context.Context, id string, from, to model.EventStatus) error
	DeleteEmployeeEventStatuses(ctx context.Context, eventID string) error
	DeleteWorkAssignments(ctx context.Context, eventID string) error
	DeleteTimeRecords(ctx context.Context, eventID string) error
}

// EventInput carries the operator-provided fields for a new event.
type EventInput struct {
	Title           string    `validate:"required"`
	Location        string    `validate:"required"`
	Date            time.Time `validate:"required"`
	StartTime       string    `validate:"required"`
	EndTime         string    ``
	HourlyRate      float64   `validate:"gte=0"`
	EmployeesNeeded int       `validate:"min=1"`
	EmployeesToAsk  int       `validate:"min=1"`
}

// CreateEvent validates the input and inserts a draft event. Recruitment
// starts only after an explicit OpenRecruitment.
func CreateEvent(ctx context.Context, store EventStore, logger *zap.Logger, input EventInput) (*db.Event, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("event validation failed: %w", err)
	}
	if _, err := time.Parse("15:04", input.StartTime); err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", input.StartTime, err)
	}
	if input.EndTime != "" {
		if _, err := time.Parse("15:04", input.EndTime); err != nil {
			return nil, fmt.Errorf("invalid end time %q: %w", input.EndTime, err)
		}
	}

	event := &db.Event{
		ID:              uuid.New().String(),
		Title:           input.Title,
		Location:        input.Location,
		Date:            input.Date,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		HourlyRate:      input.HourlyRate,
		EmployeesNeeded: input.EmployeesNeeded,
		EmployeesToAsk:  input.EmployeesToAsk,
		Status:          model.EventDraft,
	}
	if err := store.InsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	logger.Info("Event created",
		zap.String("event_id", event.ID),
		zap.String("title", event.Title),
		zap.Time("date", event.Date))
	return event, nil
}

// OpenRecruitment moves a draft event into recruiting; the next lifecycle
// sweep picks it up from there.
func OpenRecruitment(ctx context.Context, store EventStore, logger *zap.Logger, eventID string) error {
	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load event: %w", err)
	}
	if !event.Status.CanTransition(model.EventRecruiting) {
		return fmt.Errorf("event %s is %s: %w", eventID, event.Status, db.ErrInvalidTransition)
	}
	if err := store.UpdateEventStatus(ctx, eventID, event.Status, model.EventRecruiting); err != nil {
		return fmt.Errorf("failed to open recruitment: %w", err)
	}
	logger.Info("Recruitment opened", zap.String("event_id", eventID))
	return nil
}

// ResetEvent is the explicit operator reset: it clears all event-scoped
// rows (statuses, assignments, time records) and puts the event back into
// recruiting. This is the only sanctioned backwards status move.
func ResetEvent(ctx context.Context, store EventStore, logger *zap.Logger, eventID string) error {
	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load event: %w", err)
	}

	if err := store.DeleteWorkAssignments(ctx, eventID); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	if err := store.DeleteTimeRecords(ctx, eventID); err != nil {
		return fmt.Errorf("failed to clear time records: %w", err)
	}
	if err := store.DeleteEmployeeEventStatuses(ctx, eventID); err != nil {
		return fmt.Errorf("failed to clear statuses: %w", err)
	}
	if event.Status != model.EventRecruiting {
		if err := store.UpdateEventStatus(ctx, eventID, event.Status, model.EventRecruiting); err != nil {
			return fmt.Errorf("failed to reset event status: %w", err)
		}
	}

	logger.Info("Event reset", zap.String("event_id", eventID), zap.String("was", string(event.Status)))
	return nil
}

// MaterializeRecurringEvents expands the configured recurring event
// templates into concrete events within the horizon. Occurrences that
// already exist (same title and date) are left alone, so the operation is
// safe to re-run.
func MaterializeRecurringEvents(
	ctx context.Context,
	store EventStore,
	logger *zap.Logger,
	templates []config.RecurringEvent,
	from time.Time,
	horizon time.Duration,
) (int, error) {
	created := 0
	for _, tmpl := range templates {
		rule, err := rrule.StrToRRule(tmpl.RRule)
		if err != nil {
			return created, fmt.Errorf("invalid rrule for template %q: %w", tmpl.Name, err)
		}
		rule.DTStart(from.Truncate(24 * time.Hour))

		occurrences := rule.Between(from, from.Add(horizon), true)
		logger.Debug("Expanding recurring template",
			zap.String("template", tmpl.Name),
			zap.Int("occurrences", len(occurrences)))

		for _, occurrence := range occurrences {
			event := &db.Event{
				ID:              uuid.New().String(),
				Title:           tmpl.Name,
				Location:        tmpl.Location,
				Date:            occurrence,
				StartTime:       tmpl.StartTime,
				EndTime:         tmpl.EndTime,
				HourlyRate:      tmpl.HourlyRate,
				EmployeesNeeded: tmpl.EmployeesNeeded,
				EmployeesToAsk:  tmpl.EmployeesToAsk,
				Status:          model.EventRecruiting,
			}
			inserted, err := store.InsertEventIfAbsent(ctx, event)
			if err != nil {
				return created, fmt.Errorf("failed to materialize %q on %s: %w", tmpl.Name, occurrence.Format("2006-01-02"), err)
			}
			if inserted {
				created++
			}
		}
	}

	logger.Info("Recurring events materialized", zap.Int("created", created))
	return created, nil
}
