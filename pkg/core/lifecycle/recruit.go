package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/core/recruiting"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// NotifyFailure records one invitation that could not be delivered or
// whose asked status could not be persisted.
type NotifyFailure struct {
	EmployeeID string
	Err        error
}

// RecruitmentReport is the outcome of one manual recruitment trigger.
type RecruitmentReport struct {
	Evaluation recruiting.Evaluation
	Invited    []string
	Failures   []NotifyFailure
}

// TriggerAdditionalRecruitment re-evaluates the event on demand and, if
// recruitment has plateaued short of the target, invites the next
// candidates by fairness order. Safe to invoke redundantly: when nothing is
// needed the report simply carries zero invitations.
func (c *Controller) TriggerAdditionalRecruitment(ctx context.Context, eventID string) (*RecruitmentReport, error) {
	event, err := c.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	employees, statuses, areas, err := c.loadEventContext(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	eval := recruiting.Evaluate(*event, employees, statuses, areas, c.cfg.Plateau)
	report := &RecruitmentReport{Evaluation: eval}

	if event.Status != model.EventRecruiting {
		c.logger.Info("Recruitment trigger ignored, event not recruiting",
			zap.String("event_id", event.ID),
			zap.String("status", string(event.Status)))
		return report, nil
	}
	if !eval.NeedsMoreRecruitment || eval.SuggestedAdditionalAsks == 0 {
		c.logger.Info("No additional recruitment needed",
			zap.String("event_id", event.ID),
			zap.Int("available", eval.EmployeesAvailable),
			zap.Int("needed", eval.EmployeesNeeded))
		return report, nil
	}

	candidates := recruiting.SelectCandidates(employees, statuses, areas, eval.SuggestedAdditionalAsks)
	report.Invited, report.Failures = c.dispatchInvitations(ctx, *event, candidates)

	c.logger.Info("Additional recruitment triggered",
		zap.String("event_id", event.ID),
		zap.Int("invited", len(report.Invited)),
		zap.Int("failed", len(report.Failures)))
	return report, nil
}

// dispatchInvitations fans the sends out concurrently, each bounded by the
// configured per-call timeout. A candidate is only marked asked after their
// notification succeeded; failures are collected and never roll back the
// successes. Sent messages cannot be recalled, so there is no abort path
// once dispatch begins.
func (c *Controller) dispatchInvitations(ctx context.Context, event db.Event, candidates []db.Employee) ([]string, []NotifyFailure) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		invited  []string
		failures []NotifyFailure
	)

	for _, candidate := range candidates {
		wg.Add(1)
		go func(emp db.Employee) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, c.cfg.NotifyTimeout)
			defer cancel()

			messageID, err := c.notifier.Notify(sendCtx, emp, event)
			if err != nil {
				mu.Lock()
				failures = append(failures, NotifyFailure{EmployeeID: emp.ID, Err: err})
				mu.Unlock()
				return
			}

			if err := c.store.UpsertEmployeeEventStatus(ctx, db.EmployeeEventStatus{
				EmployeeID: emp.ID,
				EventID:    event.ID,
				Status:     model.ParticipationAsked,
				UpdatedAt:  c.cfg.Now(),
			}); err != nil {
				mu.Lock()
				failures = append(failures, NotifyFailure{EmployeeID: emp.ID, Err: err})
				mu.Unlock()
				return
			}

			c.logger.Debug("Invitation sent",
				zap.String("event_id", event.ID),
				zap.String("employee_id", emp.ID),
				zap.String("message_id", messageID))

			mu.Lock()
			invited = append(invited, emp.ID)
			mu.Unlock()
		}(candidate)
	}

	wg.Wait()
	return invited, failures
}
