package recruiting

import (
	"math"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// PlateauPolicy decides when recruitment for an event has plateaued: no
// further responses are expected, so asking more people is warranted. The
// original rule is an approximation (asked count vs. pool size), so the
// threshold is configurable rather than hard-coded.
type PlateauPolicy struct {
	// AskedFactor scales the event's employees_to_ask pool size. Recruitment
	// is considered plateaued once asked >= ceil(AskedFactor * employees_to_ask),
	// or when the eligible pool is exhausted.
	AskedFactor float64
}

// DefaultPlateauPolicy matches the historical behaviour: plateau once the
// configured ask pool has been used up.
func DefaultPlateauPolicy() PlateauPolicy {
	return PlateauPolicy{AskedFactor: 1.0}
}

func (p PlateauPolicy) askedThreshold(employeesToAsk int) int {
	factor := p.AskedFactor
	if factor <= 0 {
		factor = 1.0
	}
	return int(math.Ceil(factor * float64(employeesToAsk)))
}

// Evaluation is the read-only recruitment picture for one event.
type Evaluation struct {
	EventID                 string
	EmployeesNeeded         int
	EmployeesAvailable      int
	EmployeesAsked          int
	RemainingPool           int
	NeedsMoreRecruitment    bool
	SuggestedAdditionalAsks int
}

// Evaluate computes whether the event has enough committed employees and
// how many more should be asked. It performs no writes.
func Evaluate(
	event db.Event,
	employees []db.Employee,
	statuses []db.EmployeeEventStatus,
	areas []db.WorkArea,
	policy PlateauPolicy,
) Evaluation {
	available := 0
	asked := 0
	for _, s := range statuses {
		if s.Status.IsCommitted() {
			available++
		}
		if wasAsked(s.Status) {
			asked++
		}
	}

	pool := len(EligibleCandidates(employees, statuses, areas))

	shortfall := event.EmployeesNeeded - available
	if shortfall < 0 {
		shortfall = 0
	}
	suggested := min(shortfall, pool)

	plateaued := asked >= policy.askedThreshold(event.EmployeesToAsk) || pool == 0

	return Evaluation{
		EventID:                 event.ID,
		EmployeesNeeded:         event.EmployeesNeeded,
		EmployeesAvailable:      available,
		EmployeesAsked:          asked,
		RemainingPool:           pool,
		NeedsMoreRecruitment:    shortfall > 0 && plateaued,
		SuggestedAdditionalAsks: suggested,
	}
}

// wasAsked reports whether the status implies an invitation went out.
// Always-needed commitments never pass through the ask pool.
func wasAsked(s model.ParticipationStatus) bool {
	switch s {
	case model.ParticipationAsked, model.ParticipationAvailable,
		model.ParticipationUnavailable, model.ParticipationSelected,
		model.ParticipationWorking, model.ParticipationCompleted:
		return true
	}
	return false
}
