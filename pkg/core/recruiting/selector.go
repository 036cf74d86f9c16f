package recruiting

import (
	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// SelectCandidates picks up to additional employees to invite for the
// event, in fairness order. Employees already asked or in a terminal status
// for this event are excluded, as are always-needed employees (they are
// committed outside the ranking). When work areas carry role requirements,
// only employees whose capability set covers at least one required role are
// eligible; without area detail any employee qualifies.
//
// Fewer eligible candidates than requested is not an error; the short list
// is returned as-is.
func SelectCandidates(
	employees []db.Employee,
	statuses []db.EmployeeEventStatus,
	areas []db.WorkArea,
	additional int,
) []db.Employee {
	if additional <= 0 {
		return nil
	}

	eligible := EligibleCandidates(employees, statuses, areas)
	SortByFairness(eligible)

	if len(eligible) > additional {
		eligible = eligible[:additional]
	}
	return eligible
}

// EligibleCandidates returns the unranked pool SelectCandidates draws from.
// The evaluator uses it to cap suggested ask counts by the remaining pool.
func EligibleCandidates(
	employees []db.Employee,
	statuses []db.EmployeeEventStatus,
	areas []db.WorkArea,
) []db.Employee {
	statusByEmployee := make(map[string]model.ParticipationStatus, len(statuses))
	for _, s := range statuses {
		statusByEmployee[s.EmployeeID] = s.Status
	}

	requiredRoles := requiredRoleSet(areas)

	eligible := make([]db.Employee, 0, len(employees))
	for _, emp := range employees {
		if emp.AlwaysNeeded {
			continue
		}
		status, known := statusByEmployee[emp.ID]
		if known && status != model.ParticipationNotAsked {
			// Anything past not_asked means an invitation already went out
			// or a response already arrived.
			continue
		}
		if len(requiredRoles) > 0 && !canCoverAny(emp.Role, requiredRoles) {
			continue
		}
		eligible = append(eligible, emp)
	}
	return eligible
}

func requiredRoleSet(areas []db.WorkArea) map[model.Role]bool {
	required := make(map[model.Role]bool)
	for _, area := range areas {
		if !area.IsActive {
			continue
		}
		for role, count := range area.RoleRequirements {
			if count > 0 {
				required[role] = true
			}
		}
	}
	return required
}

func canCoverAny(role model.Role, required map[model.Role]bool) bool {
	for _, capability := range model.CapabilitySet(role) {
		if required[capability] {
			return true
		}
	}
	return false
}
