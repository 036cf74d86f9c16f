// Package recruiting implements the fair-distribution recruitment engine:
// ranking candidates by least-recently-worked, selecting who to ask next,
// and evaluating whether an event still needs more invitations. Everything
// in here is pure; callers own all persistence and notification side
// effects.
package recruiting

import (
	"cmp"
	"slices"

	"github.com/jonasweber/staffwerk/pkg/db"
)

// SortByFairness orders employees in place so that work is distributed
// evenly over time: never-worked first, then oldest last_worked_date, ties
// broken by fewest total hours, then by ID so repeated runs over unchanged
// data produce identical orderings.
func SortByFairness(employees []db.Employee) {
	slices.SortStableFunc(employees, compareFairness)
}

func compareFairness(a, b db.Employee) int {
	if c := compareLastWorked(a, b); c != 0 {
		return c
	}
	if c := cmp.Compare(a.TotalHoursWorked, b.TotalHoursWorked); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareLastWorked(a, b db.Employee) int {
	switch {
	case a.LastWorkedDate == nil && b.LastWorkedDate == nil:
		return 0
	case a.LastWorkedDate == nil:
		return -1
	case b.LastWorkedDate == nil:
		return 1
	case a.LastWorkedDate.Before(*b.LastWorkedDate):
		return -1
	case b.LastWorkedDate.Before(*a.LastWorkedDate):
		return 1
	}
	return 0
}
