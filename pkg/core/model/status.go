package model

import "fmt"

// EventStatus is the lifecycle state of an event. Transitions only move
// forward; going backwards requires an explicit operator reset.
type EventStatus string

const (
	EventDraft      EventStatus = "draft"
	EventRecruiting EventStatus = "recruiting"
	EventPlanned    EventStatus = "planned"
	EventActive     EventStatus = "active"
	EventCompleted  EventStatus = "completed"
)

var eventStatusOrder = map[EventStatus]int{
	EventDraft:      0,
	EventRecruiting: 1,
	EventPlanned:    2,
	EventActive:     3,
	EventCompleted:  4,
}

func (s EventStatus) IsValid() bool {
	_, ok := eventStatusOrder[s]
	return ok
}

func (s EventStatus) IsTerminal() bool {
	return s == EventCompleted
}

// CanTransition reports whether moving from s to the target status is a
// legal forward transition.
func (s EventStatus) CanTransition(to EventStatus) bool {
	from, ok := eventStatusOrder[s]
	target, ok2 := eventStatusOrder[to]
	if !ok || !ok2 {
		return false
	}
	return target > from
}

func ParseEventStatus(s string) (EventStatus, error) {
	status := EventStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown event status %q", s)
	}
	return status, nil
}

// ParticipationStatus tracks a single employee's state for a single event.
type ParticipationStatus string

const (
	ParticipationNotAsked     ParticipationStatus = "not_asked"
	ParticipationAsked        ParticipationStatus = "asked"
	ParticipationAvailable    ParticipationStatus = "available"
	ParticipationUnavailable  ParticipationStatus = "unavailable"
	ParticipationAlwaysNeeded ParticipationStatus = "always_needed"
	ParticipationSelected     ParticipationStatus = "selected"
	ParticipationWorking      ParticipationStatus = "working"
	ParticipationCompleted    ParticipationStatus = "completed"
)

func (s ParticipationStatus) IsValid() bool {
	switch s {
	case ParticipationNotAsked, ParticipationAsked, ParticipationAvailable,
		ParticipationUnavailable, ParticipationAlwaysNeeded,
		ParticipationSelected, ParticipationWorking, ParticipationCompleted:
		return true
	}
	return false
}

// IsCommitted reports whether the employee counts towards the event's
// available headcount.
func (s ParticipationStatus) IsCommitted() bool {
	switch s {
	case ParticipationAvailable, ParticipationSelected, ParticipationAlwaysNeeded:
		return true
	}
	return false
}

// IsTerminalForSelection reports whether the recruitment selector must never
// return an employee in this status again for the same event.
func (s ParticipationStatus) IsTerminalForSelection() bool {
	switch s {
	case ParticipationUnavailable, ParticipationSelected,
		ParticipationAlwaysNeeded, ParticipationWorking, ParticipationCompleted:
		return true
	}
	return false
}

// TimeRecordStatus is the state of a work session record.
type TimeRecordStatus string

const (
	TimeRecordActive    TimeRecordStatus = "active"
	TimeRecordCompleted TimeRecordStatus = "completed"
)
