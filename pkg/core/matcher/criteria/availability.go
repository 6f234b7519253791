package criteria

import (
	"github.com/jakechorley/church-music-scheduler/pkg/core/matcher"
	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
	"github.com/jakechorley/church-music-scheduler/pkg/core/recurrence"
)

// AvailabilityCriterion excludes candidates who have declared themselves unavailable.
//
// Validity:
//   - Returns false if a date range covers any calendar day of the event
//   - Returns false if a weekly rule names the event's weekday and is in force on that date
type AvailabilityCriterion struct{}

func NewAvailabilityCriterion() *AvailabilityCriterion {
	return &AvailabilityCriterion{}
}

func (c *AvailabilityCriterion) Name() string {
	return "Availability"
}

func (c *AvailabilityCriterion) Reason() matcher.Reason {
	return matcher.ReasonAllUnavailable
}

func (c *AvailabilityCriterion) IsEligible(slot *matcher.Slot, candidate *model.Candidate) bool {
	event := slot.Event
	first := recurrence.DateKey(event.StartTime)
	last := first
	if event.EndTime != nil {
		last = recurrence.DateKey(event.EndTime.In(event.StartTime.Location()))
	}

	for _, u := range candidate.Unavailability {
		switch u.Kind {
		case model.UnavailableDateRange:
			if u.StartDate == nil && u.EndDate == nil {
				continue
			}
			if withinWindow(u, first, last) {
				return false
			}
		case model.UnavailableWeekly:
			if u.DayOfWeek == event.StartTime.Weekday() && withinWindow(u, first, first) {
				return false
			}
		}
	}

	return true
}

// withinWindow reports whether [first, last] overlaps the unavailability's
// inclusive date window. Missing bounds are open.
func withinWindow(u model.Unavailability, first, last string) bool {
	if u.StartDate != nil && last < recurrence.DateKey(*u.StartDate) {
		return false
	}
	if u.EndDate != nil && first > recurrence.DateKey(*u.EndDate) {
		return false
	}
	return true
}
