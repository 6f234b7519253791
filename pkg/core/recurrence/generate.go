package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// MaxGeneratedDates bounds a single Generate call. Longer series are produced by
// calling Generate again from a later anchor.
const MaxGeneratedDates = 52

// rruleWeekdays maps time.Weekday (Sunday = 0) onto rrule weekdays
var rruleWeekdays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Generate returns the occurrence times that follow anchor, in ascending order.
//
// The anchor is the existing root occurrence and is never returned. Generation
// stops at the first of: the end of horizonEnd's calendar day (skipped when
// horizonEnd is zero), the end of the pattern's EndDate, MaxOccurrences (which
// counts the anchor), or MaxGeneratedDates. Every occurrence keeps the anchor's
// time of day in the anchor's location.
func Generate(p Pattern, anchor, horizonEnd time.Time) ([]time.Time, error) {
	return GenerateFrom(p, anchor, time.Time{}, horizonEnd)
}

// GenerateFrom is Generate limited to occurrences at or after from. The rule
// stays anchored at anchor, so weekday and month-day phase and MaxOccurrences
// are counted from the anchor, while MaxGeneratedDates bounds the dates
// returned. A zero from returns the same dates as Generate.
func GenerateFrom(p Pattern, anchor, from, horizonEnd time.Time) ([]time.Time, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	remaining := -1
	if p.MaxOccurrences > 0 {
		remaining = p.MaxOccurrences - 1
	}
	if remaining == 0 {
		return []time.Time{}, nil
	}

	rule, err := p.build(anchor, p.until(anchor, horizonEnd))
	if err != nil {
		return nil, err
	}

	// rrule truncates DTSTART to whole seconds
	after := anchor.Truncate(time.Second)

	dates := make([]time.Time, 0, MaxGeneratedDates)
	next := rule.Iterator()
	for len(dates) < MaxGeneratedDates && remaining != 0 {
		occurrence, ok := next()
		if !ok {
			break
		}
		if !occurrence.After(after) {
			continue
		}
		remaining--
		if occurrence.Before(from) {
			continue
		}
		dates = append(dates, occurrence)
	}

	return dates, nil
}

// RRule renders the rule anchored at anchor in RFC 5545 form, for logging
func (p Pattern) RRule(anchor time.Time) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	rule, err := p.build(anchor, p.until(anchor, time.Time{}))
	if err != nil {
		return "", err
	}
	return rule.String(), nil
}

// until returns the inclusive generation bound, or zero for none
func (p Pattern) until(anchor, horizonEnd time.Time) time.Time {
	loc := anchor.Location()

	var until time.Time
	if !horizonEnd.IsZero() {
		h := horizonEnd.In(loc)
		until = endOfDay(h.Year(), h.Month(), h.Day(), loc)
	}

	// EndDate is a calendar date; take its fields as-is rather than converting zones
	if !p.EndDate.IsZero() {
		end := endOfDay(p.EndDate.Year(), p.EndDate.Month(), p.EndDate.Day(), loc)
		if until.IsZero() || end.Before(until) {
			until = end
		}
	}

	return until
}

func (p Pattern) build(anchor, until time.Time) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Dtstart: anchor,
		Until:   until,
	}

	switch r := p.Rule.(type) {
	case Weekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 1
	case Biweekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 2
	case MonthlyByDate:
		opt.Freq = rrule.MONTHLY
		opt.Interval = atLeastOne(r.Interval)
		day := anchor.Day()
		if day <= 28 {
			opt.Bymonthday = []int{day}
		} else {
			// First of {day, last day of month}: clamps Jan 31 to Feb 28/29
			opt.Bymonthday = []int{day, -1}
			opt.Bysetpos = []int{1}
		}
	case MonthlyByWeekday:
		opt.Freq = rrule.MONTHLY
		opt.Interval = atLeastOne(r.Interval)

		weekday := r.Weekday
		if weekday == AnchorWeekday {
			weekday = anchor.Weekday()
		}
		week := r.Week
		if week == AnchorWeek {
			week = (anchor.Day()-1)/7 + 1
		}
		wd := rruleWeekdays[weekday]
		opt.Byweekday = []rrule.Weekday{wd.Nth(week)}
	case Custom:
		opt.Freq = rrule.WEEKLY
		opt.Interval = atLeastOne(r.IntervalWeeks)
		opt.Wkst = rrule.SU
		for _, weekday := range weekdaySet(r.Weekdays) {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[weekday])
		}
	default:
		return nil, &PatternError{Field: "type", Reason: fmt.Sprintf("unsupported rule %T", r)}
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build rrule: %w", err)
	}
	return rule, nil
}

func endOfDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 23, 59, 59, 0, loc)
}

// DateKey returns the calendar date of t in its own location, e.g. "2024-01-14"
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameDate reports whether a and b fall on the same calendar date in a's location
func SameDate(a, b time.Time) bool {
	return DateKey(a) == DateKey(b.In(a.Location()))
}
