package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Blackout is a set of RRULEs marking dates on which no occurrence is generated
// (e.g. "FREQ=YEARLY;BYMONTH=12;BYMONTHDAY=25")
type Blackout struct {
	rules []rrule.ROption
}

// NewBlackout parses RRULE strings. A nil or empty list yields a Blackout that removes nothing.
func NewBlackout(rules []string) (*Blackout, error) {
	b := &Blackout{}
	for i, s := range rules {
		opt, err := ParseBlackoutRule(s)
		if err != nil {
			return nil, fmt.Errorf("invalid blackout rrule %d: %w", i, err)
		}
		b.rules = append(b.rules, *opt)
	}
	return b, nil
}

// ParseBlackoutRule parses one blackout rule. A rule may carry its own DTSTART
// line; one without must not take anything from its start date, so COUNT,
// INTERVAL above 1, and rules whose day would come from DTSTART are rejected.
func ParseBlackoutRule(s string) (*rrule.ROption, error) {
	opt, err := rrule.StrToROption(s)
	if err != nil {
		return nil, err
	}
	if _, err := rrule.NewRRule(*opt); err != nil {
		return nil, err
	}
	if !opt.Dtstart.IsZero() {
		return opt, nil
	}

	switch {
	case opt.Count > 0:
		return nil, errors.New("COUNT needs a DTSTART")
	case opt.Interval > 1:
		return nil, errors.New("INTERVAL above 1 needs a DTSTART")
	case opt.Freq == rrule.WEEKLY && len(opt.Byweekday) == 0:
		return nil, errors.New("WEEKLY needs BYDAY or a DTSTART")
	case opt.Freq == rrule.MONTHLY && len(opt.Bymonthday) == 0 && len(opt.Byweekday) == 0:
		return nil, errors.New("MONTHLY needs BYMONTHDAY, BYDAY or a DTSTART")
	case opt.Freq == rrule.YEARLY && len(opt.Bymonthday) == 0 && len(opt.Byweekday) == 0 &&
		len(opt.Byyearday) == 0 && len(opt.Byweekno) == 0 && len(opt.Byeaster) == 0:
		return nil, errors.New("YEARLY needs a day (BYMONTHDAY, BYDAY, BYYEARDAY, BYWEEKNO or BYEASTER) or a DTSTART")
	}
	return opt, nil
}

// Filter removes the dates that fall on a blackout day. dates must be ascending.
func (b *Blackout) Filter(dates []time.Time) []time.Time {
	if b == nil || len(b.rules) == 0 || len(dates) == 0 {
		return dates
	}

	first, last := dates[0], dates[len(dates)-1]
	loc := first.Location()
	searchStart := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	searchEnd := endOfDay(last.Year(), last.Month(), last.Day(), loc)

	blocked := make(map[string]bool)
	for _, opt := range b.rules {
		// Rules without a DTSTART float: their calendar days are read in loc
		if opt.Dtstart.IsZero() {
			opt.Dtstart = searchStart
		}
		rule, err := rrule.NewRRule(opt)
		if err != nil {
			continue
		}
		// A day either side covers rules anchored in another zone
		for _, occurrence := range rule.Between(searchStart.AddDate(0, 0, -1), searchEnd.AddDate(0, 0, 1), true) {
			blocked[DateKey(occurrence)] = true
		}
	}

	kept := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if !blocked[DateKey(d)] {
			kept = append(kept, d)
		}
	}
	return kept
}
