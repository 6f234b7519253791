package recurrence

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Kind is the top-level recurrence type
type Kind string

const (
	KindWeekly   Kind = "weekly"
	KindBiweekly Kind = "biweekly"
	KindMonthly  Kind = "monthly"
	KindCustom   Kind = "custom"
)

// MonthlyType selects how a monthly rule picks its day
type MonthlyType string

const (
	MonthlyDate           MonthlyType = "date"
	MonthlyWeekdayOfMonth MonthlyType = "weekdayOfMonth"
)

const (
	// LastWeek selects the final matching weekday of the month
	LastWeek = -1

	// AnchorWeek derives the week of the month from the anchor date
	AnchorWeek = 0

	// AnchorWeekday derives the weekday from the anchor date
	AnchorWeekday time.Weekday = -1
)

// Rule is one of Weekly, Biweekly, MonthlyByDate, MonthlyByWeekday or Custom
type Rule interface {
	Kind() Kind
	isRule()
}

// Weekly repeats every 7 days from the anchor
type Weekly struct{}

// Biweekly repeats every 14 days from the anchor
type Biweekly struct{}

// MonthlyByDate repeats on the anchor's day of the month, clamped to short months
type MonthlyByDate struct {
	Interval int // months between occurrences
}

// MonthlyByWeekday repeats on the Nth weekday of the month (e.g. 2nd Tuesday)
type MonthlyByWeekday struct {
	Interval int          // months between occurrences
	Week     int          // 1..5, LastWeek, or AnchorWeek
	Weekday  time.Weekday // or AnchorWeekday
}

// Custom repeats every IntervalWeeks weeks on each of Weekdays
type Custom struct {
	IntervalWeeks int
	Weekdays      []time.Weekday
}

func (Weekly) Kind() Kind           { return KindWeekly }
func (Biweekly) Kind() Kind         { return KindBiweekly }
func (MonthlyByDate) Kind() Kind    { return KindMonthly }
func (MonthlyByWeekday) Kind() Kind { return KindMonthly }
func (Custom) Kind() Kind           { return KindCustom }

func (Weekly) isRule()           {}
func (Biweekly) isRule()         {}
func (MonthlyByDate) isRule()    {}
func (MonthlyByWeekday) isRule() {}
func (Custom) isRule()           {}

// Pattern describes how an event repeats. Patterns are values: build them with
// a Rule and never mutate a Custom rule's weekday slice after construction.
type Pattern struct {
	Rule Rule

	// MaxOccurrences caps the series length including the root occurrence (0 = no cap)
	MaxOccurrences int

	// EndDate is the last calendar date an occurrence may fall on (zero = open ended)
	EndDate time.Time
}

// Validate checks the rule's fields are in range
func (p Pattern) Validate() error {
	if p.MaxOccurrences < 0 {
		return &PatternError{Field: "maxOccurrences", Reason: "must be positive"}
	}

	switch r := p.Rule.(type) {
	case nil:
		return &PatternError{Field: "type", Reason: "is required"}
	case Weekly, Biweekly:
		return nil
	case MonthlyByDate:
		if r.Interval < 0 {
			return &PatternError{Field: "interval", Reason: "must be positive"}
		}
		return nil
	case MonthlyByWeekday:
		if r.Interval < 0 {
			return &PatternError{Field: "interval", Reason: "must be positive"}
		}
		if r.Week != LastWeek && (r.Week < AnchorWeek || r.Week > 5) {
			return &PatternError{Field: "weekOfMonth", Reason: fmt.Sprintf("must be 1-5 or \"last\", got %d", r.Week)}
		}
		if r.Weekday != AnchorWeekday && (r.Weekday < time.Sunday || r.Weekday > time.Saturday) {
			return &PatternError{Field: "weekdays", Reason: fmt.Sprintf("weekday %d out of range", r.Weekday)}
		}
		return nil
	case Custom:
		if r.IntervalWeeks < 0 {
			return &PatternError{Field: "interval", Reason: "must be positive"}
		}
		if len(r.Weekdays) == 0 {
			return &PatternError{Field: "weekdays", Reason: "custom patterns need at least one weekday"}
		}
		for _, wd := range r.Weekdays {
			if wd < time.Sunday || wd > time.Saturday {
				return &PatternError{Field: "weekdays", Reason: fmt.Sprintf("weekday %d out of range", wd)}
			}
		}
		return nil
	default:
		return &PatternError{Field: "type", Reason: fmt.Sprintf("unsupported rule %T", r)}
	}
}

// Equal reports whether two patterns generate the same series shape.
// It compares type, interval, the weekday set, monthly type, week of month and
// MaxOccurrences; EndDate is deliberately left out.
func (p Pattern) Equal(other Pattern) bool {
	if p.MaxOccurrences != other.MaxOccurrences {
		return false
	}
	return rulesEqual(p.Rule, other.Rule)
}

// SamePattern compares optional patterns; two nil patterns are equal
func SamePattern(a, b *Pattern) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func rulesEqual(a, b Rule) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Weekly:
		_, ok := b.(Weekly)
		return ok
	case Biweekly:
		_, ok := b.(Biweekly)
		return ok
	case MonthlyByDate:
		y, ok := b.(MonthlyByDate)
		return ok && atLeastOne(x.Interval) == atLeastOne(y.Interval)
	case MonthlyByWeekday:
		y, ok := b.(MonthlyByWeekday)
		return ok &&
			atLeastOne(x.Interval) == atLeastOne(y.Interval) &&
			x.Week == y.Week &&
			x.Weekday == y.Weekday
	case Custom:
		y, ok := b.(Custom)
		return ok &&
			atLeastOne(x.IntervalWeeks) == atLeastOne(y.IntervalWeeks) &&
			slices.Equal(weekdaySet(x.Weekdays), weekdaySet(y.Weekdays))
	default:
		panic(fmt.Sprintf("recurrence: unhandled rule type %T", a))
	}
}

// weekdaySet returns a sorted copy of weekdays with duplicates removed
func weekdaySet(weekdays []time.Weekday) []time.Weekday {
	set := slices.Clone(weekdays)
	slices.Sort(set)
	return slices.Compact(set)
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

var weekdayAbbrev = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Describe renders the pattern for activity log entries, e.g. "monthly on the 2nd Tuesday"
func (p Pattern) Describe() string {
	var desc string
	switch r := p.Rule.(type) {
	case nil:
		return "does not repeat"
	case Weekly:
		desc = "weekly"
	case Biweekly:
		desc = "every 2 weeks"
	case MonthlyByDate:
		desc = everyN(r.Interval, "month", "monthly") + " on the same date"
	case MonthlyByWeekday:
		day := "weekday"
		if r.Weekday != AnchorWeekday {
			day = r.Weekday.String()
		}
		desc = everyN(r.Interval, "month", "monthly") + " on the " + ordinal(r.Week) + " " + day
	case Custom:
		names := make([]string, 0, len(r.Weekdays))
		for _, wd := range weekdaySet(r.Weekdays) {
			names = append(names, weekdayAbbrev[wd])
		}
		desc = everyN(r.IntervalWeeks, "week", "weekly") + " on " + strings.Join(names, ", ")
	default:
		desc = string(r.Kind())
	}

	if p.MaxOccurrences > 0 {
		desc += fmt.Sprintf(", %d occurrences", p.MaxOccurrences)
	}
	if !p.EndDate.IsZero() {
		desc += ", until " + p.EndDate.Format("2006-01-02")
	}
	return desc
}

func everyN(n int, unit, single string) string {
	if n <= 1 {
		return single
	}
	return fmt.Sprintf("every %d %ss", n, unit)
}

func ordinal(week int) string {
	switch week {
	case LastWeek:
		return "last"
	case AnchorWeek:
		return "same"
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", week)
	}
}

// PatternError reports an invalid or unparseable recurrence pattern
type PatternError struct {
	Field  string
	Reason string
	Err    error
}

func (e *PatternError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid recurrence pattern: %v", e.Err)
	}
	return fmt.Sprintf("invalid recurrence pattern: %s %s", e.Field, e.Reason)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
