package recurrence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// wirePattern is the stored/request JSON form of a Pattern
type wirePattern struct {
	Type           string       `json:"type" validate:"required,oneof=weekly biweekly monthly custom"`
	Interval       int          `json:"interval,omitempty" validate:"omitempty,min=1,max=52"`
	Weekdays       []int        `json:"weekdays,omitempty" validate:"omitempty,dive,min=0,max=6"`
	MonthlyType    string       `json:"monthlyType,omitempty" validate:"omitempty,oneof=date weekdayOfMonth"`
	WeekOfMonth    *WeekOfMonth `json:"weekOfMonth,omitempty"`
	MaxOccurrences int          `json:"maxOccurrences,omitempty" validate:"omitempty,min=1"`
	EndDate        string       `json:"endDate,omitempty"`
}

// WeekOfMonth is 1..5 or LastWeek; on the wire it is a number or "last"
type WeekOfMonth int

func (w WeekOfMonth) MarshalJSON() ([]byte, error) {
	if int(w) == LastWeek {
		return []byte(`"last"`), nil
	}
	return []byte(strconv.Itoa(int(w))), nil
}

func (w *WeekOfMonth) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*w = WeekOfMonth(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("weekOfMonth must be a number or \"last\": %w", err)
	}
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "last" {
		*w = WeekOfMonth(LastWeek)
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("weekOfMonth must be a number or \"last\", got %q", s)
	}
	*w = WeekOfMonth(n)
	return nil
}

// ParsePattern decodes and validates the JSON form of a pattern
func ParsePattern(data []byte) (Pattern, error) {
	var p Pattern
	if err := p.UnmarshalJSON(data); err != nil {
		return Pattern{}, err
	}
	return p, nil
}

// MarshalJSON writes the canonical wire form; equal patterns produce identical bytes
func (p Pattern) MarshalJSON() ([]byte, error) {
	w := wirePattern{MaxOccurrences: p.MaxOccurrences}
	if !p.EndDate.IsZero() {
		w.EndDate = p.EndDate.Format("2006-01-02")
	}

	switch r := p.Rule.(type) {
	case Weekly:
		w.Type = string(KindWeekly)
	case Biweekly:
		w.Type = string(KindBiweekly)
	case MonthlyByDate:
		w.Type = string(KindMonthly)
		w.MonthlyType = string(MonthlyDate)
		w.Interval = atLeastOne(r.Interval)
	case MonthlyByWeekday:
		w.Type = string(KindMonthly)
		w.MonthlyType = string(MonthlyWeekdayOfMonth)
		w.Interval = atLeastOne(r.Interval)
		if r.Week != AnchorWeek {
			week := WeekOfMonth(r.Week)
			w.WeekOfMonth = &week
		}
		if r.Weekday != AnchorWeekday {
			w.Weekdays = []int{int(r.Weekday)}
		}
	case Custom:
		w.Type = string(KindCustom)
		w.Interval = atLeastOne(r.IntervalWeeks)
		for _, wd := range weekdaySet(r.Weekdays) {
			w.Weekdays = append(w.Weekdays, int(wd))
		}
	default:
		return nil, &PatternError{Field: "type", Reason: fmt.Sprintf("cannot encode rule %T", r)}
	}

	return json.Marshal(w)
}

// UnmarshalJSON decodes, validates and normalizes a pattern
func (p *Pattern) UnmarshalJSON(data []byte) error {
	var w wirePattern
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&w); err != nil {
		return &PatternError{Err: err}
	}
	w.Type = strings.ToLower(strings.TrimSpace(w.Type))

	if err := validate.Struct(w); err != nil {
		return &PatternError{Err: err}
	}

	parsed := Pattern{MaxOccurrences: w.MaxOccurrences}
	if w.EndDate != "" {
		end, err := parseDate(w.EndDate)
		if err != nil {
			return &PatternError{Field: "endDate", Reason: err.Error()}
		}
		parsed.EndDate = end
	}

	weekdays := make([]time.Weekday, 0, len(w.Weekdays))
	for _, wd := range w.Weekdays {
		weekdays = append(weekdays, time.Weekday(wd))
	}

	switch Kind(w.Type) {
	case KindWeekly:
		parsed.Rule = Weekly{}
	case KindBiweekly:
		parsed.Rule = Biweekly{}
	case KindMonthly:
		if MonthlyType(w.MonthlyType) == MonthlyWeekdayOfMonth {
			rule := MonthlyByWeekday{
				Interval: atLeastOne(w.Interval),
				Week:     AnchorWeek,
				Weekday:  AnchorWeekday,
			}
			if w.WeekOfMonth != nil {
				rule.Week = int(*w.WeekOfMonth)
			}
			if len(weekdays) > 0 {
				rule.Weekday = weekdays[0]
			}
			parsed.Rule = rule
		} else {
			parsed.Rule = MonthlyByDate{Interval: atLeastOne(w.Interval)}
		}
	case KindCustom:
		parsed.Rule = Custom{
			IntervalWeeks: atLeastOne(w.Interval),
			Weekdays:      weekdaySet(weekdays),
		}
	}

	if err := parsed.Validate(); err != nil {
		return err
	}

	*p = parsed
	return nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp and keeps only the date
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be YYYY-MM-DD, got %q", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
