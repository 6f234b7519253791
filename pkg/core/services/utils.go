package services

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
)

// timeNow is replaced in tests to pin "now"
var timeNow = time.Now

// newID generates record IDs
var newID = uuid.NewString

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report request fields by their JSON names
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateStruct runs tag validation and reports the first failure as a ValidationError
func validateStruct(prefix string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return invalid(prefix, err.Error())
	}

	fe := errs[0]
	// Namespace is "Type.field[0].sub"; drop the type name
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	if prefix != "" {
		field = prefix + "." + field
	}

	switch fe.Tag() {
	case "required":
		return invalid(field, "is required")
	case "min":
		return invalid(field, "must be at least "+fe.Param())
	default:
		return invalid(field, "failed "+fe.Tag()+" check")
	}
}

// inLocation returns e with its times expressed in loc
func inLocation(e model.Event, loc *time.Location) model.Event {
	e.StartTime = e.StartTime.In(loc)
	if e.EndTime != nil {
		end := e.EndTime.In(loc)
		e.EndTime = &end
	}
	return e
}

// eventIDs extracts event IDs from a list of events
func eventIDs(events []model.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}

// newActivity builds an activity log entry for the actor
func newActivity(actor model.Actor, activityType, description string) model.Activity {
	return model.Activity{
		ID:          newID(),
		ChurchID:    actor.ChurchID,
		UserID:      actor.UserID,
		Type:        activityType,
		Description: description,
		CreatedAt:   timeNow(),
	}
}

// dedupe returns ids without blanks or repeats, keeping first-seen order
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// rruleOf renders an event's recurrence for logging, or "" for a one-off
func rruleOf(e model.Event) string {
	if e.RecurrencePattern == nil {
		return ""
	}
	rule, err := e.RecurrencePattern.RRule(e.StartTime)
	if err != nil {
		return ""
	}
	return rule
}
