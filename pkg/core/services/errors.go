package services

import (
	"errors"
	"fmt"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
)

var (
	// ErrForbidden is returned when the actor's role may not manage the schedule
	ErrForbidden = errors.New("only directors, associate directors and pastors can manage the schedule")

	// ErrRootNotFound is returned when a series edit names an event that is not a root event of the church
	ErrRootNotFound = errors.New("root event not found")

	// ErrSlotTaken is returned when a proposed slot was filled by someone else before commit
	ErrSlotTaken = errors.New("assignment slot was filled concurrently")
)

// ValidationError reports a rejected request field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Authorize checks the actor may create, edit or auto-assign events.
// It runs before any read or write.
func Authorize(actor model.Actor) error {
	if actor.ChurchID == "" {
		return fmt.Errorf("%w: actor has no church", ErrForbidden)
	}
	if !actor.Role.CanManageSchedule() {
		return ErrForbidden
	}
	return nil
}
