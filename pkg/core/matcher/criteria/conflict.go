package criteria

import (
	"time"

	"github.com/jakechorley/church-music-scheduler/pkg/core/matcher"
	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
	"github.com/jakechorley/church-music-scheduler/pkg/core/recurrence"
)

// ConflictCriterion excludes candidates already committed elsewhere at the same time.
//
// Validity:
//   - Only PENDING and ACCEPTED commitments count; declined ones free the candidate
//   - Returns false if a commitment's event window overlaps the slot's event window
//   - When either event has no end time, sharing a calendar day counts as overlapping
type ConflictCriterion struct{}

func NewConflictCriterion() *ConflictCriterion {
	return &ConflictCriterion{}
}

func (c *ConflictCriterion) Name() string {
	return "Conflict"
}

func (c *ConflictCriterion) Reason() matcher.Reason {
	return matcher.ReasonAllConflicted
}

func (c *ConflictCriterion) IsEligible(slot *matcher.Slot, candidate *model.Candidate) bool {
	event := slot.Event
	for _, commitment := range candidate.Commitments {
		if !commitment.Status.IsCommitted() {
			continue
		}
		if Overlap(event.StartTime, event.EndTime, commitment.StartTime, commitment.EndTime) {
			return false
		}
	}
	return true
}

// Overlap checks if two event windows overlap. A window without an end
// overlaps anything on the same calendar day.
func Overlap(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	if aEnd == nil || bEnd == nil {
		return recurrence.SameDate(aStart, bStart)
	}
	return aStart.Before(*bEnd) && bStart.Before(*aEnd)
}

// Default returns the standard filters in reason order: qualification, availability, conflict
func Default(roleSkills map[string][]string) []matcher.Criterion {
	return []matcher.Criterion{
		NewQualificationCriterion(roleSkills),
		NewAvailabilityCriterion(),
		NewConflictCriterion(),
	}
}
