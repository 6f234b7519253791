package matcher

import "github.com/jakechorley/church-music-scheduler/pkg/core/model"

// Criterion is a hard filter on which candidates may fill a slot
type Criterion interface {
	// Name returns a human-readable identifier for this criterion
	Name() string

	// IsEligible determines if the candidate may fill the slot.
	// This acts as a veto - if ANY criterion returns false, the candidate is not proposed.
	IsEligible(slot *Slot, candidate *model.Candidate) bool

	// Reason is reported for a slot when this criterion removes the last remaining candidates
	Reason() Reason
}
