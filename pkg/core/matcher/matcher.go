package matcher

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
)

// Options configures a Propose run
type Options struct {
	// Criteria are applied in order. The first one to remove every remaining
	// candidate names the reason for an empty slot.
	Criteria []Criterion

	// Rand breaks ties between eligible candidates. Nil uses the global source.
	Rand *rand.Rand
}

// Propose pairs every open individual slot in snap with at most one candidate.
//
// Slots are taken in order of event start, role name and assignment ID. Each
// slot goes to a random eligible candidate who has not already been proposed
// in this run, so nobody is double booked within one batch. Propose has no side
// effects; the same snapshot and seed always give the same proposals.
func Propose(snap Snapshot, opts Options) []Proposal {
	slots := openSlots(snap)

	candidates := slices.Clone(snap.Candidates)
	slices.SortFunc(candidates, func(a, b model.Candidate) int {
		return cmp.Compare(a.ID, b.ID)
	})

	used := make(map[string]bool)
	proposals := make([]Proposal, 0, len(slots))

	for i := range slots {
		slot := &slots[i]
		proposal := Proposal{
			AssignmentID: slot.Assignment.ID,
			EventID:      slot.Event.ID,
			EventName:    slot.Event.Name,
			EventStart:   slot.Event.StartTime,
			RoleName:     slot.Assignment.RoleName,
		}

		pool := make([]*model.Candidate, 0, len(candidates))
		for j := range candidates {
			if !used[candidates[j].ID] {
				pool = append(pool, &candidates[j])
			}
		}

		// Everyone left was proposed for an earlier slot
		var reason Reason
		if len(pool) == 0 && len(candidates) > 0 {
			reason = ReasonNoEligibleCandidate
		}
		for _, criterion := range opts.Criteria {
			if reason != "" {
				break
			}
			pool = slices.DeleteFunc(pool, func(c *model.Candidate) bool {
				return !criterion.IsEligible(slot, c)
			})
			if len(pool) == 0 {
				reason = criterion.Reason()
			}
		}
		if reason == "" && len(pool) == 0 {
			reason = ReasonNoEligibleCandidate
		}

		if reason != "" {
			proposal.Reason = reason
			proposals = append(proposals, proposal)
			continue
		}

		chosen := pool[pick(opts.Rand, len(pool))]
		used[chosen.ID] = true

		personID := chosen.ID
		proposal.PersonID = &personID
		proposal.PersonName = chosen.DisplayName()
		proposals = append(proposals, proposal)
	}

	return proposals
}

func pick(r *rand.Rand, n int) int {
	if r == nil {
		return rand.IntN(n)
	}
	return r.IntN(n)
}

// openSlots returns the open individual slots of snap's events in processing order
func openSlots(snap Snapshot) []Slot {
	events := make(map[string]model.Event, len(snap.Events))
	for _, e := range snap.Events {
		events[e.ID] = e
	}

	var slots []Slot
	for _, a := range snap.Assignments {
		if !a.IsOpenIndividualSlot() {
			continue
		}
		event, ok := events[a.EventID]
		if !ok {
			continue
		}
		slots = append(slots, Slot{Assignment: a, Event: event})
	}

	slices.SortStableFunc(slots, func(a, b Slot) int {
		return cmp.Or(
			a.Event.StartTime.Compare(b.Event.StartTime),
			cmp.Compare(a.Assignment.RoleName, b.Assignment.RoleName),
			cmp.Compare(a.Assignment.ID, b.Assignment.ID),
		)
	})
	return slots
}
