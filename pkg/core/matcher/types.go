package matcher

import (
	"time"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
)

// Slot is an open assignment together with the event it belongs to
type Slot struct {
	Assignment model.Assignment
	Event      model.Event
}

// Snapshot is everything the matcher reads. It is not modified.
type Snapshot struct {
	Events      []model.Event
	Assignments []model.Assignment
	Candidates  []model.Candidate
}

// Reason explains why a slot was left without a proposal
type Reason string

const (
	ReasonNoneQualified       Reason = "no_one_qualified"
	ReasonAllUnavailable      Reason = "all_qualified_unavailable"
	ReasonAllConflicted       Reason = "all_qualified_conflicted"
	ReasonNoEligibleCandidate Reason = "no_eligible_candidate"
)

// Describe returns the reason as shown to schedulers
func (r Reason) Describe() string {
	switch r {
	case ReasonNoneQualified:
		return "No one is qualified for this role"
	case ReasonAllUnavailable:
		return "Everyone qualified is unavailable"
	case ReasonAllConflicted:
		return "Everyone qualified has a conflicting assignment"
	case ReasonNoEligibleCandidate:
		return "No eligible musician left"
	default:
		return ""
	}
}

// Proposal is a tentative role to person pairing. PersonID is nil when nobody
// could be found, in which case Reason is set.
type Proposal struct {
	AssignmentID string    `json:"assignmentId"`
	EventID      string    `json:"eventId"`
	EventName    string    `json:"eventName"`
	EventStart   time.Time `json:"eventStart"`
	RoleName     string    `json:"roleName"`
	PersonID     *string   `json:"personId"`
	PersonName   string    `json:"personName,omitempty"`
	Reason       Reason    `json:"reason,omitempty"`
}

// IsAssigned reports whether the proposal names a person
func (p *Proposal) IsAssigned() bool {
	return p.PersonID != nil
}

// CountAssigned returns how many proposals name a person
func CountAssigned(proposals []Proposal) int {
	count := 0
	for i := range proposals {
		if proposals[i].IsAssigned() {
			count++
		}
	}
	return count
}
