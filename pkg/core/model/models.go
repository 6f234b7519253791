package model

import (
	"time"

	"github.com/jakechorley/church-music-scheduler/pkg/core/recurrence"
)

// ManagerRole is the church role of the person invoking a scheduling operation
type ManagerRole string

const (
	RoleDirector          ManagerRole = "DIRECTOR"
	RoleAssociateDirector ManagerRole = "ASSOCIATE_DIRECTOR"
	RolePastor            ManagerRole = "PASTOR"
	RoleMusician          ManagerRole = "MUSICIAN"
)

// CanManageSchedule reports whether the role may create, edit or auto-assign events
func (r ManagerRole) CanManageSchedule() bool {
	return r == RoleDirector || r == RoleAssociateDirector || r == RolePastor
}

// AssignmentStatus is the response state of a musician for an assignment
type AssignmentStatus string

const (
	StatusPending  AssignmentStatus = "PENDING"
	StatusAccepted AssignmentStatus = "ACCEPTED"
	StatusDeclined AssignmentStatus = "DECLINED"
)

// IsCommitted reports whether the status still occupies the musician's time
func (s AssignmentStatus) IsCommitted() bool {
	return s == StatusPending || s == StatusAccepted
}

// Event is one concrete occurrence of a service
type Event struct {
	ID          string     `json:"id"`
	ChurchID    string     `json:"churchId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	EventTypeID string     `json:"eventTypeId,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`

	IsRootEvent       bool                `json:"isRootEvent"`
	IsRecurring       bool                `json:"isRecurring"`
	RecurrencePattern *recurrence.Pattern `json:"recurrencePattern,omitempty"`
	RecurrenceEnd     *time.Time          `json:"recurrenceEnd,omitempty"`

	// GeneratedFrom is the root event ID for generated children (empty otherwise)
	GeneratedFrom string `json:"generatedFrom,omitempty"`

	// IsModified is set by the editing UI once a generated child is edited by hand.
	// Regeneration never deletes or overwrites a modified event.
	IsModified bool `json:"isModified"`
}

// Duration returns the start to end span, or zero when the event has no end
func (e *Event) Duration() time.Duration {
	if e.EndTime == nil {
		return 0
	}
	return e.EndTime.Sub(e.StartTime)
}

// Assignment is one role slot on one event
type Assignment struct {
	ID             string           `json:"id"`
	EventID        string           `json:"eventId"`
	RoleName       string           `json:"roleName"`
	UserID         string           `json:"userId,omitempty"`  // Empty string if the slot is unfilled
	GroupID        string           `json:"groupId,omitempty"` // Empty string if not group-derived
	Status         AssignmentStatus `json:"status"`
	MaxMusicians   int              `json:"maxMusicians"`
	IsAutoAssigned bool             `json:"isAutoAssigned"`
}

// IsOpenIndividualSlot reports whether the slot is waiting for a person.
// Group placeholders (group set, no user) are filled by the group, not the matcher.
func (a *Assignment) IsOpenIndividualSlot() bool {
	return a.UserID == "" && a.GroupID == ""
}

// IsGroupDerived reports whether the slot was expanded from a group placeholder
func (a *Assignment) IsGroupDerived() bool {
	return a.UserID != "" && a.GroupID != ""
}

// Hymn is a service-part entry (hymn, reading, anthem) on one event
type Hymn struct {
	ID            string `json:"id"`
	EventID       string `json:"eventId"`
	ServicePartID string `json:"servicePartId,omitempty"`
	Title         string `json:"title"`
	Notes         string `json:"notes,omitempty"`
}

// HasContent reports whether someone has filled the entry in
func (h *Hymn) HasContent() bool {
	return h.Title != "" || h.Notes != ""
}

// Candidate is a musician who may be auto-assigned to open roles
type Candidate struct {
	ID             string
	FirstName      string
	LastName       string
	Instruments    []string
	GroupIDs       []string
	Commitments    []Commitment
	Unavailability []Unavailability
}

// DisplayName returns the candidate's full name
func (c *Candidate) DisplayName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Commitment is an existing assignment of a candidate with its event time window
type Commitment struct {
	AssignmentID string
	EventID      string
	Status       AssignmentStatus
	StartTime    time.Time
	EndTime      *time.Time
}

// UnavailabilityKind distinguishes date ranges from weekly rules
type UnavailabilityKind string

const (
	UnavailableDateRange UnavailabilityKind = "date_range"
	UnavailableWeekly    UnavailabilityKind = "weekly"
)

// Unavailability is a declared period in which a candidate cannot serve.
//
// For UnavailableDateRange, StartDate and EndDate are inclusive calendar dates.
// For UnavailableWeekly, DayOfWeek applies every week; StartDate and EndDate,
// when set, bound the period in which the rule is in force.
type Unavailability struct {
	ID        string
	UserID    string
	Kind      UnavailabilityKind
	StartDate *time.Time
	EndDate   *time.Time
	DayOfWeek time.Weekday
	Reason    string
}

// Activity is an entry in the church's activity log
type Activity struct {
	ID          string
	ChurchID    string
	UserID      string
	Type        string
	Description string
	CreatedAt   time.Time
}

// Activity types recorded by the scheduling core
const (
	ActivitySeriesCreated = "SERIES_CREATED"
	ActivitySeriesEdited  = "SERIES_EDITED"
	ActivityAutoAssigned  = "AUTO_ASSIGNED"
)

// Actor identifies who is invoking an operation
type Actor struct {
	UserID   string
	ChurchID string
	Role     ManagerRole
}
