package series

import (
	"time"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
)

// RoleSlot is one role of the skeleton copied to every occurrence
type RoleSlot struct {
	RoleName     string `json:"roleName" validate:"required"`
	MaxMusicians int    `json:"maxMusicians" validate:"omitempty,min=1"`
}

// HymnSlot is one service part of the skeleton; its title starts empty
type HymnSlot struct {
	ServicePartID string `json:"servicePartId" validate:"required"`
}

// Skeleton is the structure shared by every occurrence of a series
type Skeleton struct {
	Roles []RoleSlot
	Hymns []HymnSlot
}

// SkeletonFrom derives the skeleton of an existing event. The people filling
// the roles and the titles of the hymns are not part of it. Group-derived
// individual slots are left out since the group placeholder already carries them.
func SkeletonFrom(assignments []model.Assignment, hymns []model.Hymn) Skeleton {
	var skel Skeleton
	for _, a := range assignments {
		if a.IsGroupDerived() {
			continue
		}
		skel.Roles = append(skel.Roles, RoleSlot{RoleName: a.RoleName, MaxMusicians: a.MaxMusicians})
	}
	for _, h := range hymns {
		if h.ServicePartID == "" {
			continue
		}
		skel.Hymns = append(skel.Hymns, HymnSlot{ServicePartID: h.ServicePartID})
	}
	return skel
}

// Batch is a set of rows to insert together
type Batch struct {
	Events      []model.Event
	Assignments []model.Assignment
	Hymns       []model.Hymn
}

// Append adds other's rows to b
func (b *Batch) Append(other Batch) {
	b.Events = append(b.Events, other.Events...)
	b.Assignments = append(b.Assignments, other.Assignments...)
	b.Hymns = append(b.Hymns, other.Hymns...)
}

func (b *Batch) IsEmpty() bool {
	return len(b.Events) == 0 && len(b.Assignments) == 0 && len(b.Hymns) == 0
}

// Materialize builds the child events of root for each date, each with an open
// copy of skel
func Materialize(root model.Event, dates []time.Time, skel Skeleton, newID func() string) Batch {
	batch := Batch{Events: make([]model.Event, 0, len(dates))}
	duration := root.Duration()

	for _, start := range dates {
		child := model.Event{
			ID:            newID(),
			ChurchID:      root.ChurchID,
			Name:          root.Name,
			Description:   root.Description,
			Location:      root.Location,
			EventTypeID:   root.EventTypeID,
			StartTime:     start,
			GeneratedFrom: root.ID,
		}
		if root.EndTime != nil {
			end := start.Add(duration)
			child.EndTime = &end
		}

		batch.Events = append(batch.Events, child)
		batch.Append(Slots(child.ID, skel, newID))
	}

	return batch
}

// Slots builds the open role slots and empty hymn placeholders of skel for one event
func Slots(eventID string, skel Skeleton, newID func() string) Batch {
	var batch Batch
	for _, role := range skel.Roles {
		batch.Assignments = append(batch.Assignments, model.Assignment{
			ID:           newID(),
			EventID:      eventID,
			RoleName:     role.RoleName,
			Status:       model.StatusPending,
			MaxMusicians: max(role.MaxMusicians, 1),
		})
	}
	for _, hymn := range skel.Hymns {
		batch.Hymns = append(batch.Hymns, model.Hymn{
			ID:            newID(),
			EventID:       eventID,
			ServicePartID: hymn.ServicePartID,
		})
	}
	return batch
}
