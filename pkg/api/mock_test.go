package api

import (
	"context"
	"slices"
	"time"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
	"github.com/jakechorley/church-music-scheduler/pkg/db"
)

// memStore is a minimal in-memory db.Database. Transactions are not isolated;
// writes counts every write call.
type memStore struct {
	events      map[string]model.Event
	assignments []model.Assignment
	hymns       []model.Hymn
	candidates  []model.Candidate
	activities  []model.Activity

	writes int
}

var _ db.Database = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{events: make(map[string]model.Event)}
}

func (m *memStore) InTx(ctx context.Context, timeout time.Duration, fn func(tx db.Tx) error) error {
	return fn(m)
}

func (m *memStore) GetEvent(ctx context.Context, churchID, eventID string) (*model.Event, error) {
	e, ok := m.events[eventID]
	if !ok || e.ChurchID != churchID {
		return nil, db.ErrNotFound
	}
	return &e, nil
}

func (m *memStore) ListEvents(ctx context.Context, churchID string, eventIDs []string) ([]model.Event, error) {
	var out []model.Event
	for _, id := range eventIDs {
		if e, ok := m.events[id]; ok && e.ChurchID == churchID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) ListSeriesChildren(ctx context.Context, churchID, rootID string) ([]model.Event, error) {
	var out []model.Event
	for _, e := range m.events {
		if e.ChurchID == churchID && e.GeneratedFrom == rootID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.Event) int { return a.StartTime.Compare(b.StartTime) })
	return out, nil
}

func (m *memStore) ListAssignments(ctx context.Context, eventIDs []string) ([]model.Assignment, error) {
	var out []model.Assignment
	for _, a := range m.assignments {
		if slices.Contains(eventIDs, a.EventID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListHymns(ctx context.Context, eventIDs []string) ([]model.Hymn, error) {
	var out []model.Hymn
	for _, h := range m.hymns {
		if slices.Contains(eventIDs, h.EventID) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memStore) CountAttachedContent(ctx context.Context, eventIDs []string) (map[string]int, error) {
	return map[string]int{}, nil
}

func (m *memStore) ListCandidates(ctx context.Context, churchID, groupID string) ([]model.Candidate, error) {
	return slices.Clone(m.candidates), nil
}

func (m *memStore) ListCommitments(ctx context.Context, userIDs []string, from, to time.Time) (map[string][]model.Commitment, error) {
	return map[string][]model.Commitment{}, nil
}

func (m *memStore) ListUnavailability(ctx context.Context, userIDs []string) (map[string][]model.Unavailability, error) {
	return map[string][]model.Unavailability{}, nil
}

func (m *memStore) InsertEvents(ctx context.Context, events []model.Event) error {
	m.writes++
	for _, e := range events {
		m.events[e.ID] = e
	}
	return nil
}

func (m *memStore) UpdateEvents(ctx context.Context, events []model.Event) error {
	m.writes++
	for _, e := range events {
		m.events[e.ID] = e
	}
	return nil
}

func (m *memStore) DeleteEvents(ctx context.Context, eventIDs []string) error {
	m.writes++
	for _, id := range eventIDs {
		delete(m.events, id)
	}
	return nil
}

func (m *memStore) InsertAssignments(ctx context.Context, assignments []model.Assignment) error {
	m.writes++
	m.assignments = append(m.assignments, assignments...)
	return nil
}

func (m *memStore) DeleteAssignmentsForEvents(ctx context.Context, eventIDs []string) error {
	m.writes++
	m.assignments = slices.DeleteFunc(m.assignments, func(a model.Assignment) bool {
		return slices.Contains(eventIDs, a.EventID)
	})
	return nil
}

func (m *memStore) AssignSlot(ctx context.Context, assignmentID, userID string) (bool, error) {
	m.writes++
	for i := range m.assignments {
		if m.assignments[i].ID == assignmentID && m.assignments[i].IsOpenIndividualSlot() {
			m.assignments[i].UserID = userID
			m.assignments[i].IsAutoAssigned = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertHymns(ctx context.Context, hymns []model.Hymn) error {
	m.writes++
	m.hymns = append(m.hymns, hymns...)
	return nil
}

func (m *memStore) DeleteHymnsForEvents(ctx context.Context, eventIDs []string) error {
	m.writes++
	m.hymns = slices.DeleteFunc(m.hymns, func(h model.Hymn) bool {
		return slices.Contains(eventIDs, h.EventID)
	})
	return nil
}

func (m *memStore) InsertActivity(ctx context.Context, activity model.Activity) error {
	m.writes++
	m.activities = append(m.activities, activity)
	return nil
}
