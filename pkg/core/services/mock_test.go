package services

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jakechorley/church-music-scheduler/internal/config"
	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
	"github.com/jakechorley/church-music-scheduler/pkg/db"
)

const testChurch = "church-1"

var director = model.Actor{UserID: "director-1", ChurchID: testChurch, Role: model.RoleDirector}

// mockDB is an in-memory db.Database. Transactions snapshot the state and
// restore it when fn fails. calls records every write and transaction boundary.
type mockDB struct {
	events         map[string]model.Event
	assignments    []model.Assignment
	hymns          []model.Hymn
	documents      map[string]int
	candidates     []model.Candidate
	commitments    map[string][]model.Commitment
	unavailability map[string][]model.Unavailability
	activities     []model.Activity

	calls []string

	// takenSlots are assignment IDs that AssignSlot reports as already filled
	takenSlots map[string]bool

	// failOn makes the named write return failErr
	failOn  string
	failErr error

	commitmentWindow [2]time.Time
}

var _ db.Database = (*mockDB)(nil)

func newMockDB() *mockDB {
	return &mockDB{
		events:         make(map[string]model.Event),
		documents:      make(map[string]int),
		commitments:    make(map[string][]model.Commitment),
		unavailability: make(map[string][]model.Unavailability),
		takenSlots:     make(map[string]bool),
	}
}

type mockState struct {
	events      map[string]model.Event
	assignments []model.Assignment
	hymns       []model.Hymn
	activities  []model.Activity
}

func (m *mockDB) save() mockState {
	return mockState{
		events:      maps.Clone(m.events),
		assignments: slices.Clone(m.assignments),
		hymns:       slices.Clone(m.hymns),
		activities:  slices.Clone(m.activities),
	}
}

func (m *mockDB) restore(s mockState) {
	m.events = s.events
	m.assignments = s.assignments
	m.hymns = s.hymns
	m.activities = s.activities
}

func (m *mockDB) write(op string) error {
	m.calls = append(m.calls, op)
	if m.failOn == op {
		return m.failErr
	}
	return nil
}

// writes returns the recorded calls other than transaction boundaries
func (m *mockDB) writes() []string {
	var ops []string
	for _, c := range m.calls {
		if c != "begin" && c != "commit" && c != "rollback" {
			ops = append(ops, c)
		}
	}
	return ops
}

func (m *mockDB) InTx(ctx context.Context, timeout time.Duration, fn func(tx db.Tx) error) error {
	m.calls = append(m.calls, "begin")
	saved := m.save()
	if err := fn(m); err != nil {
		m.restore(saved)
		m.calls = append(m.calls, "rollback")
		return err
	}
	m.calls = append(m.calls, "commit")
	return nil
}

func (m *mockDB) GetEvent(ctx context.Context, churchID, eventID string) (*model.Event, error) {
	e, ok := m.events[eventID]
	if !ok || e.ChurchID != churchID {
		return nil, db.ErrNotFound
	}
	return &e, nil
}

func sortedEvents(events []model.Event) []model.Event {
	slices.SortFunc(events, func(a, b model.Event) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return events
}

func (m *mockDB) ListEvents(ctx context.Context, churchID string, eventIDs []string) ([]model.Event, error) {
	var events []model.Event
	for _, id := range eventIDs {
		if e, ok := m.events[id]; ok && e.ChurchID == churchID {
			events = append(events, e)
		}
	}
	return sortedEvents(events), nil
}

func (m *mockDB) ListSeriesChildren(ctx context.Context, churchID, rootID string) ([]model.Event, error) {
	var events []model.Event
	for _, e := range m.events {
		if e.ChurchID == churchID && e.GeneratedFrom == rootID {
			events = append(events, e)
		}
	}
	return sortedEvents(events), nil
}

func (m *mockDB) ListAssignments(ctx context.Context, eventIDs []string) ([]model.Assignment, error) {
	var out []model.Assignment
	for _, a := range m.assignments {
		if slices.Contains(eventIDs, a.EventID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockDB) ListHymns(ctx context.Context, eventIDs []string) ([]model.Hymn, error) {
	var out []model.Hymn
	for _, h := range m.hymns {
		if slices.Contains(eventIDs, h.EventID) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockDB) CountAttachedContent(ctx context.Context, eventIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, id := range eventIDs {
		if n := m.documents[id]; n > 0 {
			counts[id] += n
		}
	}
	for _, h := range m.hymns {
		if h.HasContent() && slices.Contains(eventIDs, h.EventID) {
			counts[h.EventID]++
		}
	}
	for _, a := range m.assignments {
		if a.UserID != "" && slices.Contains(eventIDs, a.EventID) {
			counts[a.EventID]++
		}
	}
	return counts, nil
}

func (m *mockDB) ListCandidates(ctx context.Context, churchID, groupID string) ([]model.Candidate, error) {
	var out []model.Candidate
	for _, c := range m.candidates {
		if groupID == "" || slices.Contains(c.GroupIDs, groupID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockDB) ListCommitments(ctx context.Context, userIDs []string, from, to time.Time) (map[string][]model.Commitment, error) {
	m.commitmentWindow = [2]time.Time{from, to}
	out := make(map[string][]model.Commitment)
	for _, id := range userIDs {
		for _, c := range m.commitments[id] {
			if !c.StartTime.Before(from) && !c.StartTime.After(to) {
				out[id] = append(out[id], c)
			}
		}
	}
	return out, nil
}

func (m *mockDB) ListUnavailability(ctx context.Context, userIDs []string) (map[string][]model.Unavailability, error) {
	out := make(map[string][]model.Unavailability)
	for _, id := range userIDs {
		if u, ok := m.unavailability[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *mockDB) InsertEvents(ctx context.Context, events []model.Event) error {
	if err := m.write("InsertEvents"); err != nil {
		return err
	}
	for _, e := range events {
		m.events[e.ID] = e
	}
	return nil
}

func (m *mockDB) UpdateEvents(ctx context.Context, events []model.Event) error {
	if err := m.write("UpdateEvents"); err != nil {
		return err
	}
	for _, e := range events {
		current, ok := m.events[e.ID]
		if !ok {
			continue
		}
		e.IsModified = current.IsModified
		m.events[e.ID] = e
	}
	return nil
}

func (m *mockDB) DeleteEvents(ctx context.Context, eventIDs []string) error {
	if err := m.write("DeleteEvents"); err != nil {
		return err
	}
	for _, id := range eventIDs {
		for _, a := range m.assignments {
			if a.EventID == id {
				panic("deleting event " + id + " that still has assignments")
			}
		}
		for _, h := range m.hymns {
			if h.EventID == id {
				panic("deleting event " + id + " that still has hymns")
			}
		}
		delete(m.events, id)
	}
	return nil
}

func (m *mockDB) InsertAssignments(ctx context.Context, assignments []model.Assignment) error {
	if err := m.write("InsertAssignments"); err != nil {
		return err
	}
	m.assignments = append(m.assignments, assignments...)
	return nil
}

func (m *mockDB) DeleteAssignmentsForEvents(ctx context.Context, eventIDs []string) error {
	if err := m.write("DeleteAssignmentsForEvents"); err != nil {
		return err
	}
	m.assignments = slices.DeleteFunc(m.assignments, func(a model.Assignment) bool {
		return slices.Contains(eventIDs, a.EventID)
	})
	return nil
}

func (m *mockDB) AssignSlot(ctx context.Context, assignmentID, userID string) (bool, error) {
	if err := m.write("AssignSlot"); err != nil {
		return false, err
	}
	if m.takenSlots[assignmentID] {
		return false, nil
	}
	for i := range m.assignments {
		a := &m.assignments[i]
		if a.ID != assignmentID {
			continue
		}
		if !a.IsOpenIndividualSlot() {
			return false, nil
		}
		a.UserID = userID
		a.Status = model.StatusPending
		a.IsAutoAssigned = true
		return true, nil
	}
	return false, nil
}

func (m *mockDB) InsertHymns(ctx context.Context, hymns []model.Hymn) error {
	if err := m.write("InsertHymns"); err != nil {
		return err
	}
	m.hymns = append(m.hymns, hymns...)
	return nil
}

func (m *mockDB) DeleteHymnsForEvents(ctx context.Context, eventIDs []string) error {
	if err := m.write("DeleteHymnsForEvents"); err != nil {
		return err
	}
	m.hymns = slices.DeleteFunc(m.hymns, func(h model.Hymn) bool {
		return slices.Contains(eventIDs, h.EventID)
	})
	return nil
}

func (m *mockDB) InsertActivity(ctx context.Context, activity model.Activity) error {
	if err := m.write("InsertActivity"); err != nil {
		return err
	}
	m.activities = append(m.activities, activity)
	return nil
}

// childDates returns the start dates of the stored events generated from rootID
func (m *mockDB) childDates(rootID string) []string {
	var dates []string
	for _, e := range m.events {
		if e.GeneratedFrom == rootID {
			dates = append(dates, e.StartTime.Format("2006-01-02"))
		}
	}
	slices.Sort(dates)
	return dates
}

func (m *mockDB) assignmentsFor(eventID string) []model.Assignment {
	var out []model.Assignment
	for _, a := range m.assignments {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		DatabaseURL:   "postgres://unused",
		Timezone:      "UTC",
		HorizonMonths: 1,
	}
}

// pinNow fixes timeNow for the duration of the test
func pinNow(t *testing.T, now time.Time) {
	t.Helper()
	original := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = original })
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02 15:04", s)
	require.NoError(t, err)
	return d
}

func ptr[T any](v T) *T {
	return &v
}
