package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/church-music-scheduler/pkg/core/matcher"
	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
	"github.com/jakechorley/church-music-scheduler/pkg/db"
)

func addEvent(t *testing.T, store *mockDB, id, start string, roles ...string) {
	t.Helper()
	s := date(t, start)
	end := s.Add(90 * time.Minute)
	store.events[id] = model.Event{
		ID:        id,
		ChurchID:  testChurch,
		Name:      "Sunday Service",
		Location:  "Main Sanctuary",
		StartTime: s,
		EndTime:   &end,
	}
	for _, role := range roles {
		store.assignments = append(store.assignments, model.Assignment{
			ID:           id + "-" + role,
			EventID:      id,
			RoleName:     role,
			Status:       model.StatusPending,
			MaxMusicians: 1,
		})
	}
}

// seedAutoAssign stores one service with open Drums, Piano and Vocals slots, a
// group placeholder and a filled Guitar slot
func seedAutoAssign(t *testing.T) *mockDB {
	store := newMockDB()
	addEvent(t, store, "e1", "2024-02-04 10:00", "Drums", "Piano", "Vocals")
	store.assignments = append(store.assignments,
		model.Assignment{ID: "e1-band", EventID: "e1", RoleName: "Band", GroupID: "band", Status: model.StatusPending, MaxMusicians: 4},
		model.Assignment{ID: "e1-Guitar", EventID: "e1", RoleName: "Guitar", UserID: "dave", Status: model.StatusAccepted, MaxMusicians: 1},
	)

	store.candidates = []model.Candidate{
		{ID: "alice", FirstName: "Alice", LastName: "Smith", Instruments: []string{"Piano"}},
		{ID: "bob", FirstName: "Bob", LastName: "Jones", Instruments: []string{"vocals"}, GroupIDs: []string{"band"}},
		{ID: "carol", FirstName: "Carol", Instruments: []string{"guitar"}, GroupIDs: []string{"band"}},
		{ID: "erin", FirstName: "Erin"},
	}

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	store.unavailability["bob"] = []model.Unavailability{
		{ID: "u1", UserID: "bob", Kind: model.UnavailableDateRange, StartDate: &start, EndDate: &end, Reason: "Holiday"},
	}
	return store
}

func proposalFor(t *testing.T, proposals []matcher.Proposal, assignmentID string) matcher.Proposal {
	t.Helper()
	for _, p := range proposals {
		if p.AssignmentID == assignmentID {
			return p
		}
	}
	t.Fatalf("no proposal for %s", assignmentID)
	return matcher.Proposal{}
}

func TestAutoAssign_CommitsQualifiedAvailableCandidates(t *testing.T) {
	pinNow(t, date(t, "2024-01-20 12:00"))
	store := seedAutoAssign(t)

	result, err := AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:    director,
		EventIDs: []string{"e1"},
		Seed:     ptr(uint64(7)),
	})
	require.NoError(t, err)

	// Group placeholders and filled slots are not open
	assert.Equal(t, 3, result.TotalAssignments)
	assert.Equal(t, 1, result.SuccessfulAssignments)
	require.Len(t, result.Proposals, 3)
	assert.Equal(t, []string{"Drums", "Piano", "Vocals"},
		[]string{result.Proposals[0].RoleName, result.Proposals[1].RoleName, result.Proposals[2].RoleName})

	piano := proposalFor(t, result.Proposals, "e1-Piano")
	require.NotNil(t, piano.PersonID)
	assert.Equal(t, "alice", *piano.PersonID)
	assert.Equal(t, "Alice Smith", piano.PersonName)

	assert.Nil(t, proposalFor(t, result.Proposals, "e1-Drums").PersonID)
	assert.Equal(t, matcher.ReasonNoneQualified, proposalFor(t, result.Proposals, "e1-Drums").Reason)
	assert.Equal(t, matcher.ReasonAllUnavailable, proposalFor(t, result.Proposals, "e1-Vocals").Reason)

	assert.Equal(t, []string{"begin", "AssignSlot", "InsertActivity", "commit"}, store.calls)
	for _, a := range store.assignmentsFor("e1") {
		if a.ID == "e1-Piano" {
			assert.Equal(t, "alice", a.UserID)
			assert.True(t, a.IsAutoAssigned)
			assert.Equal(t, model.StatusPending, a.Status)
		}
	}

	require.Len(t, store.activities, 1)
	assert.Equal(t, model.ActivityAutoAssigned, store.activities[0].Type)
	assert.Equal(t, "Auto-assigned 1 of 3 open roles", store.activities[0].Description)
}

func TestAutoAssign_PreviewWritesNothing(t *testing.T) {
	store := seedAutoAssign(t)

	result, err := AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:    director,
		EventIDs: []string{"e1"},
		Preview:  true,
		Seed:     ptr(uint64(7)),
	})
	require.NoError(t, err)

	assert.True(t, result.Preview)
	assert.Equal(t, 1, result.SuccessfulAssignments)
	assert.Equal(t, "Previewed auto-assignment: 1 of 3 open roles", result.Description)
	assert.Empty(t, store.calls)
	for _, a := range store.assignmentsFor("e1") {
		if a.ID == "e1-Piano" {
			assert.Empty(t, a.UserID)
		}
	}
}

func TestAutoAssign_AcceptedOverlapExcludesCandidate(t *testing.T) {
	store := seedAutoAssign(t)
	start := date(t, "2024-02-04 09:00")
	end := date(t, "2024-02-04 10:30")
	store.commitments["alice"] = []model.Commitment{
		{AssignmentID: "x1", EventID: "elsewhere", Status: model.StatusAccepted, StartTime: start, EndTime: &end},
	}

	result, err := AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:    director,
		EventIDs: []string{"e1"},
		Preview:  true,
	})
	require.NoError(t, err)

	piano := proposalFor(t, result.Proposals, "e1-Piano")
	assert.Nil(t, piano.PersonID)
	assert.Equal(t, matcher.ReasonAllConflicted, piano.Reason)

	// A day either side of the event
	assert.Equal(t, date(t, "2024-02-03 10:00"), store.commitmentWindow[0])
	assert.Equal(t, date(t, "2024-02-05 11:30"), store.commitmentWindow[1])
}

func TestAutoAssign_DeclinedAssignmentIsNotAConflict(t *testing.T) {
	store := seedAutoAssign(t)
	start := date(t, "2024-02-04 09:00")
	end := date(t, "2024-02-04 10:30")
	store.commitments["alice"] = []model.Commitment{
		{AssignmentID: "x1", EventID: "elsewhere", Status: model.StatusDeclined, StartTime: start, EndTime: &end},
	}

	result, err := AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:    director,
		EventIDs: []string{"e1"},
		Preview:  true,
	})
	require.NoError(t, err)

	piano := proposalFor(t, result.Proposals, "e1-Piano")
	require.NotNil(t, piano.PersonID)
	assert.Equal(t, "alice", *piano.PersonID)
}

func TestAutoAssign_NobodyIsBookedTwice(t *testing.T) {
	store := newMockDB()
	addEvent(t, store, "e1", "2024-02-04 10:00", "Piano")
	addEvent(t, store, "e2", "2024-02-11 10:00", "Keyboard")
	store.candidates = []model.Candidate{
		{ID: "alice", FirstName: "Alice", Instruments: []string{"piano", "keyboard"}},
	}

	result, err := AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:    director,
		EventIDs: []string{"e2", "e1", "e1"},
		Preview:  true,
	})
	require.NoError(t, err)

	require.Len(t, result.Proposals, 2)
	assert.Equal(t, "e1-Piano", result.Proposals[0].AssignmentID)
	require.NotNil(t, result.Proposals[0].PersonID)
	assert.Nil(t, result.Proposals[1].PersonID)
	assert.Equal(t, matcher.ReasonNoEligibleCandidate, result.Proposals[1].Reason)
}

func TestAutoAssign_CandidateWithoutInstrumentsIsNeverProposed(t *testing.T) {
	store := newMockDB()
	addEvent(t, store, "e1", "2024-02-04 10:00", "Piano", "Helper", "Vocals")
	store.candidates = []model.Candidate{{ID: "erin", FirstName: "Erin"}}

	result, err := AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:    director,
		EventIDs: []string{"e1"},
		Preview:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.SuccessfulAssignments)
	for _, p := range result.Proposals {
		assert.Equal(t, matcher.ReasonNoneQualified, p.Reason, p.RoleName)
	}
}

func TestAutoAssign_GroupFilterLimitsCandidates(t *testing.T) {
	store := newMockDB()
	addEvent(t, store, "e1", "2024-02-04 10:00", "Piano", "Guitar")
	store.candidates = []model.Candidate{
		{ID: "alice", FirstName: "Alice", Instruments: []string{"piano"}},
		{ID: "carol", FirstName: "Carol", Instruments: []string{"guitar"}, GroupIDs: []string{"band"}},
	}

	result, err := AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:       director,
		EventIDs:    []string{"e1"},
		Preview:     true,
		GroupFilter: "band",
	})
	require.NoError(t, err)

	assert.Equal(t, matcher.ReasonNoneQualified, proposalFor(t, result.Proposals, "e1-Piano").Reason)
	guitar := proposalFor(t, result.Proposals, "e1-Guitar")
	require.NotNil(t, guitar.PersonID)
	assert.Equal(t, "carol", *guitar.PersonID)
}

func TestAutoAssign_SameSeedSameProposals(t *testing.T) {
	store := newMockDB()
	addEvent(t, store, "e1", "2024-02-04 10:00", "Piano", "Organ", "Keyboard")
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		store.candidates = append(store.candidates, model.Candidate{ID: id, FirstName: id, Instruments: []string{"piano"}})
	}

	run := func() []string {
		result, err := AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
			Actor:    director,
			EventIDs: []string{"e1"},
			Preview:  true,
			Seed:     ptr(uint64(42)),
		})
		require.NoError(t, err)
		var people []string
		for _, p := range result.Proposals {
			require.NotNil(t, p.PersonID)
			people = append(people, *p.PersonID)
		}
		return people
	}

	first := run()
	assert.Len(t, first, 3)
	assert.Equal(t, first, run())
}

func TestAutoAssign_SlotTakenAbortsWholeBatch(t *testing.T) {
	store := newMockDB()
	addEvent(t, store, "e1", "2024-02-04 10:00", "Piano", "Vocals")
	store.candidates = []model.Candidate{
		{ID: "alice", FirstName: "Alice", Instruments: []string{"piano"}},
		{ID: "bob", FirstName: "Bob", Instruments: []string{"vocals"}},
	}
	store.takenSlots["e1-Vocals"] = true

	_, err := AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:    director,
		EventIDs: []string{"e1"},
	})
	require.ErrorIs(t, err, ErrSlotTaken)

	for _, a := range store.assignments {
		assert.Empty(t, a.UserID, a.ID)
	}
	assert.Empty(t, store.activities)
	assert.Equal(t, "rollback", store.calls[len(store.calls)-1])
}

func TestAutoAssign_NothingToSaveSkipsTransaction(t *testing.T) {
	store := newMockDB()
	addEvent(t, store, "e1", "2024-02-04 10:00", "Drums")
	store.candidates = []model.Candidate{{ID: "alice", FirstName: "Alice", Instruments: []string{"piano"}}}

	result, err := AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:    director,
		EventIDs: []string{"e1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.SuccessfulAssignments)
	assert.Equal(t, 1, result.TotalAssignments)
	assert.Empty(t, store.calls)
}

func TestAutoAssign_RequestErrors(t *testing.T) {
	store := seedAutoAssign(t)

	_, err := AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:    director,
		EventIDs: []string{" ", ""},
	})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "eventIds", validationErr.Field)

	_, err = AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:    director,
		EventIDs: []string{"missing"},
	})
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = AutoAssign(context.Background(), store, zap.NewNop(), testConfig(), AutoAssignRequest{
		Actor:    model.Actor{UserID: "m1", ChurchID: testChurch, Role: model.RoleMusician},
		EventIDs: []string{"e1"},
	})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Empty(t, store.calls)
}
