package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/church-music-scheduler/internal/config"
	"github.com/jakechorley/church-music-scheduler/pkg/core/matcher"
	"github.com/jakechorley/church-music-scheduler/pkg/core/matcher/criteria"
	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
	"github.com/jakechorley/church-music-scheduler/pkg/db"
)

// AutoAssignRequest is the body of an auto-assign request
type AutoAssignRequest struct {
	Actor model.Actor `json:"-"`

	EventIDs []string `json:"eventIds"`
	Preview  bool     `json:"preview"`

	// GroupFilter limits candidates to members of one group
	GroupFilter string `json:"groupFilter,omitempty"`

	// Seed fixes the tie-break between equally eligible candidates
	Seed *uint64 `json:"seed,omitempty"`
}

// AutoAssignResult contains the proposals and, unless previewing, how many were saved
type AutoAssignResult struct {
	Preview               bool               `json:"preview"`
	Proposals             []matcher.Proposal `json:"proposals"`
	SuccessfulAssignments int                `json:"successfulAssignments"`
	TotalAssignments      int                `json:"totalAssignments"`
	Description           string             `json:"description"`
}

// AutoAssignStore defines the database operations needed for auto-assigning
type AutoAssignStore interface {
	db.EventReader
	db.CandidateReader
	db.TxRunner
}

// AutoAssign proposes a musician for every open individual slot on the given
// events and, unless previewing, saves the proposals that found someone. Saved
// slots stay PENDING until the musician accepts. If any slot was filled since
// the snapshot was read, nothing is saved.
func AutoAssign(
	ctx context.Context,
	database AutoAssignStore,
	logger *zap.Logger,
	cfg *config.Config,
	req AutoAssignRequest,
) (*AutoAssignResult, error) {
	if err := Authorize(req.Actor); err != nil {
		return nil, err
	}

	ids := dedupe(req.EventIDs)
	if len(ids) == 0 {
		return nil, invalid("eventIds", "at least one event is required")
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logger.Info("Auto-assigning",
		zap.Int("event_count", len(ids)),
		zap.Bool("preview", req.Preview),
		zap.String("group_filter", req.GroupFilter))

	snap, err := loadMatchSnapshot(ctx, database, logger, req.Actor.ChurchID, ids, req.GroupFilter, loc)
	if err != nil {
		return nil, err
	}

	seed := rand.Uint64()
	if req.Seed != nil {
		seed = *req.Seed
	}
	logger.Debug("Running matcher", zap.Uint64("seed", seed))

	proposals := matcher.Propose(snap, matcher.Options{
		Criteria: criteria.Default(criteria.RoleSkills(cfg.RoleSkills)),
		Rand:     rand.New(rand.NewPCG(seed, seed)),
	})

	result := &AutoAssignResult{
		Preview:               req.Preview,
		Proposals:             proposals,
		SuccessfulAssignments: matcher.CountAssigned(proposals),
		TotalAssignments:      len(proposals),
	}
	result.Description = describeAutoAssign(result)

	for _, p := range proposals {
		if !p.IsAssigned() {
			logger.Debug("Slot left open",
				zap.String("assignment_id", p.AssignmentID),
				zap.String("role", p.RoleName),
				zap.String("reason", string(p.Reason)))
		}
	}

	if req.Preview {
		logger.Info("Preview - no assignments saved",
			zap.Int("proposed", result.SuccessfulAssignments),
			zap.Int("open_slots", result.TotalAssignments))
		return result, nil
	}

	if result.SuccessfulAssignments == 0 {
		logger.Info("No one to assign", zap.Int("open_slots", result.TotalAssignments))
		return result, nil
	}

	err = database.InTx(ctx, cfg.TxTimeout(), func(tx db.Tx) error {
		for _, p := range proposals {
			if !p.IsAssigned() {
				continue
			}
			ok, err := tx.AssignSlot(ctx, p.AssignmentID, *p.PersonID)
			if err != nil {
				return fmt.Errorf("failed to assign slot: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: %s on %s", ErrSlotTaken, p.RoleName, p.EventName)
			}
		}
		if err := tx.InsertActivity(ctx, newActivity(req.Actor, model.ActivityAutoAssigned, result.Description)); err != nil {
			return fmt.Errorf("failed to record activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save assignments: %w", err)
	}

	logger.Info("Auto-assigned",
		zap.Int("successful_assignments", result.SuccessfulAssignments),
		zap.Int("total_assignments", result.TotalAssignments))

	return result, nil
}

// loadMatchSnapshot reads everything the matcher needs with one query per kind
func loadMatchSnapshot(
	ctx context.Context,
	database AutoAssignStore,
	logger *zap.Logger,
	churchID string,
	ids []string,
	groupFilter string,
	loc *time.Location,
) (matcher.Snapshot, error) {
	logger.Debug("Fetching events", zap.Strings("event_ids", ids))
	events, err := database.ListEvents(ctx, churchID, ids)
	if err != nil {
		return matcher.Snapshot{}, fmt.Errorf("failed to fetch events: %w", err)
	}
	if len(events) == 0 {
		return matcher.Snapshot{}, fmt.Errorf("%w: none of the requested events belong to the church", db.ErrNotFound)
	}
	if len(events) < len(ids) {
		logger.Warn("Some requested events were not found",
			zap.Int("requested", len(ids)),
			zap.Int("found", len(events)))
	}
	for i := range events {
		events[i] = inLocation(events[i], loc)
	}

	assignments, err := database.ListAssignments(ctx, eventIDs(events))
	if err != nil {
		return matcher.Snapshot{}, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	candidates, err := database.ListCandidates(ctx, churchID, groupFilter)
	if err != nil {
		return matcher.Snapshot{}, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	logger.Debug("Found candidates", zap.Int("count", len(candidates)))

	userIDs := make([]string, len(candidates))
	for i, c := range candidates {
		userIDs[i] = c.ID
	}

	from, to := commitmentWindow(events)
	commitments, err := database.ListCommitments(ctx, userIDs, from, to)
	if err != nil {
		return matcher.Snapshot{}, fmt.Errorf("failed to fetch commitments: %w", err)
	}
	unavailability, err := database.ListUnavailability(ctx, userIDs)
	if err != nil {
		return matcher.Snapshot{}, fmt.Errorf("failed to fetch unavailability: %w", err)
	}

	for i := range candidates {
		c := &candidates[i]
		for _, commitment := range commitments[c.ID] {
			commitment.StartTime = commitment.StartTime.In(loc)
			if commitment.EndTime != nil {
				end := commitment.EndTime.In(loc)
				commitment.EndTime = &end
			}
			c.Commitments = append(c.Commitments, commitment)
		}
		c.Unavailability = unavailability[c.ID]
	}

	return matcher.Snapshot{
		Events:      events,
		Assignments: assignments,
		Candidates:  candidates,
	}, nil
}

// commitmentWindow spans the events with a day either side, so that
// commitments without an end time on the same calendar day are included
func commitmentWindow(events []model.Event) (time.Time, time.Time) {
	from, to := events[0].StartTime, events[0].StartTime
	for _, e := range events {
		if e.StartTime.Before(from) {
			from = e.StartTime
		}
		end := e.StartTime
		if e.EndTime != nil {
			end = *e.EndTime
		}
		if end.After(to) {
			to = end
		}
	}
	return from.AddDate(0, 0, -1), to.AddDate(0, 0, 1)
}

func describeAutoAssign(r *AutoAssignResult) string {
	verb := "Auto-assigned"
	if r.Preview {
		verb = "Previewed auto-assignment:"
	}
	return fmt.Sprintf("%s %d of %d open roles", verb, r.SuccessfulAssignments, r.TotalAssignments)
}
