package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/church-music-scheduler/internal/config"
	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
	"github.com/jakechorley/church-music-scheduler/pkg/core/recurrence"
	"github.com/jakechorley/church-music-scheduler/pkg/core/series"
	"github.com/jakechorley/church-music-scheduler/pkg/db"
)

// CreateRecurringEventRequest is the body of a create request
type CreateRecurringEventRequest struct {
	Actor model.Actor `json:"-"`

	Name        string     `json:"name"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	EventTypeID string     `json:"eventTypeId"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`

	IsRecurring       bool                `json:"isRecurring"`
	RecurrencePattern *recurrence.Pattern `json:"recurrencePattern,omitempty"`

	// RecurrenceEnd (YYYY-MM-DD) is the last date an occurrence may fall on.
	// The earlier of this and the pattern's own end date applies.
	RecurrenceEnd string `json:"recurrenceEnd,omitempty"`

	Roles []series.RoleSlot `json:"roles,omitempty" validate:"dive"`
	Hymns []series.HymnSlot `json:"hymns,omitempty" validate:"dive"`
}

// CreateRecurringEventResult contains the created events
type CreateRecurringEventResult struct {
	Root               model.Event   `json:"root"`
	Children           []model.Event `json:"children"`
	AssignmentsCreated int           `json:"assignmentsCreated"`
	HymnsCreated       int           `json:"hymnsCreated"`
	Description        string        `json:"description"`
}

// CreateRecurringEventStore defines the database operations needed for creating events
type CreateRecurringEventStore interface {
	db.TxRunner
}

// CreateRecurringEvent creates an event and, when it recurs, its generated
// occurrences up to the configured horizon. The root, every child and their open
// role slots and hymn placeholders are written in one transaction.
func CreateRecurringEvent(
	ctx context.Context,
	database CreateRecurringEventStore,
	logger *zap.Logger,
	cfg *config.Config,
	req CreateRecurringEventRequest,
) (*CreateRecurringEventResult, error) {
	if err := Authorize(req.Actor); err != nil {
		return nil, err
	}

	pattern, err := validateCreate(&req)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	blackout, err := recurrence.NewBlackout(cfg.BlackoutRRules)
	if err != nil {
		return nil, fmt.Errorf("failed to load blackout rules: %w", err)
	}

	logger.Info("Creating event",
		zap.String("name", req.Name),
		zap.Bool("recurring", req.IsRecurring),
		zap.Int("role_count", len(req.Roles)),
		zap.Int("hymn_count", len(req.Hymns)))

	root := model.Event{
		ID:          newID(),
		ChurchID:    req.Actor.ChurchID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Location:    strings.TrimSpace(req.Location),
		EventTypeID: req.EventTypeID,
		StartTime:   req.StartTime.In(loc),
		IsRootEvent: req.IsRecurring,
		IsRecurring: req.IsRecurring,
	}
	if req.EndTime != nil {
		end := req.EndTime.In(loc)
		root.EndTime = &end
	}
	if pattern != nil {
		root.RecurrencePattern = pattern
		if !pattern.EndDate.IsZero() {
			end := pattern.EndDate
			root.RecurrenceEnd = &end
		}
	}

	skel := series.Skeleton{Roles: req.Roles, Hymns: req.Hymns}
	batch := series.Batch{Events: []model.Event{root}}
	batch.Append(series.Slots(root.ID, skel, newID))

	var children []model.Event
	if pattern != nil {
		horizon := horizonFrom(timeNow().In(loc), root.StartTime, cfg.Horizon())
		logger.Debug("Generating occurrences",
			zap.String("pattern", pattern.Describe()),
			zap.String("rrule", rruleOf(root)),
			zap.Time("anchor", root.StartTime),
			zap.Time("horizon", horizon))

		dates, err := recurrence.Generate(*pattern, root.StartTime, horizon)
		if err != nil {
			return nil, fmt.Errorf("failed to generate occurrences: %w", err)
		}
		generated := len(dates)
		dates = blackout.Filter(dates)
		logger.Debug("Generated occurrences",
			zap.Int("count", len(dates)),
			zap.Int("blackout_skipped", generated-len(dates)))

		childBatch := series.Materialize(root, dates, skel, newID)
		children = childBatch.Events
		batch.Append(childBatch)
	}

	result := &CreateRecurringEventResult{
		Root:               root,
		Children:           children,
		AssignmentsCreated: len(batch.Assignments),
		HymnsCreated:       len(batch.Hymns),
		Description:        describeCreate(root, len(children)),
	}

	err = database.InTx(ctx, cfg.TxTimeout(), func(tx db.Tx) error {
		if err := insertBatch(ctx, tx, batch); err != nil {
			return err
		}
		if err := tx.InsertActivity(ctx, newActivity(req.Actor, model.ActivitySeriesCreated, result.Description)); err != nil {
			return fmt.Errorf("failed to record activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save events: %w", err)
	}

	logger.Info("Created event",
		zap.String("root_id", root.ID),
		zap.Int("children_created", len(children)),
		zap.Int("assignments_created", result.AssignmentsCreated),
		zap.Int("hymns_created", result.HymnsCreated))

	return result, nil
}

// validateCreate checks the request and returns the effective pattern (nil for a one-off event)
func validateCreate(req *CreateRecurringEventRequest) (*recurrence.Pattern, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("name", "is required")
	}
	if strings.TrimSpace(req.Location) == "" {
		return nil, invalid("location", "is required")
	}
	if req.StartTime.IsZero() {
		return nil, invalid("startTime", "is required")
	}
	if req.EndTime != nil && !req.EndTime.After(req.StartTime) {
		return nil, invalid("endTime", "must be after startTime")
	}
	if err := validateStruct("", req); err != nil {
		return nil, err
	}

	if !req.IsRecurring {
		return nil, nil
	}
	if req.RecurrencePattern == nil {
		return nil, invalid("recurrencePattern", "is required for a recurring event")
	}

	pattern := *req.RecurrencePattern
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	if req.RecurrenceEnd != "" {
		end, err := time.Parse("2006-01-02", req.RecurrenceEnd)
		if err != nil {
			return nil, invalid("recurrenceEnd", "must be YYYY-MM-DD")
		}
		if pattern.EndDate.IsZero() || end.Before(pattern.EndDate) {
			pattern.EndDate = end
		}
	}
	if !pattern.EndDate.IsZero() && recurrence.DateKey(pattern.EndDate) < recurrence.DateKey(req.StartTime) {
		return nil, invalid("recurrenceEnd", "must not be before startTime")
	}

	return &pattern, nil
}

// horizonFrom returns the last date to materialize: months after now, or after
// start when the series begins in the future
func horizonFrom(now, start time.Time, months int) time.Time {
	base := now
	if start.After(base) {
		base = start
	}
	return base.AddDate(0, months, 0)
}

// insertBatch writes events before the slots and placeholders that reference them
func insertBatch(ctx context.Context, tx db.Writer, batch series.Batch) error {
	if err := tx.InsertEvents(ctx, batch.Events); err != nil {
		return fmt.Errorf("failed to insert events: %w", err)
	}
	if err := tx.InsertAssignments(ctx, batch.Assignments); err != nil {
		return fmt.Errorf("failed to insert assignments: %w", err)
	}
	if err := tx.InsertHymns(ctx, batch.Hymns); err != nil {
		return fmt.Errorf("failed to insert hymns: %w", err)
	}
	return nil
}

func describeCreate(root model.Event, children int) string {
	if root.RecurrencePattern == nil {
		return fmt.Sprintf("Created event %q on %s", root.Name, recurrence.DateKey(root.StartTime))
	}
	return fmt.Sprintf("Created recurring series %q (%s) starting %s with %s",
		root.Name, root.RecurrencePattern.Describe(), recurrence.DateKey(root.StartTime),
		plural(children+1, "occurrence"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
