package services

import (
	"context"
	"errors"
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

// EditSeriesRequest is the body of an edit request. Nil fields keep the root's
// current value.
type EditSeriesRequest struct {
	Actor       model.Actor `json:"-"`
	RootEventID string      `json:"-"`

	EditScope series.Scope `json:"editScope"`
	DryRun    bool         `json:"dryRun"`

	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	EventTypeID *string    `json:"eventTypeId,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`

	RecurrencePattern *recurrence.Pattern `json:"recurrencePattern,omitempty"`

	// Roles and Hymns: absent keeps the content, [] clears it, a list replaces it
	Roles series.Change[series.RoleSlot] `json:"roles"`
	Hymns series.Change[series.HymnSlot] `json:"hymns"`
}

// EditSeriesResult contains the regeneration counts and the activity description
type EditSeriesResult struct {
	series.Result
	Description string `json:"description"`
}

// EditSeriesStore defines the database operations needed for editing a series
type EditSeriesStore interface {
	db.EventReader
	db.TxRunner
}

// EditSeries applies an edit to a recurring series. With an unchanged pattern
// the children in scope are updated in place; with a changed pattern the series
// is regenerated, creating the new occurrences before pruning the old ones.
// A dry run plans the same changes and writes nothing.
func EditSeries(
	ctx context.Context,
	database EditSeriesStore,
	logger *zap.Logger,
	cfg *config.Config,
	req EditSeriesRequest,
) (*EditSeriesResult, error) {
	if err := Authorize(req.Actor); err != nil {
		return nil, err
	}
	if err := validateEdit(&req); err != nil {
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

	logger.Info("Editing series",
		zap.String("root_id", req.RootEventID),
		zap.String("scope", string(req.EditScope)),
		zap.Bool("dry_run", req.DryRun))

	snap, err := loadSeries(ctx, database, logger, req.Actor.ChurchID, req.RootEventID, loc)
	if err != nil {
		return nil, err
	}

	edit, err := buildEdit(snap.Root, req, loc)
	if err != nil {
		return nil, err
	}

	now := timeNow().In(loc)
	plan, err := series.PlanRegeneration(snap, edit, series.Options{
		Now:      now,
		Horizon:  horizonFrom(now, edit.StartTime, cfg.Horizon()),
		Blackout: blackout,
		NewID:    newID,
	})
	if err != nil {
		if errors.Is(err, series.ErrNoReplacementDates) {
			logger.Warn("Refusing pattern change with no future dates", zap.String("root_id", snap.Root.ID))
		}
		return nil, fmt.Errorf("failed to plan series edit: %w", err)
	}

	logger.Debug("Planned series edit",
		zap.Bool("pattern_changed", plan.PatternChanged),
		zap.String("rrule", rruleOf(plan.Root)),
		zap.Int("create", len(plan.Create.Events)),
		zap.Int("update", len(plan.Update)),
		zap.Int("delete", len(plan.Delete)),
		zap.Int("skipped", len(plan.Skipped)),
		zap.Int("role_targets", len(plan.RoleTargets)),
		zap.Int("hymn_targets", len(plan.HymnTargets)))

	result := &EditSeriesResult{Result: plan.Result(req.DryRun)}
	result.Description = result.Describe(plan.Root.Name)

	if req.DryRun {
		logger.Info("Dry run - no changes saved",
			zap.Int("would_create", result.WouldCreate),
			zap.Int("would_delete", result.WouldDelete),
			zap.Int("would_update", result.WouldUpdate))
		return result, nil
	}

	err = database.InTx(ctx, cfg.TxTimeout(), func(tx db.Tx) error {
		if err := applyPlan(ctx, tx, plan); err != nil {
			return err
		}
		if err := tx.InsertActivity(ctx, newActivity(req.Actor, model.ActivitySeriesEdited, result.Description)); err != nil {
			return fmt.Errorf("failed to record activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save series edit: %w", err)
	}

	logger.Info("Edited series",
		zap.String("root_id", plan.Root.ID),
		zap.Int("events_created", result.EventsCreated),
		zap.Int("events_updated", result.EventsUpdated),
		zap.Int("events_removed", result.EventsRemoved),
		zap.Int("events_skipped", result.EventsSkipped),
		zap.Strings("skipped_dates", result.SkippedEventDates))

	return result, nil
}

func validateEdit(req *EditSeriesRequest) error {
	if req.RootEventID == "" {
		return invalid("rootEventId", "is required")
	}
	if req.EditScope == "" {
		req.EditScope = series.ScopeFuture
	}
	if !req.EditScope.Valid() {
		return invalid("editScope", fmt.Sprintf("must be %q or %q", series.ScopeFuture, series.ScopeAll))
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return invalid("name", "must not be blank")
	}
	if req.Location != nil && strings.TrimSpace(*req.Location) == "" {
		return invalid("location", "must not be blank")
	}
	if req.StartTime != nil && req.StartTime.IsZero() {
		return invalid("startTime", "must not be zero")
	}
	for i, role := range req.Roles.Items() {
		if err := validateStruct("roles["+strconv.Itoa(i)+"]", role); err != nil {
			return err
		}
	}
	for i, hymn := range req.Hymns.Items() {
		if err := validateStruct("hymns["+strconv.Itoa(i)+"]", hymn); err != nil {
			return err
		}
	}
	return nil
}

// loadSeries reads the root, its children, the root's skeleton and the content
// attached to each child
func loadSeries(ctx context.Context, database db.EventReader, logger *zap.Logger, churchID, rootID string, loc *time.Location) (series.Snapshot, error) {
	logger.Debug("Fetching root event", zap.String("root_id", rootID))
	root, err := database.GetEvent(ctx, churchID, rootID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return series.Snapshot{}, ErrRootNotFound
		}
		return series.Snapshot{}, fmt.Errorf("failed to fetch root event: %w", err)
	}
	if !root.IsRootEvent {
		return series.Snapshot{}, fmt.Errorf("%w: event %s is not the root of a series", ErrRootNotFound, rootID)
	}

	children, err := database.ListSeriesChildren(ctx, churchID, root.ID)
	if err != nil {
		return series.Snapshot{}, fmt.Errorf("failed to fetch series children: %w", err)
	}
	logger.Debug("Found series children", zap.Int("count", len(children)))

	assignments, err := database.ListAssignments(ctx, []string{root.ID})
	if err != nil {
		return series.Snapshot{}, fmt.Errorf("failed to fetch root assignments: %w", err)
	}
	hymns, err := database.ListHymns(ctx, []string{root.ID})
	if err != nil {
		return series.Snapshot{}, fmt.Errorf("failed to fetch root hymns: %w", err)
	}

	content, err := database.CountAttachedContent(ctx, eventIDs(children))
	if err != nil {
		return series.Snapshot{}, fmt.Errorf("failed to count attached content: %w", err)
	}

	snap := series.Snapshot{
		Root:            inLocation(*root, loc),
		Children:        make([]model.Event, len(children)),
		Skeleton:        series.SkeletonFrom(assignments, hymns),
		AttachedContent: content,
	}
	for i, child := range children {
		snap.Children[i] = inLocation(child, loc)
	}

	return snap, nil
}

// buildEdit merges the request over the root's current state
func buildEdit(root model.Event, req EditSeriesRequest, loc *time.Location) (series.Edit, error) {
	edit := series.EditFrom(root)
	edit.Scope = req.EditScope

	if req.Name != nil {
		edit.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		edit.Description = *req.Description
	}
	if req.Location != nil {
		edit.Location = strings.TrimSpace(*req.Location)
	}
	if req.EventTypeID != nil {
		edit.EventTypeID = *req.EventTypeID
	}

	if req.StartTime != nil {
		edit.StartTime = req.StartTime.In(loc)
		// Moving the start alone keeps the service length
		if req.EndTime == nil && root.EndTime != nil {
			end := edit.StartTime.Add(root.Duration())
			edit.EndTime = &end
		}
	}
	if req.EndTime != nil {
		end := req.EndTime.In(loc)
		edit.EndTime = &end
	}
	if edit.EndTime != nil && !edit.EndTime.After(edit.StartTime) {
		return series.Edit{}, invalid("endTime", "must be after startTime")
	}

	if req.RecurrencePattern != nil {
		pattern := *req.RecurrencePattern
		if err := pattern.Validate(); err != nil {
			return series.Edit{}, err
		}
		edit.Pattern = &pattern
	}

	edit.Roles = req.Roles
	edit.Hymns = req.Hymns
	return edit, nil
}

// applyPlan executes plan in an order that never shrinks the series while it
// runs: root, new occurrences, updates and content, then deletions. Children go
// before their events when deleting since nothing cascades.
func applyPlan(ctx context.Context, tx db.Writer, plan *series.Plan) error {
	if err := tx.UpdateEvents(ctx, []model.Event{plan.Root}); err != nil {
		return fmt.Errorf("failed to update root event: %w", err)
	}

	if err := insertBatch(ctx, tx, plan.Create); err != nil {
		return err
	}

	if len(plan.Update) > 0 {
		if err := tx.UpdateEvents(ctx, plan.Update); err != nil {
			return fmt.Errorf("failed to update events: %w", err)
		}
	}

	if err := tx.DeleteAssignmentsForEvents(ctx, plan.RoleTargets); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	if err := tx.DeleteHymnsForEvents(ctx, plan.HymnTargets); err != nil {
		return fmt.Errorf("failed to clear hymns: %w", err)
	}
	if err := tx.InsertAssignments(ctx, plan.Content.Assignments); err != nil {
		return fmt.Errorf("failed to insert roles: %w", err)
	}
	if err := tx.InsertHymns(ctx, plan.Content.Hymns); err != nil {
		return fmt.Errorf("failed to insert hymns: %w", err)
	}

	if len(plan.Delete) == 0 {
		return nil
	}
	doomed := eventIDs(plan.Delete)
	if err := tx.DeleteAssignmentsForEvents(ctx, doomed); err != nil {
		return fmt.Errorf("failed to delete assignments of removed events: %w", err)
	}
	if err := tx.DeleteHymnsForEvents(ctx, doomed); err != nil {
		return fmt.Errorf("failed to delete hymns of removed events: %w", err)
	}
	if err := tx.DeleteEvents(ctx, doomed); err != nil {
		return fmt.Errorf("failed to delete removed events: %w", err)
	}

	return nil
}
