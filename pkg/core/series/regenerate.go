package series

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
	"github.com/jakechorley/church-music-scheduler/pkg/core/recurrence"
)

// ErrNoReplacementDates is returned when a pattern change would leave the series
// with no future occurrence. Nothing is created or deleted.
var ErrNoReplacementDates = errors.New("pattern change yields no future dates; refusing to remove existing events")

// Scope selects which children an in-place update touches
type Scope string

const (
	ScopeFuture Scope = "future"
	ScopeAll    Scope = "all"
)

func (s Scope) Valid() bool {
	return s == ScopeFuture || s == ScopeAll
}

// Edit is the desired state of a root event after an edit
type Edit struct {
	Scope       Scope
	Name        string
	Description string
	Location    string
	EventTypeID string
	StartTime   time.Time
	EndTime     *time.Time

	// Pattern is the new recurrence pattern. Nil keeps the current one.
	Pattern *recurrence.Pattern

	Roles Change[RoleSlot]
	Hymns Change[HymnSlot]
}

// EditFrom returns an Edit that leaves root as it is
func EditFrom(root model.Event) Edit {
	return Edit{
		Scope:       ScopeFuture,
		Name:        root.Name,
		Description: root.Description,
		Location:    root.Location,
		EventTypeID: root.EventTypeID,
		StartTime:   root.StartTime,
		EndTime:     root.EndTime,
	}
}

// Snapshot is the current state of a series
type Snapshot struct {
	Root     model.Event
	Children []model.Event

	// Skeleton is the root's current role and hymn structure
	Skeleton Skeleton

	// AttachedContent counts, per event ID, the content a user has added to an
	// event: titled hymns, documents and filled assignments
	AttachedContent map[string]int
}

// Options carries the environment of a planning run
type Options struct {
	Now      time.Time
	Horizon  time.Time
	Blackout *recurrence.Blackout
	NewID    func() string
}

// SkipReason says why an event was left alone
type SkipReason string

const (
	SkipModified   SkipReason = "modified"
	SkipHasContent SkipReason = "has_content"
)

// Skip is an event regeneration did not touch
type Skip struct {
	Event  model.Event
	Reason SkipReason
}

// Plan is the full set of writes an edit requires. Executing it in order
// (root, Create, Update, content, Delete) never leaves the series smaller than
// before while it runs.
type Plan struct {
	PatternChanged bool

	Root   model.Event
	Create Batch
	Update []model.Event

	// RoleTargets and HymnTargets are events whose existing roles or hymns are
	// removed before Content is inserted
	RoleTargets []string
	HymnTargets []string
	Content     Batch

	Delete  []model.Event
	Skipped []Skip

	loc *time.Location
}

// PlanRegeneration works out how to bring a series in line with edit.
//
// With an unchanged pattern, every unmodified child in scope keeps its offset
// from the root and takes the root's new details. With a changed pattern, the
// new future dates are computed first, through the horizon or the last
// unmodified child if that is later; existing future children that fall on
// one of them are kept, dates with no child are created, and the remaining
// future children are deleted when they are safe to discard. Modified children
// are never changed or deleted.
func PlanRegeneration(snap Snapshot, edit Edit, opts Options) (*Plan, error) {
	if !edit.Scope.Valid() {
		return nil, fmt.Errorf("invalid edit scope %q", edit.Scope)
	}

	oldRoot := snap.Root
	pattern := oldRoot.RecurrencePattern
	if edit.Pattern != nil {
		pattern = edit.Pattern
	}

	plan := &Plan{
		PatternChanged: !recurrence.SamePattern(oldRoot.RecurrencePattern, pattern),
		Root:           applyToRoot(oldRoot, edit, pattern),
		loc:            edit.StartTime.Location(),
	}

	children := slices.Clone(snap.Children)
	slices.SortStableFunc(children, func(a, b model.Event) int {
		return a.StartTime.Compare(b.StartTime)
	})

	if plan.PatternChanged {
		if err := plan.reconcile(snap, children, edit, pattern, opts); err != nil {
			return nil, err
		}
	} else {
		plan.updateInPlace(oldRoot, children, edit, opts.Now)
	}

	plan.planContent(edit, opts.NewID)
	return plan, nil
}

func applyToRoot(root model.Event, edit Edit, pattern *recurrence.Pattern) model.Event {
	root.Name = edit.Name
	root.Description = edit.Description
	root.Location = edit.Location
	root.EventTypeID = edit.EventTypeID
	root.StartTime = edit.StartTime
	root.EndTime = edit.EndTime
	root.RecurrencePattern = pattern
	root.IsRecurring = pattern != nil
	root.RecurrenceEnd = nil
	if pattern != nil && !pattern.EndDate.IsZero() {
		end := pattern.EndDate
		root.RecurrenceEnd = &end
	}
	return root
}

func (p *Plan) updateInPlace(oldRoot model.Event, children []model.Event, edit Edit, now time.Time) {
	for _, child := range children {
		if edit.Scope == ScopeFuture && child.StartTime.Before(now) {
			continue
		}
		if child.IsModified {
			p.Skipped = append(p.Skipped, Skip{Event: child, Reason: SkipModified})
			continue
		}
		start := shiftKeepingOffset(oldRoot.StartTime, child.StartTime, edit.StartTime)
		p.Update = append(p.Update, withRootDetails(child, edit, start))
	}
}

func (p *Plan) reconcile(snap Snapshot, children []model.Event, edit Edit, pattern *recurrence.Pattern, opts Options) error {
	// Cover the horizon and every generated future child, so a child is only
	// pruned when the new pattern really has no date for it
	end := opts.Horizon
	if !end.IsZero() {
		for _, child := range children {
			if !child.IsModified && child.StartTime.After(end) {
				end = child.StartTime
			}
		}
	}

	var candidates []time.Time
	truncated := false
	if pattern != nil {
		dates, full, err := futureDates(*pattern, edit.StartTime, opts.Now, end)
		if err != nil {
			return fmt.Errorf("failed to generate dates: %w", err)
		}
		truncated = full
		candidates = opts.Blackout.Filter(dates)
	}
	if len(candidates) == 0 {
		return ErrNoReplacementDates
	}
	lastCandidate := candidates[len(candidates)-1]

	existing := make(map[string][]model.Event)
	for _, child := range children {
		if child.StartTime.Before(opts.Now) {
			continue
		}
		key := p.dateKey(child.StartTime)
		existing[key] = append(existing[key], child)
	}

	var uncovered []time.Time
	var leftovers []model.Event
	for _, candidate := range candidates {
		key := p.dateKey(candidate)
		onDate, ok := existing[key]
		if !ok {
			uncovered = append(uncovered, candidate)
			continue
		}
		delete(existing, key)

		kept := false
		for _, child := range onDate {
			switch {
			case child.IsModified:
				p.Skipped = append(p.Skipped, Skip{Event: child, Reason: SkipModified})
			case !kept:
				p.Update = append(p.Update, withRootDetails(child, edit, candidate))
				kept = true
			default:
				// A duplicate on the same date is pruned like any other leftover
				leftovers = append(leftovers, child)
			}
		}
	}

	p.Create = Materialize(p.Root, uncovered, effectiveSkeleton(snap.Skeleton, edit), opts.NewID)

	for _, onDate := range existing {
		leftovers = append(leftovers, onDate...)
	}
	slices.SortStableFunc(leftovers, func(a, b model.Event) int {
		return a.StartTime.Compare(b.StartTime)
	})

	for _, child := range leftovers {
		switch {
		case truncated && child.StartTime.After(lastCandidate):
			// Past the last generated date; nothing is known about it yet
		case child.IsModified:
			p.Skipped = append(p.Skipped, Skip{Event: child, Reason: SkipModified})
		case snap.AttachedContent[child.ID] > 0:
			p.Skipped = append(p.Skipped, Skip{Event: child, Reason: SkipHasContent})
		default:
			p.Delete = append(p.Delete, child)
		}
	}

	return nil
}

// futureDates generates the dates of p at or after from and through end. The
// rule stays anchored at anchor; each call to GenerateFrom is capped, so
// generation carries on from the last date until end is reached. With no end,
// only the first window is generated and full reports that it was capped.
func futureDates(p recurrence.Pattern, anchor, from, end time.Time) (dates []time.Time, full bool, err error) {
	for {
		window, err := recurrence.GenerateFrom(p, anchor, from, end)
		if err != nil {
			return nil, false, err
		}
		dates = append(dates, window...)
		if len(window) < recurrence.MaxGeneratedDates {
			return dates, false, nil
		}
		if end.IsZero() {
			return dates, true, nil
		}
		from = window[len(window)-1].Add(time.Second)
	}
}

// planContent applies the role and hymn changes to the root and every updated child
func (p *Plan) planContent(edit Edit, newID func() string) {
	if edit.Roles.Mode() == ChangeUnchanged && edit.Hymns.Mode() == ChangeUnchanged {
		return
	}

	targets := []string{p.Root.ID}
	for _, child := range p.Update {
		targets = append(targets, child.ID)
	}

	skel := Skeleton{Roles: edit.Roles.Items(), Hymns: edit.Hymns.Items()}
	if edit.Roles.Mode() != ChangeUnchanged {
		p.RoleTargets = targets
		for _, id := range targets {
			p.Content.Append(Slots(id, Skeleton{Roles: skel.Roles}, newID))
		}
	}
	if edit.Hymns.Mode() != ChangeUnchanged {
		p.HymnTargets = targets
		for _, id := range targets {
			p.Content.Append(Slots(id, Skeleton{Hymns: skel.Hymns}, newID))
		}
	}
}

func effectiveSkeleton(current Skeleton, edit Edit) Skeleton {
	return Skeleton{
		Roles: edit.Roles.Apply(current.Roles),
		Hymns: edit.Hymns.Apply(current.Hymns),
	}
}

func withRootDetails(child model.Event, edit Edit, start time.Time) model.Event {
	child.Name = edit.Name
	child.Description = edit.Description
	child.Location = edit.Location
	child.EventTypeID = edit.EventTypeID
	child.StartTime = start
	child.EndTime = nil
	if edit.EndTime != nil {
		end := start.Add(edit.EndTime.Sub(edit.StartTime))
		child.EndTime = &end
	}
	return child
}

// shiftKeepingOffset moves child so that it sits as many calendar days and as
// much wall-clock time after newRoot as it did after oldRoot
func shiftKeepingOffset(oldRoot, child, newRoot time.Time) time.Time {
	loc := newRoot.Location()
	o, c := oldRoot.In(loc), child.In(loc)

	days := civilDay(c) - civilDay(o)
	clock := timeOfDay(c) - timeOfDay(o)
	return newRoot.AddDate(0, 0, days).Add(clock)
}

func civilDay(t time.Time) int {
	return int(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

func (p *Plan) dateKey(t time.Time) string {
	return recurrence.DateKey(t.In(p.loc))
}

// SkippedDates returns the calendar dates of the skipped events, ascending
func (p *Plan) SkippedDates() []string {
	dates := make([]string, 0, len(p.Skipped))
	for _, s := range p.Skipped {
		dates = append(dates, p.dateKey(s.Event.StartTime))
	}
	slices.Sort(dates)
	return dates
}

// Result summarises a regeneration for the caller
type Result struct {
	DryRun            bool     `json:"dryRun"`
	PatternChanged    bool     `json:"patternChanged"`
	EventsUpdated     int      `json:"eventsUpdated"`
	EventsSkipped     int      `json:"eventsSkipped"`
	SkippedEventDates []string `json:"skippedEventDates"`
	EventsCreated     int      `json:"eventsCreated"`
	EventsRemoved     int      `json:"eventsRemoved"`
	WouldUpdate       int      `json:"wouldUpdate"`
	WouldCreate       int      `json:"wouldCreate"`
	WouldDelete       int      `json:"wouldDelete"`
}

// Result reports the plan's counts, as applied or (for a dry run) as they would be
func (p *Plan) Result(dryRun bool) Result {
	r := Result{
		DryRun:            dryRun,
		PatternChanged:    p.PatternChanged,
		EventsSkipped:     len(p.Skipped),
		SkippedEventDates: p.SkippedDates(),
	}
	if dryRun {
		r.WouldUpdate = len(p.Update)
		r.WouldCreate = len(p.Create.Events)
		r.WouldDelete = len(p.Delete)
	} else {
		r.EventsUpdated = len(p.Update)
		r.EventsCreated = len(p.Create.Events)
		r.EventsRemoved = len(p.Delete)
	}
	return r
}

// Describe renders the activity log line for the edit of the named series
func (r Result) Describe(name string) string {
	var b strings.Builder
	if r.DryRun {
		fmt.Fprintf(&b, "Previewed edit of series %q: would create %d, remove %d, update %d",
			name, r.WouldCreate, r.WouldDelete, r.WouldUpdate)
	} else {
		fmt.Fprintf(&b, "Edited series %q: %d created, %d removed, %d updated",
			name, r.EventsCreated, r.EventsRemoved, r.EventsUpdated)
	}
	if r.EventsSkipped > 0 {
		fmt.Fprintf(&b, ", %d skipped (%s)", r.EventsSkipped, strings.Join(r.SkippedEventDates, ", "))
	}
	return b.String()
}
