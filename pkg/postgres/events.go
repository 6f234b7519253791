package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
	"github.com/jakechorley/church-music-scheduler/pkg/core/recurrence"
	"github.com/jakechorley/church-music-scheduler/pkg/db"
)

const eventColumns = `
	id, church_id, name, description, location, event_type_id, start_time, end_time,
	is_root_event, is_recurring, recurrence_pattern, recurrence_end, generated_from, is_modified`

func scanEvent(row pgx.Row) (model.Event, error) {
	var e model.Event
	var eventTypeID, generatedFrom *string
	var pattern []byte

	err := row.Scan(&e.ID, &e.ChurchID, &e.Name, &e.Description, &e.Location, &eventTypeID,
		&e.StartTime, &e.EndTime, &e.IsRootEvent, &e.IsRecurring, &pattern, &e.RecurrenceEnd,
		&generatedFrom, &e.IsModified)
	if err != nil {
		return e, err
	}

	e.EventTypeID = valueOrEmpty(eventTypeID)
	e.GeneratedFrom = valueOrEmpty(generatedFrom)
	if len(pattern) > 0 {
		p, err := recurrence.ParsePattern(pattern)
		if err != nil {
			return e, fmt.Errorf("event %s has an invalid recurrence pattern: %w", e.ID, err)
		}
		e.RecurrencePattern = &p
	}

	return e, nil
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

func patternJSON(p *recurrence.Pattern) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// GetEvent retrieves one event of the church
func (s *store) GetEvent(ctx context.Context, churchID, eventID string) (*model.Event, error) {
	row := s.q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE church_id = $1 AND id = $2`, churchID, eventID)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &e, nil
}

// ListEvents retrieves the church's events with the given IDs, ordered by start time
func (s *store) ListEvents(ctx context.Context, churchID string, eventIDs []string) ([]model.Event, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE church_id = $1 AND id = ANY($2)
		ORDER BY start_time, id
	`, churchID, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return collectEvents(rows)
}

// ListSeriesChildren retrieves the events generated from a root, ordered by start time
func (s *store) ListSeriesChildren(ctx context.Context, churchID, rootID string) ([]model.Event, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE church_id = $1 AND generated_from = $2
		ORDER BY start_time, id
	`, churchID, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to query series children: %w", err)
	}
	return collectEvents(rows)
}

// InsertEvents inserts event records. Roots precede their children in the batch.
func (s *store) InsertEvents(ctx context.Context, events []model.Event) error {
	batch := &pgx.Batch{}
	for _, e := range events {
		pattern, err := patternJSON(e.RecurrencePattern)
		if err != nil {
			return fmt.Errorf("failed to encode recurrence pattern: %w", err)
		}
		batch.Queue(`
			INSERT INTO events (`+eventColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, e.ID, e.ChurchID, e.Name, e.Description, e.Location, nullIfEmpty(e.EventTypeID),
			e.StartTime, e.EndTime, e.IsRootEvent, e.IsRecurring, pattern, e.RecurrenceEnd,
			nullIfEmpty(e.GeneratedFrom), e.IsModified)
	}
	return s.execBatch(ctx, batch, "insert events")
}

// UpdateEvents rewrites the details, timing and recurrence of existing events.
// The modified flag is owned by the editing UI and is left untouched.
func (s *store) UpdateEvents(ctx context.Context, events []model.Event) error {
	batch := &pgx.Batch{}
	for _, e := range events {
		pattern, err := patternJSON(e.RecurrencePattern)
		if err != nil {
			return fmt.Errorf("failed to encode recurrence pattern: %w", err)
		}
		batch.Queue(`
			UPDATE events
			SET name = $3, description = $4, location = $5, event_type_id = $6,
				start_time = $7, end_time = $8, is_recurring = $9,
				recurrence_pattern = $10, recurrence_end = $11, updated_at = NOW()
			WHERE church_id = $1 AND id = $2
		`, e.ChurchID, e.ID, e.Name, e.Description, e.Location, nullIfEmpty(e.EventTypeID),
			e.StartTime, e.EndTime, e.IsRecurring, pattern, e.RecurrenceEnd)
	}
	return s.execBatch(ctx, batch, "update events")
}

// DeleteEvents deletes events. Their assignments and hymns must already be gone.
func (s *store) DeleteEvents(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	if _, err := s.q.Exec(ctx, `DELETE FROM events WHERE id = ANY($1)`, eventIDs); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}
	return nil
}

// InsertActivity records an activity log entry
func (s *store) InsertActivity(ctx context.Context, a model.Activity) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO activities (id, church_id, user_id, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.ChurchID, nullIfEmpty(a.UserID), a.Type, a.Description, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}
