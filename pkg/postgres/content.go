package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
)

// ListAssignments retrieves the assignments of the given events
func (s *store) ListAssignments(ctx context.Context, eventIDs []string) ([]model.Assignment, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, event_id, role_name, user_id, group_id, status, max_musicians, is_auto_assigned
		FROM assignments
		WHERE event_id = ANY($1)
		ORDER BY event_id, role_name, id
	`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		var userID, groupID *string
		if err := rows.Scan(&a.ID, &a.EventID, &a.RoleName, &userID, &groupID, &a.Status, &a.MaxMusicians, &a.IsAutoAssigned); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.UserID = valueOrEmpty(userID)
		a.GroupID = valueOrEmpty(groupID)
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}

// InsertAssignments inserts assignment records
func (s *store) InsertAssignments(ctx context.Context, assignments []model.Assignment) error {
	batch := &pgx.Batch{}
	for _, a := range assignments {
		batch.Queue(`
			INSERT INTO assignments (id, event_id, role_name, user_id, group_id, status, max_musicians, is_auto_assigned)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, a.ID, a.EventID, a.RoleName, nullIfEmpty(a.UserID), nullIfEmpty(a.GroupID), a.Status, max(a.MaxMusicians, 1), a.IsAutoAssigned)
	}
	return s.execBatch(ctx, batch, "insert assignments")
}

// DeleteAssignmentsForEvents deletes every assignment of the given events
func (s *store) DeleteAssignmentsForEvents(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	if _, err := s.q.Exec(ctx, `DELETE FROM assignments WHERE event_id = ANY($1)`, eventIDs); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	return nil
}

// AssignSlot fills an open individual slot as an auto-assignment awaiting acceptance
func (s *store) AssignSlot(ctx context.Context, assignmentID, userID string) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		UPDATE assignments
		SET user_id = $2, status = 'PENDING', is_auto_assigned = TRUE
		WHERE id = $1 AND user_id IS NULL AND group_id IS NULL
	`, assignmentID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to assign slot %s: %w", assignmentID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListHymns retrieves the hymn and service-part entries of the given events
func (s *store) ListHymns(ctx context.Context, eventIDs []string) ([]model.Hymn, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, event_id, service_part_id, title, notes
		FROM event_hymns
		WHERE event_id = ANY($1)
		ORDER BY event_id, id
	`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query hymns: %w", err)
	}
	defer rows.Close()

	var hymns []model.Hymn
	for rows.Next() {
		var h model.Hymn
		var servicePartID *string
		if err := rows.Scan(&h.ID, &h.EventID, &servicePartID, &h.Title, &h.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan hymn: %w", err)
		}
		h.ServicePartID = valueOrEmpty(servicePartID)
		hymns = append(hymns, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hymns: %w", err)
	}

	return hymns, nil
}

// InsertHymns inserts hymn placeholder records
func (s *store) InsertHymns(ctx context.Context, hymns []model.Hymn) error {
	batch := &pgx.Batch{}
	for _, h := range hymns {
		batch.Queue(`
			INSERT INTO event_hymns (id, event_id, service_part_id, title, notes)
			VALUES ($1, $2, $3, $4, $5)
		`, h.ID, h.EventID, nullIfEmpty(h.ServicePartID), h.Title, h.Notes)
	}
	return s.execBatch(ctx, batch, "insert hymns")
}

// DeleteHymnsForEvents deletes every hymn entry of the given events
func (s *store) DeleteHymnsForEvents(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	if _, err := s.q.Exec(ctx, `DELETE FROM event_hymns WHERE event_id = ANY($1)`, eventIDs); err != nil {
		return fmt.Errorf("failed to delete hymns: %w", err)
	}
	return nil
}

// CountAttachedContent counts titled hymns, documents and filled assignments per event
func (s *store) CountAttachedContent(ctx context.Context, eventIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(eventIDs) == 0 {
		return counts, nil
	}

	rows, err := s.q.Query(ctx, `
		SELECT event_id, COUNT(*)
		FROM (
			SELECT event_id FROM event_hymns
			WHERE event_id = ANY($1) AND (title <> '' OR notes <> '')
			UNION ALL
			SELECT event_id FROM event_documents
			WHERE event_id = ANY($1)
			UNION ALL
			SELECT event_id FROM assignments
			WHERE event_id = ANY($1) AND user_id IS NOT NULL
		) attached
		GROUP BY event_id
	`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count attached content: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID string
		var count int
		if err := rows.Scan(&eventID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan content count: %w", err)
		}
		counts[eventID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content counts: %w", err)
	}

	return counts, nil
}
