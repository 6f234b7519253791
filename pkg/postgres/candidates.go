package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
)

// ListCandidates retrieves the church's active musicians with their group memberships
func (s *store) ListCandidates(ctx context.Context, churchID, groupID string) ([]model.Candidate, error) {
	rows, err := s.q.Query(ctx, `
		SELECT u.id, u.first_name, u.last_name, u.instruments,
			COALESCE(array_agg(gm.group_id ORDER BY gm.group_id) FILTER (WHERE gm.group_id IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN group_members gm ON gm.user_id = u.id
		WHERE u.church_id = $1 AND u.is_active
			AND ($2::text = '' OR EXISTS (
				SELECT 1 FROM group_members f WHERE f.user_id = u.id AND f.group_id = $2::text
			))
		GROUP BY u.id
		ORDER BY u.id
	`, churchID, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Instruments, &c.GroupIDs); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	return candidates, nil
}

// ListCommitments retrieves the users' live assignments on events starting within [from, to]
func (s *store) ListCommitments(ctx context.Context, userIDs []string, from, to time.Time) (map[string][]model.Commitment, error) {
	commitments := make(map[string][]model.Commitment)
	if len(userIDs) == 0 {
		return commitments, nil
	}

	rows, err := s.q.Query(ctx, `
		SELECT a.user_id, a.id, a.event_id, a.status, e.start_time, e.end_time
		FROM assignments a
		JOIN events e ON e.id = a.event_id
		WHERE a.user_id = ANY($1)
			AND a.status IN ('PENDING', 'ACCEPTED')
			AND e.start_time BETWEEN $2 AND $3
		ORDER BY e.start_time
	`, userIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query commitments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var c model.Commitment
		if err := rows.Scan(&userID, &c.AssignmentID, &c.EventID, &c.Status, &c.StartTime, &c.EndTime); err != nil {
			return nil, fmt.Errorf("failed to scan commitment: %w", err)
		}
		commitments[userID] = append(commitments[userID], c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commitments: %w", err)
	}

	return commitments, nil
}

// ListUnavailability retrieves the users' declared unavailability
func (s *store) ListUnavailability(ctx context.Context, userIDs []string) (map[string][]model.Unavailability, error) {
	unavailability := make(map[string][]model.Unavailability)
	if len(userIDs) == 0 {
		return unavailability, nil
	}

	rows, err := s.q.Query(ctx, `
		SELECT id, user_id, kind, start_date, end_date, day_of_week, reason
		FROM unavailability
		WHERE user_id = ANY($1)
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query unavailability: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u model.Unavailability
		var dayOfWeek *int16
		if err := rows.Scan(&u.ID, &u.UserID, &u.Kind, &u.StartDate, &u.EndDate, &dayOfWeek, &u.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan unavailability: %w", err)
		}
		if dayOfWeek != nil {
			u.DayOfWeek = time.Weekday(*dayOfWeek)
		}
		unavailability[u.UserID] = append(unavailability[u.UserID], u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unavailability: %w", err)
	}

	return unavailability, nil
}
