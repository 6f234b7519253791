package db

import (
	"context"
	"errors"
	"time"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
)

// ErrNotFound is returned when a requested row does not exist in the caller's church
var ErrNotFound = errors.New("not found")

// EventReader defines the read operations over events and their content
type EventReader interface {
	GetEvent(ctx context.Context, churchID, eventID string) (*model.Event, error)
	ListEvents(ctx context.Context, churchID string, eventIDs []string) ([]model.Event, error)
	ListSeriesChildren(ctx context.Context, churchID, rootID string) ([]model.Event, error)
	ListAssignments(ctx context.Context, eventIDs []string) ([]model.Assignment, error)
	ListHymns(ctx context.Context, eventIDs []string) ([]model.Hymn, error)

	// CountAttachedContent counts, per event, the titled hymns, documents and
	// filled assignments. Events with none are absent from the map.
	CountAttachedContent(ctx context.Context, eventIDs []string) (map[string]int, error)
}

// CandidateReader defines the reads the assignment matcher needs
type CandidateReader interface {
	// ListCandidates returns the church's musicians, limited to members of
	// groupID when it is not empty
	ListCandidates(ctx context.Context, churchID, groupID string) ([]model.Candidate, error)

	// ListCommitments returns the PENDING and ACCEPTED assignments of the users
	// on events starting between from and to, keyed by user ID
	ListCommitments(ctx context.Context, userIDs []string, from, to time.Time) (map[string][]model.Commitment, error)

	// ListUnavailability returns the declared unavailability of the users, keyed by user ID
	ListUnavailability(ctx context.Context, userIDs []string) (map[string][]model.Unavailability, error)
}

// Writer defines the write operations. Deletes must run in foreign key order:
// assignments and hymns before the events they belong to.
type Writer interface {
	InsertEvents(ctx context.Context, events []model.Event) error
	UpdateEvents(ctx context.Context, events []model.Event) error
	DeleteEvents(ctx context.Context, eventIDs []string) error

	InsertAssignments(ctx context.Context, assignments []model.Assignment) error
	DeleteAssignmentsForEvents(ctx context.Context, eventIDs []string) error

	// AssignSlot fills an open slot. It reports false, and changes nothing,
	// when the slot has been filled in the meantime.
	AssignSlot(ctx context.Context, assignmentID, userID string) (bool, error)

	InsertHymns(ctx context.Context, hymns []model.Hymn) error
	DeleteHymnsForEvents(ctx context.Context, eventIDs []string) error

	InsertActivity(ctx context.Context, activity model.Activity) error
}

// Tx is the view of the store inside a transaction
type Tx interface {
	EventReader
	CandidateReader
	Writer
}

// TxRunner runs fn in a single transaction bounded by timeout. The transaction
// commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, timeout time.Duration, fn func(tx Tx) error) error
}

// Database defines the interface for all database operations
type Database interface {
	Tx
	TxRunner
}
