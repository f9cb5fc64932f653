package storage

import "errors"

// ErrNotFound is returned when a run or match id has no row.
var ErrNotFound = errors.New("storage: not found")

// Repository is the durable match store contract. Implemented by the SQLite
// Storage and the in-memory MockRepository.
type Repository interface {
	// SaveRun inserts a run row together with its initial match set in one
	// transaction. Re-saving an existing run id replaces the snapshot.
	SaveRun(run *RunRecord, matches []MatchRecord) error

	// GetRun returns a run row, or ErrNotFound.
	GetRun(runID string) (*RunRecord, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*RunRecord, error)

	// GetMatches returns a run's matches ordered by creation time.
	GetMatches(runID string) ([]MatchRecord, error)

	// SaveMatch inserts one match row and bumps the run's counters.
	SaveMatch(m *MatchRecord) error

	// DeleteMatch removes a match row and restores the run's counters.
	// Returns ErrNotFound for an unknown match id.
	DeleteMatch(matchID string) error

	// Close releases the underlying resources.
	Close() error
}
