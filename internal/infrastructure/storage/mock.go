package storage

import (
	"fmt"
	"sort"
	"sync"
)

// MockRepository is an in-memory Repository implementation for tests.
type MockRepository struct {
	mu      sync.Mutex
	runs    map[string]*RunRecord
	matches map[string][]MatchRecord // keyed by run id

	SaveRunErr     error
	SaveMatchErr   error
	DeleteMatchErr error
}

var _ Repository = (*MockRepository)(nil)

func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs:    make(map[string]*RunRecord),
		matches: make(map[string][]MatchRecord),
	}
}

func (m *MockRepository) SaveRun(run *RunRecord, matches []MatchRecord) error {
	if m.SaveRunErr != nil {
		return m.SaveRunErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	m.matches[run.ID] = append([]MatchRecord(nil), matches...)
	return nil
}

func (m *MockRepository) GetRun(runID string) (*RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (m *MockRepository) ListRuns(limit int) ([]*RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var runs []*RunRecord
	for _, run := range m.runs {
		cp := *run
		runs = append(runs, &cp)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MockRepository) GetMatches(runID string) ([]MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MatchRecord(nil), m.matches[runID]...), nil
}

func (m *MockRepository) SaveMatch(match *MatchRecord) error {
	if m.SaveMatchErr != nil {
		return m.SaveMatchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[match.RunID]
	if !ok {
		return fmt.Errorf("run %s: %w", match.RunID, ErrNotFound)
	}
	m.matches[match.RunID] = append(m.matches[match.RunID], *match)
	run.MatchCount++
	run.UnmatchedInvoices--
	run.UnmatchedBank--
	return nil
}

func (m *MockRepository) DeleteMatch(matchID string) error {
	if m.DeleteMatchErr != nil {
		return m.DeleteMatchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for runID, matches := range m.matches {
		for i, match := range matches {
			if match.MatchID == matchID {
				m.matches[runID] = append(matches[:i], matches[i+1:]...)
				if run, ok := m.runs[runID]; ok {
					run.MatchCount--
					run.UnmatchedInvoices++
					run.UnmatchedBank++
				}
				return nil
			}
		}
	}
	return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
}

func (m *MockRepository) Close() error { return nil }
