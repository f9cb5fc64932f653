package recon

import "sync"

// RunCache holds in-flight runs keyed by reconciliation id. It is owned by
// the caller (the API layer constructs one and passes it into handlers);
// the engine itself keeps no process-wide state.
type RunCache struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRunCache creates an empty cache.
func NewRunCache() *RunCache {
	return &RunCache{runs: make(map[string]*Run)}
}

// Put stores a run under its id, replacing any previous entry.
func (c *RunCache) Put(run *Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[run.ID] = run
}

// Get returns the run for an id, or nil when absent.
func (c *RunCache) Get(id string) *Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runs[id]
}

// Delete evicts a run. Deleting an absent id is a no-op.
func (c *RunCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.runs, id)
}

// Len reports how many runs are cached.
func (c *RunCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.runs)
}
