package orchestrator

import (
	"context"
	"sync"
)

// CancelRegistry is the process-wide mapping from live execution id to its
// cancellation handle. Entries are owned by exactly one RunExecution call and
// live exactly as long as that run. The registry holds no persisted state and
// is rebuilt empty on process restart; in-flight runs from a prior process are
// cancelled via the persisted running status instead.
type CancelRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewCancelRegistry creates an empty cancellation registry.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{
		cancels: make(map[string]context.CancelFunc),
	}
}

// Add registers a cancellation handle for an execution id.
func (r *CancelRegistry) Add(executionID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[executionID] = cancel
}

// Remove drops the handle for an execution id without invoking it.
func (r *CancelRegistry) Remove(executionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, executionID)
}

// Cancel signals the handle for an execution id, if present. The signal is
// best-effort: the run observes it at its next check point. Returns whether
// a handle was found.
func (r *CancelRegistry) Cancel(executionID string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[executionID]
	r.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Contains reports whether an execution id has a live handle.
func (r *CancelRegistry) Contains(executionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cancels[executionID]
	return ok
}

// Len returns the number of live handles.
func (r *CancelRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancels)
}
