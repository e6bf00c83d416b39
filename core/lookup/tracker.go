package lookup

import "sync"

// Tracker holds the current State for one user and discards stale results.
//
// Begin allocates a strictly increasing request id. Complete installs a
// terminal state only if it belongs to the most recently begun request,
// so a slow response can never overwrite a newer one.
type Tracker struct {
	mu      sync.Mutex
	latest  uint64
	current State
}

// NewTracker creates a tracker in the Idle state.
func NewTracker() *Tracker {
	return &Tracker{current: Idle()}
}

// Begin starts a new request, moves to Loading and returns its id.
func (t *Tracker) Begin() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.latest++
	t.current = Loading(t.latest)
	return t.latest
}

// Complete installs s if s.RequestID is the latest request.
// It reports whether the state was accepted.
func (t *Tracker) Complete(s State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s.RequestID != t.latest || t.current.Kind != KindLoading {
		return false
	}
	t.current = s
	return true
}

// Reset returns to Idle. Any request still in flight becomes stale.
func (t *Tracker) Reset() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.latest++
	t.current = Idle()
	return t.current
}

// Current returns the current state.
func (t *Tracker) Current() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Latest returns the most recently allocated request id.
func (t *Tracker) Latest() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}
