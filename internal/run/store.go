package run

import (
	"sync"
	"time"
)

// Store holds the run state behind a mutex. The runner's stream goroutines,
// the resource sampler, and the observe server's HTTP handlers all touch it
// concurrently.
type Store struct {
	mu     sync.RWMutex
	state  State
	notify func(State)
}

func NewStore(runID string) *Store {
	return &Store{
		state: State{
			RunID:     runID,
			Phase:     Starting,
			StartedAt: time.Now(),
		},
	}
}

// SetNotify registers a hook invoked with a snapshot after every Update.
// The hook runs under the store lock so observers see updates in order;
// it must not call back into the store.
func (s *Store) SetNotify(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Update applies mutate to the state and returns the resulting snapshot.
func (s *Store) Update(mutate func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.state)
	snap := s.state
	if s.notify != nil {
		s.notify(snap)
	}
	return snap
}
