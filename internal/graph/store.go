package graph

import "sync"

// Store holds the current snapshot of one graph. Readers share it through
// View; Update runs alone and replaces it, so a reader sees either the
// state before or after a write, never a mix.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewStore creates a store serving snap.
func NewStore(snap *Snapshot) *Store {
	return &Store{snap: snap}
}

// View runs fn against the current snapshot. Views may run concurrently.
func (s *Store) View(fn func(*Snapshot) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.snap)
}

// Update runs fn with exclusive access and installs the snapshot it returns.
// If fn fails the current snapshot is kept.
func (s *Store) Update(fn func(*Snapshot) (*Snapshot, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.snap)
	if err != nil {
		return err
	}
	if next != nil {
		s.snap = next
	}
	return nil
}

// Current returns the snapshot installed at the time of the call.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
