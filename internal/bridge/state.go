package bridge

import (
	"sync"

	"github.com/kingrea/devmatch/internal/engine"
)

// StateStore holds the latest engine snapshot. The UI loop publishes and HTTP
// handlers read, so access is guarded.
type StateStore struct {
	mu        sync.RWMutex
	snapshot  engine.Snapshot
	published bool
}

// Publish replaces the stored snapshot.
func (s *StateStore) Publish(snap engine.Snapshot) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.snapshot = snap
	s.published = true
	s.mu.Unlock()
}

// Latest returns the stored snapshot and whether one was ever published.
func (s *StateStore) Latest() (engine.Snapshot, bool) {
	if s == nil {
		return engine.Snapshot{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.published
}
