package signals

import (
	"sync"

	"SignalDesk/internal/model"
)

// Store holds the latest signal per asset.
type Store struct {
	mu      sync.RWMutex
	signals map[int]model.Signal
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{signals: make(map[int]model.Signal)}
}

// SetIfChanged writes sig for the asset only if it differs from the stored
// value. It returns the previous value and whether a write happened.
func (s *Store) SetIfChanged(assetID int, sig model.Signal) (model.Signal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.signals[assetID]
	if ok && prev == sig {
		return prev, false
	}
	s.signals[assetID] = sig
	return prev, true
}

// Get returns the stored signal for the asset.
func (s *Store) Get(assetID int) (model.Signal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signals[assetID]
	return sig, ok
}

// Remove drops the asset's signal.
func (s *Store) Remove(assetID int) {
	s.mu.Lock()
	delete(s.signals, assetID)
	s.mu.Unlock()
}

// Clear drops every signal.
func (s *Store) Clear() {
	s.mu.Lock()
	s.signals = make(map[int]model.Signal)
	s.mu.Unlock()
}

// Snapshot returns a copy of all signals.
func (s *Store) Snapshot() map[int]model.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]model.Signal, len(s.signals))
	for k, v := range s.signals {
		out[k] = v
	}
	return out
}
