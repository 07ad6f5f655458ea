package game

import (
	"sync"

	"github.com/drewhoward/gamenight/go/internal/models"
)

// Store holds the single authoritative GameState value. All reads and writes
// go through the mutex so concurrent handlers observe a serialized sequence
// of states; two simultaneous buzz-ins can never both see AllowBuzz == true.
type Store struct {
	mu    sync.Mutex
	state models.GameState
}

// NewStore creates a store initialized to the default baseline.
func NewStore() *Store {
	return &Store{state: models.DefaultGameState()}
}

// Update runs fn against the live state as one atomic read-modify-write.
func (s *Store) Update(fn func(state *models.GameState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() models.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Replace swaps in a whole new state value. Used during startup
// reconciliation and reset.
func (s *Store) Replace(state models.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
