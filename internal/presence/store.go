package presence

import (
	"sync"
	"time"
)

// State is what presentation code reads from the Store. Treat it as
// read-only; the snapshot is shared with other readers.
type State struct {
	Snapshot  *Snapshot `json:"snapshot"`
	Error     string    `json:"error,omitempty"`
	Connected bool      `json:"connected"`
	Stale     bool      `json:"stale"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Store holds the latest snapshot, the last error and the connectivity
// flag. It does no I/O. Writes notify every observer synchronously, after
// the new state is visible to Read.
type Store struct {
	mu        sync.RWMutex
	state     State
	observers map[int]func(State)
	nextID    int

	now func() time.Time
}

// NewStore returns an empty, disconnected store.
func NewStore() *Store {
	return &Store{
		observers: make(map[int]func(State)),
		now:       time.Now,
	}
}

// SetSnapshot replaces the current snapshot and clears any error.
func (s *Store) SetSnapshot(snap Snapshot) {
	s.update(func(st *State) {
		st.Snapshot = &snap
		st.Error = ""
	})
}

// SetError records msg and marks the store disconnected.
func (s *Store) SetError(msg string) {
	s.update(func(st *State) {
		st.Error = msg
		st.Connected = false
	})
}

// SetConnected sets the connectivity flag without touching data or error.
func (s *Store) SetConnected(connected bool) {
	s.update(func(st *State) {
		st.Connected = connected
	})
}

// Read returns the current state.
func (s *Store) Read() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to be called after every write. Observers run on
// the writer's goroutine and must not block. The returned func removes
// the observer.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.Stale = s.state.Snapshot != nil && !s.state.Connected
	s.state.UpdatedAt = s.now()
	st := s.state
	observers := make([]func(State), 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(st)
	}
}
