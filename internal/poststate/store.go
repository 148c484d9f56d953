package poststate

import "sync"

// Store owns the current snapshot of one post and publishes every new
// snapshot to its subscribers. Apply is the only way to change it.
type Store struct {
	// publishMu serialises Apply so subscribers observe snapshots in the
	// order they were produced.
	publishMu sync.Mutex

	mu      sync.RWMutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

// NewStore creates a store seeded from a server snapshot.
func NewStore(seed Seed) *Store {
	return &Store{
		state: Initialize(seed),
		subs:  make(map[int]func(State)),
	}
}

// Snapshot returns the current snapshot. Callers must treat it as read-only.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply replaces the snapshot with patch(old) and notifies subscribers.
// patch must be pure: it may not modify the slices of the state it receives.
// Subscribers must not call Apply.
func (s *Store) Apply(patch func(State) State) State {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	next := patch(s.state)
	s.state = next
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Subscribe registers fn to receive every snapshot produced after the call.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
