package mapping

import (
	"sync/atomic"
	"time"
)

// State is the mapping currently served plus its provenance. A nil Mapping
// means nothing has been published yet; zero times mean unknown.
type State struct {
	Mapping       AliasMapping
	LastModified  time.Time
	LastCheckedAt time.Time
}

// Loaded reports whether any mapping has been published.
func (s State) Loaded() bool {
	return s.Mapping != nil
}

// Store publishes States atomically. Readers never block and always see a
// complete State; there is exactly one writer, the refresh scheduler.
type Store struct {
	state atomic.Pointer[State]
	now   func() time.Time
}

// NewStore returns a store holding the empty State.
func NewStore() *Store {
	s := &Store{now: time.Now}
	s.state.Store(&State{})
	return s
}

// Current returns the active State.
func (s *Store) Current() State {
	return *s.state.Load()
}

// Publish replaces the active State. m must not be modified afterwards. A
// nil m is stored as an empty mapping so Loaded reports true.
func (s *Store) Publish(m AliasMapping, modifiedAt time.Time) {
	if m == nil {
		m = AliasMapping{}
	}
	s.state.Store(&State{
		Mapping:       m,
		LastModified:  modifiedAt,
		LastCheckedAt: s.now(),
	})
}
