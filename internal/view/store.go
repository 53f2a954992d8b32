package view

import (
	"sync"
	"time"
)

// Store is a thread-safe in-memory view registry with idle-TTL eviction.
type Store struct {
	mu    sync.Mutex
	views map[string]*View
	ttl   time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		views: make(map[string]*View),
		ttl:   ttl,
	}
}

func (s *Store) Put(v *View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[v.ID()] = v
}

func (s *Store) Get(id string) *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views[id]
}

// Delete removes and unmounts a view. It reports whether the view existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if ok {
		v.Unmount()
	}
	return ok
}

// Len returns the number of live views.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Cleanup unmounts and removes views idle longer than the TTL. It returns
// the number evicted.
func (s *Store) Cleanup() int {
	now := time.Now()
	var expired []*View

	s.mu.Lock()
	for id, v := range s.views {
		if now.Sub(v.LastSeen()) > s.ttl {
			expired = append(expired, v)
			delete(s.views, id)
		}
	}
	s.mu.Unlock()

	for _, v := range expired {
		v.Unmount()
	}
	return len(expired)
}

// Close unmounts every view.
func (s *Store) Close() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*View)
	s.mu.Unlock()
	for _, v := range views {
		v.Unmount()
	}
}
