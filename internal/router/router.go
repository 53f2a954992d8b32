// Package router models the route/history collaborator as an explicit value
// with synchronous change notifications.
package router

import (
	"slices"
	"sync"

	"github.com/dgallion1/taxguide/internal/content"
)

// ChangeKind says how the current route changed.
type ChangeKind string

const (
	Push    ChangeKind = "push"    // new history entry
	Replace ChangeKind = "replace" // current entry rewritten in place
	Pop     ChangeKind = "pop"     // back/forward traversal
)

// Change is published to subscribers after every route mutation.
type Change struct {
	Path     string     `json:"path"`
	Previous string     `json:"previous"`
	Kind     ChangeKind `json:"kind"`
}

// Reader exposes the current route.
type Reader interface {
	Current() string
}

// Router is the subset of history operations the engine needs.
type Router interface {
	Reader
	Navigate(path string)
	Replace(path string)
	Subscribe(fn func(Change)) (unsubscribe func())
}

// Memory is an in-memory history stack.
type Memory struct {
	mu      sync.Mutex
	entries []string
	cursor  int

	nextSub int
	subs    map[int]func(Change)
}

// NewMemory returns a history with a single entry at start.
func NewMemory(start string) *Memory {
	return &Memory{
		entries: []string{content.NormalizePath(start)},
		subs:    make(map[int]func(Change)),
	}
}

// Current returns the path of the active history entry.
func (m *Memory) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.cursor]
}

// Len returns the number of history entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Navigate pushes path as a new entry, discarding any forward entries.
func (m *Memory) Navigate(path string) {
	path = content.NormalizePath(path)
	m.mu.Lock()
	prev := m.entries[m.cursor]
	m.entries = append(m.entries[:m.cursor+1], path)
	m.cursor++
	m.mu.Unlock()
	m.publish(Change{Path: path, Previous: prev, Kind: Push})
}

// Replace rewrites the active entry without growing history. Replacing with
// the current path is a no-op and publishes nothing.
func (m *Memory) Replace(path string) {
	path = content.NormalizePath(path)
	m.mu.Lock()
	prev := m.entries[m.cursor]
	if prev == path {
		m.mu.Unlock()
		return
	}
	m.entries[m.cursor] = path
	m.mu.Unlock()
	m.publish(Change{Path: path, Previous: prev, Kind: Replace})
}

// Back moves one entry back. It reports false at the start of history.
func (m *Memory) Back() bool {
	return m.move(-1)
}

// Forward moves one entry forward. It reports false at the end of history.
func (m *Memory) Forward() bool {
	return m.move(1)
}

func (m *Memory) move(delta int) bool {
	m.mu.Lock()
	target := m.cursor + delta
	if target < 0 || target >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	prev := m.entries[m.cursor]
	m.cursor = target
	path := m.entries[target]
	m.mu.Unlock()
	m.publish(Change{Path: path, Previous: prev, Kind: Pop})
	return true
}

// Subscribe registers fn for change notifications. Notifications are
// delivered synchronously on the mutating goroutine, outside the lock.
func (m *Memory) Subscribe(fn func(Change)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Memory) publish(ch Change) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	// Subscription order.
	slices.Sort(ids)
	for _, id := range ids {
		m.mu.Lock()
		fn, ok := m.subs[id]
		m.mu.Unlock()
		if ok {
			fn(ch)
		}
	}
}
