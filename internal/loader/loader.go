// Package loader maintains the materialized window of a sequence: the units
// currently rendered in a view, starting at the entry unit and growing one
// unit at a time.
package loader

import (
	"errors"
	"sync"
	"time"

	"github.com/dgallion1/taxguide/internal/content"
)

const (
	// DefaultThreshold is the distance-to-bottom, in pixels, below which the
	// window is extended.
	DefaultThreshold = 300.0
	// DefaultSettleDelay suppresses repeated extension triggers.
	DefaultSettleDelay = 300 * time.Millisecond
)

var (
	ErrOutOfRange = errors.New("start index out of range")
	ErrClosed     = errors.New("loader closed")
)

// State mirrors the extending guard.
type State string

const (
	AtRest    State = "AT_REST"
	Extending State = "EXTENDING"
)

// Successors yields the unit following u in its owning sequence.
type Successors interface {
	Successor(u content.Unit) (content.Unit, bool)
}

// Timer is the part of *time.Timer the loader uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It matches time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

type Option func(*Loader)

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.settle = d
		}
	}
}

// WithAfterFunc replaces the timer source, mainly for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(l *Loader) {
		if fn != nil {
			l.afterFunc = fn
		}
	}
}

// Loader owns one view's window. The window never shrinks except on
// Initialize, holds no duplicates and is always a contiguous run of the
// owning sequence.
type Loader struct {
	mu sync.Mutex

	src       Successors
	settle    time.Duration
	afterFunc AfterFunc

	units     []content.Unit
	loaded    map[string]bool
	extending bool
	gen       uint64
	timer     Timer
	closed    bool
}

func New(src Successors, opts ...Option) *Loader {
	l := &Loader{
		src:    src,
		settle: DefaultSettleDelay,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		loaded: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize replaces the window with seq.Units[start:]. The whole remaining
// suffix is materialized eagerly; extension only matters when the window
// falls short of its sequence. Any pending settle timer is cancelled.
func (l *Loader) Initialize(seq content.Sequence, start int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	l.stopTimerLocked()
	l.gen++
	l.extending = false
	l.units = nil
	l.loaded = make(map[string]bool)

	if start < 0 || start >= len(seq.Units) {
		return ErrOutOfRange
	}
	for _, u := range seq.Units[start:] {
		if l.loaded[u.Path] {
			break
		}
		l.units = append(l.units, u)
		l.loaded[u.Path] = true
	}
	return nil
}

// Clear empties the window and cancels any pending settle timer. It is the
// state of a view showing a single unsequenced unit.
func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopTimerLocked()
	l.gen++
	l.extending = false
	l.units = nil
	l.loaded = make(map[string]bool)
}

// ExtendIfNeeded appends the successor of the last loaded unit when the
// viewport is within threshold pixels of the bottom. A threshold <= 0 means
// DefaultThreshold. While a previous extension is settling, calls are no-ops.
// It reports the appended unit, if any.
func (l *Loader) ExtendIfNeeded(distanceToBottom, threshold float64) (content.Unit, bool) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if distanceToBottom >= threshold {
		return content.Unit{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.extending || len(l.units) == 0 || l.src == nil {
		return content.Unit{}, false
	}
	next, ok := l.src.Successor(l.units[len(l.units)-1])
	if !ok || l.loaded[next.Path] {
		return content.Unit{}, false
	}

	l.units = append(l.units, next)
	l.loaded[next.Path] = true
	l.extending = true

	gen := l.gen
	l.timer = l.afterFunc(l.settle, func() { l.settled(gen) })
	return next, true
}

func (l *Loader) settled(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen || l.closed {
		return
	}
	l.extending = false
	l.timer = nil
}

// Close cancels the settle timer. The loader is inert afterwards.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopTimerLocked()
	l.closed = true
	l.extending = false
}

func (l *Loader) stopTimerLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// Units returns a copy of the window.
func (l *Loader) Units() []content.Unit {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]content.Unit, len(l.units))
	copy(out, l.units)
	return out
}

// Contains reports whether path is materialized.
func (l *Loader) Contains(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[content.NormalizePath(path)]
}

// Unit returns the materialized unit at path.
func (l *Loader) Unit(path string) (content.Unit, bool) {
	path = content.NormalizePath(path)
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded[path] {
		return content.Unit{}, false
	}
	for _, u := range l.units {
		if u.Path == path {
			return u, true
		}
	}
	return content.Unit{}, false
}

// First returns the entry unit of the window.
func (l *Loader) First() (content.Unit, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.units) == 0 {
		return content.Unit{}, false
	}
	return l.units[0], true
}

// State reports AtRest or Extending.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.extending {
		return Extending
	}
	return AtRest
}
