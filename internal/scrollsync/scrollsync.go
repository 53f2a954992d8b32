// Package scrollsync keeps the current unit, and the visible route, in step
// with the viewport while the user scrolls through a materialized window.
package scrollsync

import (
	"log/slog"

	"github.com/dgallion1/taxguide/internal/content"
	"github.com/dgallion1/taxguide/internal/loader"
)

// Boundary is the viewport-relative extent of one rendered unit marker.
type Boundary struct {
	Path   string  `json:"path"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Band is the activation band near the top of the viewport. A unit is
// current when its top edge is at or above Top and its bottom edge is
// below Bottom, i.e. it straddles the band.
type Band struct {
	Top    float64
	Bottom float64
}

// DefaultBand is the 150px/100px band.
var DefaultBand = Band{Top: 150, Bottom: 100}

// Contains reports whether b qualifies as the current unit.
func (band Band) Contains(b Boundary) bool {
	return b.Top <= band.Top && b.Bottom > band.Bottom
}

// Tick is one scroll notification.
type Tick struct {
	Boundaries       []Boundary `json:"boundaries"`
	DistanceToBottom float64    `json:"distance_to_bottom"`
}

// Result reports what a tick changed.
type Result struct {
	Current  *content.Unit // Current unit after the tick (nil before any)
	Changed  bool          // Current unit changed and the route was replaced
	Extended *content.Unit // Unit appended to the window, if any
}

// Window is the loader surface the synchronizer depends on.
type Window interface {
	Unit(path string) (content.Unit, bool)
	ExtendIfNeeded(distanceToBottom, threshold float64) (content.Unit, bool)
}

// Replacer performs history-neutral route updates.
type Replacer interface {
	Replace(path string)
}

type Option func(*Synchronizer)

func WithBand(b Band) Option {
	return func(s *Synchronizer) { s.band = b }
}

// WithThreshold sets the extension distance passed to the loader.
func WithThreshold(px float64) Option {
	return func(s *Synchronizer) { s.threshold = px }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Synchronizer) {
		if log != nil {
			s.log = log
		}
	}
}

// Synchronizer owns the CurrentPosition of one view.
type Synchronizer struct {
	window    Window
	route     Replacer
	band      Band
	threshold float64
	log       *slog.Logger

	current *content.Unit
}

func New(window Window, route Replacer, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		window:    window,
		route:     route,
		band:      DefaultBand,
		threshold: loader.DefaultThreshold,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnScroll recomputes the current unit from the boundaries, replaces the
// route when it changed, then gives the loader a chance to extend.
func (s *Synchronizer) OnScroll(t Tick) Result {
	var res Result

	if u, ok := s.scan(t.Boundaries); ok {
		if s.current == nil || s.current.Path != u.Path {
			s.current = &u
			res.Changed = true
			s.route.Replace(u.Path)
			s.log.Debug("current unit changed", "path", u.Path, "key", u.Key)
		}
	}

	if next, ok := s.window.ExtendIfNeeded(t.DistanceToBottom, s.threshold); ok {
		res.Extended = &next
		s.log.Debug("window extended", "path", next.Path)
	}

	res.Current = s.Current()
	return res
}

// scan returns the first materialized unit, in document order, whose
// boundary sits in the activation band.
func (s *Synchronizer) scan(bs []Boundary) (content.Unit, bool) {
	for _, b := range bs {
		if !s.band.Contains(b) {
			continue
		}
		if u, ok := s.window.Unit(b.Path); ok {
			return u, true
		}
	}
	return content.Unit{}, false
}

// Reset sets the current unit without touching the route; used when the
// view re-initializes its window. A nil u clears the position.
func (s *Synchronizer) Reset(u *content.Unit) {
	if u == nil {
		s.current = nil
		return
	}
	c := *u
	s.current = &c
}

// Current returns a copy of the current unit, or nil.
func (s *Synchronizer) Current() *content.Unit {
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}
