// Package view binds the resolver, loader and synchronizer to one router for
// the lifetime of an active view.
package view

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/taxguide/internal/content"
	"github.com/dgallion1/taxguide/internal/loader"
	"github.com/dgallion1/taxguide/internal/router"
	"github.com/dgallion1/taxguide/internal/scrollsync"
	"github.com/dgallion1/taxguide/internal/sequence"
)

// History is the router surface a view needs. router.Memory satisfies it.
type History interface {
	router.Router
	Len() int
}

// Options tune the loader and synchronizer of a view.
type Options struct {
	Band        scrollsync.Band
	Threshold   float64
	SettleDelay time.Duration
	AfterFunc   loader.AfterFunc
	Log         *slog.Logger
}

// View is one active reading session. Its window and current position are
// owned exclusively by it; the mutex only serializes callers arriving from
// different HTTP requests.
type View struct {
	mu sync.Mutex

	id       string
	resolver *sequence.Resolver
	history  History
	loader   *loader.Loader
	sync     *scrollsync.Synchronizer
	log      *slog.Logger

	location    sequence.Location
	unsubscribe func()
	unmounted   bool
	lastSeen    time.Time
}

// Mount resolves the history's current route, materializes the window and
// starts listening for route changes.
func Mount(id string, resolver *sequence.Resolver, history History, opts Options) *View {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("view_id", id)

	loaderOpts := []loader.Option{loader.WithSettleDelay(opts.SettleDelay)}
	if opts.AfterFunc != nil {
		loaderOpts = append(loaderOpts, loader.WithAfterFunc(opts.AfterFunc))
	}
	l := loader.New(resolver.Registry(), loaderOpts...)

	syncOpts := []scrollsync.Option{scrollsync.WithLogger(log)}
	if opts.Band != (scrollsync.Band{}) {
		syncOpts = append(syncOpts, scrollsync.WithBand(opts.Band))
	}
	if opts.Threshold > 0 {
		syncOpts = append(syncOpts, scrollsync.WithThreshold(opts.Threshold))
	}

	v := &View{
		id:       id,
		resolver: resolver,
		history:  history,
		loader:   l,
		sync:     scrollsync.New(l, history, syncOpts...),
		log:      log,
		lastSeen: time.Now(),
	}
	v.reset(resolver.LocateCurrent(history))
	v.unsubscribe = history.Subscribe(v.onRouteChange)
	log.Info("view mounted", "path", v.location.Path, "sequenced", v.location.Sequenced)
	return v
}

// ID returns the view identifier.
func (v *View) ID() string { return v.id }

// reset re-initializes the window for loc. Callers hold no lock requirement
// beyond exclusive ownership of v.
func (v *View) reset(loc sequence.Location) {
	prev := v.location
	v.location = loc
	if !loc.Sequenced {
		v.loader.Clear()
		v.sync.Reset(nil)
		v.log.Debug("route not sequenced; single-unit fallback", "path", loc.Path)
		return
	}
	if err := v.loader.Initialize(*loc.Sequence, loc.Index); err != nil {
		v.log.Warn("initialize window", "path", loc.Path, "error", err)
		v.sync.Reset(nil)
		return
	}
	v.sync.Reset(loc.Current)
	if prev.Sequenced && !sequence.SameSequence(prev, loc) {
		v.log.Debug("sequence changed", "from", prev.Sequence.ID, "to", loc.Sequence.ID)
	}
}

// onRouteChange runs synchronously inside the router's publish. Every router
// mutation goes through a View method that already holds v.mu.
func (v *View) onRouteChange(ch router.Change) {
	switch ch.Kind {
	case router.Replace:
		if cur := v.sync.Current(); cur != nil && cur.Path == ch.Path {
			// Our own history-neutral update.
			return
		}
		if u, ok := v.loader.Unit(ch.Path); ok {
			v.sync.Reset(&u)
			v.location = v.resolver.Locate(ch.Path)
			return
		}
		v.reset(v.resolver.Locate(ch.Path))
	default:
		v.reset(v.resolver.Locate(ch.Path))
	}
}

// Scroll handles one scroll tick.
func (v *View) Scroll(t scrollsync.Tick) (scrollsync.Result, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		return scrollsync.Result{}, false
	}
	v.lastSeen = time.Now()
	res := v.sync.OnScroll(t)
	if res.Changed && res.Current != nil {
		v.location = v.resolver.Locate(res.Current.Path)
	}
	return res, true
}

// Open performs an explicit navigation (a click) to path. It pushes a
// history entry and resets the window.
func (v *View) Open(path string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		return false
	}
	v.lastSeen = time.Now()
	v.history.Navigate(path)
	return true
}

// Back pops one history entry if the history supports it.
func (v *View) Back() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		return false
	}
	v.lastSeen = time.Now()
	b, ok := v.history.(interface{ Back() bool })
	if !ok {
		return false
	}
	return b.Back()
}

// Unmount tears the view down: the settle timer is cancelled and the router
// subscription dropped. It is safe to call more than once.
func (v *View) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		return
	}
	v.unmounted = true
	v.unsubscribe()
	v.loader.Close()
	v.log.Info("view unmounted")
}

// LastSeen returns when the view last handled a request.
func (v *View) LastSeen() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

// Snapshot is a read-only, JSON-safe copy of view state.
type Snapshot struct {
	ID         string         `json:"view_id"`
	Route      string         `json:"route"`
	Sequenced  bool           `json:"sequenced"`
	SequenceID string         `json:"sequence_id,omitempty"`
	Current    *content.Unit  `json:"current,omitempty"`
	Next       *content.Unit  `json:"next,omitempty"`
	Prev       *content.Unit  `json:"prev,omitempty"`
	Loaded     []content.Unit `json:"loaded"`
	State      loader.State   `json:"state"`
	HistoryLen int            `json:"history_length"`
	Unmounted  bool           `json:"unmounted,omitempty"`
}

// Snapshot returns a copy of the view state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Window returns the snapshot and the materialized window read under one
// lock, so the units always match snap.Loaded.
func (v *View) Window() (Snapshot, []content.Unit) {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := v.snapshotLocked()
	units := make([]content.Unit, len(snap.Loaded))
	copy(units, snap.Loaded)
	return snap, units
}

func (v *View) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:         v.id,
		Route:      v.history.Current(),
		Sequenced:  v.location.Sequenced,
		Current:    v.sync.Current(),
		Loaded:     v.loader.Units(),
		State:      v.loader.State(),
		HistoryLen: v.history.Len(),
		Unmounted:  v.unmounted,
	}
	if v.location.Sequenced {
		snap.SequenceID = v.location.Sequence.ID
		snap.Next = copyUnit(v.location.Next)
		snap.Prev = copyUnit(v.location.Prev)
	}
	return snap
}

func copyUnit(u *content.Unit) *content.Unit {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
