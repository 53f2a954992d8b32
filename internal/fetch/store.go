package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/taxguide/internal/content"
	"github.com/dgallion1/taxguide/internal/parser"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a parsed payload stays cached.
const DefaultTTL = 10 * time.Minute

// DefaultLoadTimeout bounds one shared load, retries included.
const DefaultLoadTimeout = 30 * time.Second

type entry struct {
	doc       *content.Document
	fetchedAt time.Time
}

// Store loads, parses and caches unit payloads. Concurrent requests for the
// same ref share one load.
type Store struct {
	src     Source
	popts   parser.Options
	ttl     time.Duration
	stats   *Stats
	log     *slog.Logger
	backoff func(attempt int) time.Duration
	now     func() time.Time
	timeout time.Duration

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]entry
	gens    map[string]uint64
}

type StoreOption func(*Store)

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithParserOptions(opts parser.Options) StoreOption {
	return func(s *Store) { s.popts = opts }
}

func WithStats(stats *Stats) StoreOption {
	return func(s *Store) {
		if stats != nil {
			s.stats = stats
		}
	}
}

func WithLogger(log *slog.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithLoadTimeout bounds a shared load. Loads are detached from the
// cancellation of whichever caller started them.
func WithLoadTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBackoff overrides the delay between retries.
func WithBackoff(fn func(attempt int) time.Duration) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.backoff = fn
		}
	}
}

func NewStore(src Source, opts ...StoreOption) *Store {
	s := &Store{
		src:     src,
		ttl:     DefaultTTL,
		stats:   NewStats(time.Hour),
		log:     slog.Default(),
		backoff: Backoff,
		now:     time.Now,
		timeout: DefaultLoadTimeout,
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document returns the parsed payload for ref, from cache while fresh.
// Callers waiting on the same ref share one load; a caller that gives up
// returns its own context error without cancelling the others.
func (s *Store) Document(ctx context.Context, ref string) (*content.Document, error) {
	key, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}
	if doc, ok := s.cached(key); ok {
		return doc, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		if doc, ok := s.cached(key); ok {
			return doc, nil
		}
		s.mu.Lock()
		gen := s.gens[key]
		s.mu.Unlock()

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		doc, err := s.fetch(loadCtx, key)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.gens[key] == gen {
			s.entries[key] = entry{doc: doc, fetchedAt: s.now()}
		}
		s.mu.Unlock()
		return doc, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*content.Document), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) cached(key string) (*content.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || s.now().Sub(e.fetchedAt) >= s.ttl {
		return nil, false
	}
	return e.doc, true
}

func (s *Store) fetch(ctx context.Context, ref string) (*content.Document, error) {
	p, err := parser.ForFile(ref, s.popts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var doc *content.Document
	var lastErr error
	for attempt := range MaxRetries {
		doc, lastErr = s.load(ctx, p, ref)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		s.log.Warn("retryable fetch error", "ref", ref, "attempt", attempt, "error", lastErr)
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(s.backoff(attempt)):
		case <-ctx.Done():
			s.stats.RecordFailure()
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		s.stats.RecordFailure()
		return nil, fmt.Errorf("fetch %s: %w", ref, lastErr)
	}
	s.stats.Record(time.Since(start))
	return doc, nil
}

func (s *Store) load(ctx context.Context, p parser.Parser, ref string) (*content.Document, error) {
	rc, err := s.src.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	doc, err := p.Parse(rc, ref)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return doc, nil
}

// Invalidate drops a cached payload. It reports whether one was cached.
// A load already in flight for ref does not repopulate the cache, and later
// callers start a fresh load.
func (s *Store) Invalidate(ref string) bool {
	key, err := cleanRef(ref)
	if err != nil {
		return false
	}
	s.mu.Lock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	s.gens[key]++
	s.mu.Unlock()
	s.group.Forget(key)
	return ok
}

// Cleanup evicts expired entries and returns how many were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if now.Sub(e.fetchedAt) >= s.ttl {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached payloads, fresh or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns the latency tracker.
func (s *Store) Stats() *Stats { return s.stats }
