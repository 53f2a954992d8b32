package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/taxguide/internal/content"
)

// ErrWarmerStopped is returned by Submit after Stop.
var ErrWarmerStopped = errors.New("warmer stopped")

// Cache is the part of Store the warmer drives.
type Cache interface {
	Document(ctx context.Context, ref string) (*content.Document, error)
	Cleanup() int
}

// WarmerConfig sizes the prefetch pool.
type WarmerConfig struct {
	Workers         int
	QueueSize       int
	CleanupInterval time.Duration
}

// Progress counts prefetch outcomes since Start.
type Progress struct {
	Queued  int      `json:"queued"`
	Warm    int      `json:"warm"`
	Failed  int      `json:"failed"`
	Dropped int      `json:"dropped"`
	Pending int      `json:"pending"`
	Errors  []string `json:"errors"`
}

// Warmer prefetches payloads into the cache with a fixed worker pool and
// periodically evicts expired entries.
type Warmer struct {
	cache Cache
	queue chan string
	log   *slog.Logger
	cfg   WarmerConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	stopped  bool
	progress Progress
}

func NewWarmer(cache Cache, cfg WarmerConfig, log *slog.Logger) *Warmer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Warmer{
		cache: cache,
		queue: make(chan string, cfg.QueueSize),
		log:   log,
		cfg:   cfg,
	}
}

// Start launches worker goroutines and the cache cleanup ticker.
func (w *Warmer) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for range w.cfg.Workers {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case ref, ok := <-w.queue:
					if !ok {
						return
					}
					w.warm(workerCtx, ref)
				}
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n := w.cache.Cleanup(); n > 0 {
					w.log.Debug("evicted expired payloads", "count", n)
				}
			}
		}
	}()
}

func (w *Warmer) warm(ctx context.Context, ref string) {
	_, err := w.cache.Document(ctx, ref)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.progress.Failed++
		w.progress.Errors = append(w.progress.Errors, fmt.Sprintf("%s: %s", ref, err))
		w.log.Warn("prefetch failed", "ref", ref, "error", err)
		return
	}
	w.progress.Warm++
}

// Stop cancels in-flight work and waits for every goroutine to exit.
func (w *Warmer) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.queue)
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Submit queues one ref without blocking.
func (w *Warmer) Submit(ref string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrWarmerStopped
	}
	select {
	case w.queue <- ref:
		w.progress.Queued++
		return nil
	default:
		w.progress.Dropped++
		return fmt.Errorf("warm queue is full (%d)", w.cfg.QueueSize)
	}
}

// SubmitUnits queues the distinct DataRefs of units and returns how many
// were accepted.
func (w *Warmer) SubmitUnits(units []content.Unit) int {
	accepted := 0
	for _, ref := range DataRefs(units) {
		if err := w.Submit(ref); err != nil {
			w.log.Warn("prefetch not queued", "ref", ref, "error", err)
			continue
		}
		accepted++
	}
	return accepted
}

// Progress returns a JSON-safe copy of the counters.
func (w *Warmer) Progress() Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	errs := make([]string, len(w.progress.Errors))
	copy(errs, w.progress.Errors)
	p := w.progress
	p.Errors = errs
	p.Pending = len(w.queue)
	return p
}

// DataRefs returns the distinct non-empty DataRefs of units in order.
func DataRefs(units []content.Unit) []string {
	seen := make(map[string]bool, len(units))
	var refs []string
	for _, u := range units {
		if u.DataRef == "" || seen[u.DataRef] {
			continue
		}
		seen[u.DataRef] = true
		refs = append(refs, u.DataRef)
	}
	return refs
}
