package fetch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgallion1/taxguide/internal/parser"
	"github.com/fsnotify/fsnotify"
)

// Invalidator drops cached payloads.
type Invalidator interface {
	Invalidate(ref string) bool
}

// Watcher invalidates cached payloads when files under a DirSource change.
type Watcher struct {
	src      *DirSource
	cache    Invalidator
	log      *slog.Logger
	fsw      *fsnotify.Watcher
	onChange func(ref string)

	started  bool
	stopOnce sync.Once
	done     chan struct{}
}

func NewWatcher(src *DirSource, cache Invalidator, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		src:   src,
		cache: cache,
		log:   log,
		fsw:   fsw,
		done:  make(chan struct{}),
	}, nil
}

// OnChange registers a callback for refs that were written or created.
// Must be called before Start.
func (w *Watcher) OnChange(fn func(ref string)) {
	w.onChange = fn
}

// Start adds watches for the whole content tree and begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.src.Root()); err != nil {
		return err
	}
	w.started = true
	go w.processEvents(ctx)
	w.log.Info("content watcher started", "root", w.src.Root())
	return nil
}

// Stop closes the underlying watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.fsw.Close()
		if w.started {
			<-w.done
		}
	})
	return err
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if base := d.Name(); strings.HasPrefix(base, ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addWatchesRecursive(event.Name); err != nil {
				w.log.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if event.Op == fsnotify.Chmod {
		return
	}

	ref, ok := w.src.Ref(event.Name)
	if !ok || !parser.IsSupported(ref) {
		return
	}
	dropped := w.cache.Invalidate(ref)
	w.log.Debug("payload changed", "ref", ref, "op", event.Op.String(), "evicted", dropped)

	if w.onChange != nil && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
		w.onChange(ref)
	}
}
