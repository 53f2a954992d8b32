package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/taxguide/internal/api"
	"github.com/dgallion1/taxguide/internal/config"
	"github.com/dgallion1/taxguide/internal/fetch"
	"github.com/dgallion1/taxguide/internal/parser"
	"github.com/dgallion1/taxguide/internal/registry"
	"github.com/dgallion1/taxguide/internal/render"
	"github.com/dgallion1/taxguide/internal/view"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// The catalog is fatal on any duplicate or malformed entry.
	reg, err := loadRegistry(cfg)
	if err != nil {
		log.Error("invalid content registry", "error", err)
		os.Exit(1)
	}
	log.Info("registry loaded", "sequences", len(reg.Sequences()), "units", len(reg.Units()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Payload source and cache.
	var src fetch.Source
	var dirSrc *fetch.DirSource
	var httpSrc *fetch.HTTPSource
	if cfg.ContentBaseURL != "" {
		httpSrc = fetch.NewHTTPSource(cfg.ContentBaseURL, cfg.ContentAPIKey, cfg.FetchTimeout)
		src = httpSrc
	} else {
		dirSrc = fetch.NewDirSource(cfg.ContentDir)
		src = dirSrc
	}
	store := fetch.NewStore(src,
		fetch.WithTTL(cfg.CacheTTL),
		fetch.WithParserOptions(parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext}),
		fetch.WithLogger(log),
		fetch.WithLoadTimeout(time.Duration(fetch.MaxRetries) * cfg.FetchTimeout),
	)

	warmer := fetch.NewWarmer(store, fetch.WarmerConfig{
		Workers:   cfg.WarmWorkers,
		QueueSize: cfg.WarmQueueSize,
	}, log)
	warmer.Start(ctx)
	queued := warmer.SubmitUnits(reg.Units())
	log.Info("prefetch queued", "refs", queued)

	var watcher *fetch.Watcher
	if dirSrc != nil && cfg.WatchContent {
		watcher, err = fetch.NewWatcher(dirSrc, store, log)
		if err != nil {
			log.Warn("content watcher unavailable", "error", err)
		} else {
			watcher.OnChange(func(ref string) { _ = warmer.Submit(ref) })
			if err := watcher.Start(ctx); err != nil {
				log.Warn("content watcher failed to start", "error", err)
				watcher.Stop()
				watcher = nil
			}
		}
	}

	// Active views, evicted when idle.
	views := view.NewStore(cfg.ViewTTL)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := views.Cleanup(); n > 0 {
					log.Info("evicted idle views", "count", n)
				}
			}
		}
	}()

	// Initialize HTTP server.
	srv := api.NewServer(reg, views, render.NewDispatcher(store, log), store.Stats(), warmer, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if watcher != nil {
			watcher.Stop()
		}
		warmer.Stop()
		views.Close()
		if httpSrc != nil {
			httpSrc.Close()
		}
		cancel()
	}()

	log.Info("starting taxguide", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}

func loadRegistry(cfg config.Config) (*registry.Registry, error) {
	if cfg.RegistryFile != "" {
		return registry.LoadFile(cfg.RegistryFile)
	}
	return registry.Default()
}
