package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"hls-audio-server/internal/hls"
	"hls-audio-server/internal/platform/config"
	"hls-audio-server/internal/platform/logger"
	"hls-audio-server/internal/platform/metrics"
	"hls-audio-server/internal/source"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
)

func main() {
	_ = config.Load()

	settings, err := config.Parse("hls-server", os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	log := logger.New(settings.LogLevel, settings.LogFormat)

	producer, err := newProducer(settings)
	if err != nil {
		log.Error("source error", "error", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	met := metrics.New()
	state := hls.NewSharedState(settings.Stream, clock, nil)
	coord := hls.NewCoordinator(settings.Stream, state, producer, clock, log, met)
	coord.FailurePolicy = settings.ProducerFailure
	h := hls.NewHandler(settings.Stream, state, log)

	srv := &http.Server{Addr: settings.Addr, Handler: newRouter(h, state, coord.Purger(), log, met)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- coord.Run(ctx)
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"addr", settings.Addr,
		"playlist", settings.Stream.BaseURI+strings.TrimPrefix(settings.Stream.PlaylistPath, "/"),
		"segments_to_keep", settings.Stream.SegmentsToKeep,
		"segment_duration", settings.Stream.SegmentDuration,
		"source_dir", settings.SourceDir,
		"log_level", settings.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigCh:
		log.Info("shutdown signal received, draining connections")
	case err := <-loopDone:
		// Only the abort failure policy ends the loop on its own.
		log.Error("segment loop stopped", "error", err)
		exitCode = 1
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
	os.Exit(exitCode)
}

func newProducer(s config.Settings) (hls.Producer, error) {
	if s.SourceDir == "" {
		return source.Silence{}, nil
	}
	return source.NewDir(s.SourceDir, s.Stream.FileExtension)
}

// newRouter wires the playlist and segment routes behind logging and metrics middleware.
func newRouter(h *hls.Handler, state *hls.SharedState, purger *hls.PurgeScheduler, log *slog.Logger, met *metrics.Metrics) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			snap := state.Snapshot()
			met.SetSegmentStoreSize(snap.StoreLen)
			met.SetWindowSegments(len(snap.Segments))
			met.SetMediaSequence(snap.MediaSequence)
			met.SetPresentationTimestamp(snap.Timestamp)
			met.SetPendingPurges(len(purger.Pending()))
		}).ServeHTTP(w, r)
	})
	h.Register(r)
	return r
}
