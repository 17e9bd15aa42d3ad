// Package bootstrap handles application initialization and lifecycle management
// for the redirector service.
package bootstrap

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	infralogger "github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/redirector/infrastructure/profiling"
	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"github.com/jonesrussell/north-cloud/redirector/internal/metrics"
	"github.com/jonesrussell/north-cloud/redirector/internal/normalize"
	"github.com/jonesrussell/north-cloud/redirector/internal/planner"
	"github.com/jonesrussell/north-cloud/redirector/internal/refresh"
	"github.com/jonesrussell/north-cloud/redirector/internal/source"
)

const version = "dev"

// Start initializes and runs the redirector until a shutdown signal.
func Start() error {
	// Phase 0: Load config and create logger
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Phase 1: Profiling (opt-in via env)
	profiling.StartPprofServer(log)
	profiler, err := profiling.StartPyroscope(cfg.Service.Name, version, log)
	if err != nil {
		log.Warn("Pyroscope disabled", infralogger.Error(err))
	}
	defer func() { _ = profiler.Stop() }()

	ctx := context.Background()
	m := metrics.New()

	// Phase 2: Templates and mapping source
	var (
		p   *planner.Planner
		src *source.Guarded
	)
	// The source's clients outlive the group, so they get ctx rather than
	// the group context.
	var g errgroup.Group
	g.Go(func() error {
		var planErr error
		p, planErr = SetupPlanner(cfg)
		return planErr
	})
	g.Go(func() error {
		var srcErr error
		src, srcErr = SetupSource(ctx, cfg, m, log)
		return srcErr
	})
	if err = g.Wait(); err != nil {
		return err
	}

	// Phase 3: Optional hit recording and refresh events
	hits, err := SetupHitRecording(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up hit recording: %w", err)
	}
	defer hits.Close()

	publisher := SetupEventPublisher(ctx, cfg, log)
	defer publisher.Wait()

	// Phase 4: Mapping store and refresh scheduler
	store := mapping.NewStore()
	pipeline := normalize.NewPipeline()
	normalize.RegisterDefaults(pipeline, !cfg.Redirect.CaseSensitivePaths)

	opts := []refresh.Option{refresh.WithObserver(m)}
	if publisher != nil {
		opts = append(opts, refresh.WithObserver(publisher))
	}
	scheduler := refresh.New(src, pipeline, store, log,
		refresh.Config{
			Interval:     cfg.RefreshInterval(),
			CycleTimeout: cfg.Source.CycleTimeout,
		},
		opts...,
	)
	if err = scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start refresh scheduler: %w", err)
	}
	defer scheduler.Stop()

	// Phase 5: HTTP server
	done := make(chan struct{})
	defer close(done)

	server := SetupHTTPServer(cfg, ServerDeps{
		Store:     store,
		Planner:   p,
		Scheduler: scheduler,
		Source:    src,
		Hits:      hits,
		Metrics:   m,
		Done:      done,
	}, log)

	log.Info("Starting HTTP server",
		infralogger.Int("port", cfg.Service.Port),
		infralogger.String("source", cfg.Source.Type),
	)

	if runErr := server.Run(); runErr != nil {
		log.Error("Server error", infralogger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Server exited")
	return nil
}
