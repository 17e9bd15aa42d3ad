package bootstrap

import (
	"context"
	"errors"
	"time"

	infragin "github.com/jonesrussell/north-cloud/redirector/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/redirector/internal/api"
	"github.com/jonesrussell/north-cloud/redirector/internal/config"
	"github.com/jonesrussell/north-cloud/redirector/internal/handler"
	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"github.com/jonesrussell/north-cloud/redirector/internal/metrics"
	"github.com/jonesrussell/north-cloud/redirector/internal/planner"
	"github.com/jonesrussell/north-cloud/redirector/internal/refresh"
	"github.com/jonesrussell/north-cloud/redirector/internal/resolver"
	"github.com/jonesrussell/north-cloud/redirector/internal/source"
)

const healthPingTimeout = 2 * time.Second

var errMappingNotLoaded = errors.New("no mapping loaded yet")

// ServerDeps are the runtime pieces the HTTP layer needs.
type ServerDeps struct {
	Store     *mapping.Store
	Planner   *planner.Planner
	Scheduler *refresh.Scheduler
	Source    *source.Guarded
	Hits      *HitRecording
	Metrics   *metrics.Metrics
	Done      <-chan struct{}
}

// SetupHTTPServer creates and configures the HTTP server.
func SetupHTTPServer(cfg *config.Config, deps ServerDeps, log infralogger.Logger) *infragin.Server {
	redirect := handler.NewRedirectHandler(
		deps.Store,
		deps.Planner,
		resolver.Options{CaseInsensitive: !cfg.Redirect.CaseSensitivePaths},
		deps.Hits.Buffer(),
		deps.Metrics,
		log,
	)
	admin := handler.NewAdminHandler(deps.Store, deps.Scheduler, deps.Planner.Languages(), func() string {
		return deps.Source.BreakerState().String()
	}).WithRefreshLimit(cfg.Admin.RefreshMinInterval)

	if cfg.Admin.JWTSecret == "" {
		log.Info("Admin API disabled, no JWT secret configured")
	}

	routes := api.Routes{
		Redirect:        redirect,
		Admin:           admin,
		Metrics:         deps.Metrics.Handler(),
		AdminJWTSecret:  cfg.Admin.JWTSecret,
		RateLimit:       cfg.RateLimit.Enabled,
		MaxPerWindow:    cfg.RateLimit.MaxRequestsPerMinute,
		RateLimitWindow: cfg.RateLimitWindow(),
		Done:            deps.Done,
	}

	return api.NewServer(cfg, routes, healthChecks(deps), log)
}

func healthChecks(deps ServerDeps) map[string]infragin.HealthChecker {
	checks := map[string]infragin.HealthChecker{
		// An empty mapping still serves 404s, so the service is degraded, not down.
		"mapping": infragin.PingChecker("mapping", infragin.HealthStatusDegraded, func() error {
			if !deps.Store.Current().Loaded() {
				return errMappingNotLoaded
			}
			return nil
		}),
	}

	if db := deps.Hits.DB(); db != nil {
		checks["database"] = infragin.PingChecker("database", infragin.HealthStatusDegraded, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthPingTimeout)
			defer cancel()
			return db.PingContext(ctx)
		})
	}
	return checks
}
