// Package api assembles the redirector's HTTP server.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/redirector/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/redirector/internal/config"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// NewServer creates the HTTP server. Health, metrics and admin paths shadow
// any alias with the same name.
func NewServer(
	cfg *config.Config,
	routes Routes,
	checks map[string]infragin.HealthChecker,
	log infralogger.Logger,
) *infragin.Server {
	b := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithTimeouts(defaultReadTimeout, defaultWriteTimeout, defaultIdleTimeout).
		WithMetrics(routes.Metrics)

	for name, check := range checks {
		b = b.WithHealthCheck(name, check)
	}

	return b.
		WithRoutes(func(router *gin.Engine) {
			SetupRoutes(router, routes)
		}).
		WithFallback(redirectChain(routes)...).
		Build()
}
