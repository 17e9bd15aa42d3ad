package gin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/north-cloud/redirector/infrastructure/jwt"
	"github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
)

// ServerBuilder assembles a Server fluently.
type ServerBuilder struct {
	config       *Config
	logger       logger.Logger
	setupRoutes  func(*gin.Engine)
	healthChecks map[string]HealthChecker
	metrics      http.Handler
	fallback     []gin.HandlerFunc
}

// NewServerBuilder starts a builder for serviceName listening on port.
func NewServerBuilder(serviceName string, port int) *ServerBuilder {
	return &ServerBuilder{
		config:       NewConfig(serviceName, port),
		healthChecks: make(map[string]HealthChecker),
	}
}

func (b *ServerBuilder) WithLogger(log logger.Logger) *ServerBuilder {
	b.logger = log
	return b
}

func (b *ServerBuilder) WithDebug(debug bool) *ServerBuilder {
	b.config.Debug = debug
	return b
}

func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.config.ServiceVersion = version
	return b
}

func (b *ServerBuilder) WithTimeouts(read, write, idle time.Duration) *ServerBuilder {
	b.config.ReadTimeout = read
	b.config.WriteTimeout = write
	b.config.IdleTimeout = idle
	return b
}

// WithHealthCheck adds a named check reported under /health.
func (b *ServerBuilder) WithHealthCheck(name string, checker HealthChecker) *ServerBuilder {
	b.healthChecks[name] = checker
	return b
}

// WithMetrics serves h on GET /metrics. A nil handler registers nothing.
func (b *ServerBuilder) WithMetrics(h http.Handler) *ServerBuilder {
	b.metrics = h
	return b
}

func (b *ServerBuilder) WithRoutes(setupRoutes func(*gin.Engine)) *ServerBuilder {
	b.setupRoutes = setupRoutes
	return b
}

// WithFallback handles every request no registered route matches, whatever
// its method.
func (b *ServerBuilder) WithFallback(handlers ...gin.HandlerFunc) *ServerBuilder {
	b.fallback = handlers
	return b
}

// Build registers health and metrics ahead of the service routes, so those
// paths always win over the fallback.
func (b *ServerBuilder) Build() *Server {
	if b.logger == nil {
		b.logger = logger.Must(logger.Config{Development: b.config.Debug})
	}

	setup := func(router *gin.Engine) {
		RegisterHealthRoutes(router, HealthOptions{
			ServiceName:    b.config.ServiceName,
			ServiceVersion: b.config.ServiceVersion,
			Checks:         b.healthChecks,
		})
		if b.metrics != nil {
			router.GET("/metrics", gin.WrapH(b.metrics))
		}
		if b.setupRoutes != nil {
			b.setupRoutes(router)
		}
		if len(b.fallback) > 0 {
			router.NoRoute(b.fallback...)
		}
	}

	return NewServer(b.config, b.logger, setup)
}

// ProtectedGroup returns a router group guarded by HMAC JWT auth. It reports
// false, and registers nothing, when jwtSecret is empty.
func ProtectedGroup(router *gin.Engine, path, jwtSecret string) (*gin.RouterGroup, bool) {
	if jwtSecret == "" {
		return nil, false
	}
	group := router.Group(path)
	group.Use(jwt.Middleware(jwtSecret))
	return group, true
}
