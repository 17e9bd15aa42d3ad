package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/redirector/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/redirector/internal/handler"
	"github.com/jonesrussell/north-cloud/redirector/internal/middleware"
)

// Routes collects the handlers NewServer wires. A nil Admin or Metrics, or an
// empty AdminJWTSecret, leaves that surface off.
type Routes struct {
	Redirect *handler.RedirectHandler
	Admin    *handler.AdminHandler
	Metrics  http.Handler

	AdminJWTSecret string

	RateLimit       bool
	MaxPerWindow    int
	RateLimitWindow time.Duration
	Done            <-chan struct{}
}

// SetupRoutes registers the admin API.
func SetupRoutes(router *gin.Engine, r Routes) {
	if r.Admin == nil {
		return
	}
	admin, ok := infragin.ProtectedGroup(router, "/admin", r.AdminJWTSecret)
	if !ok {
		return
	}
	admin.GET("/status", r.Admin.Status)
	admin.POST("/refresh", r.Admin.Refresh)
}

// redirectChain is the handler chain for every path no other route claims.
func redirectChain(r Routes) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{middleware.BotFilter()}
	if r.RateLimit {
		chain = append(chain, middleware.RateLimiter(r.MaxPerWindow, r.RateLimitWindow, r.Done))
	}
	return append(chain, r.Redirect.Handle)
}
