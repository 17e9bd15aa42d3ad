package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/redirector/internal/middleware"
)

const testRateLimit = 3

func init() {
	gin.SetMode(gin.TestMode)
}

func newBotRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.BotFilter())
	r.GET("/x", func(c *gin.Context) {
		if middleware.IsBot(c) {
			c.String(http.StatusOK, "bot")
			return
		}
		c.String(http.StatusOK, "human")
	})
	return r
}

func TestBotFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"browser", "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0", "human"},
		{"googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1)", "bot"},
		{"slack preview", "Slackbot-LinkExpanding 1.0", "bot"},
		{"empty user agent", "", "bot"},
	}

	r := newBotRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
			req.Header.Set("User-Agent", tt.ua)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func newLimitedRouter(t *testing.T) *gin.Engine {
	t.Helper()

	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	r := gin.New()
	r.Use(middleware.RateLimiter(testRateLimit, time.Minute, done))
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func doFrom(r *gin.Engine, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	t.Parallel()

	r := newLimitedRouter(t)
	for i := range testRateLimit {
		require.Equal(t, http.StatusOK, doFrom(r, "1.2.3.4:1234").Code, "request %d", i)
	}

	w := doFrom(r, "1.2.3.4:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_PerIP(t *testing.T) {
	t.Parallel()

	r := newLimitedRouter(t)
	for range testRateLimit + 1 {
		doFrom(r, "1.2.3.4:1234")
	}

	assert.Equal(t, http.StatusOK, doFrom(r, "5.6.7.8:1234").Code)
}
