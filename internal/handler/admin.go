package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/redirector/internal/refresh"
)

// Refresher is satisfied by *refresh.Scheduler.
type Refresher interface {
	TriggerRefresh() bool
	State() refresh.State
	Interval() time.Duration
}

// StatusResponse is the GET /admin/status body.
type StatusResponse struct {
	Scheduler       string     `json:"scheduler"`
	Loaded          bool       `json:"loaded"`
	Entries         int        `json:"entries"`
	LastModified    *time.Time `json:"last_modified,omitempty"`
	LastCheckedAt   *time.Time `json:"last_checked_at,omitempty"`
	IntervalSeconds int64      `json:"interval_seconds"`
	Languages       []string   `json:"languages"`
	SourceBreaker   string     `json:"source_breaker,omitempty"`
}

// AdminHandler reports mapping state and queues manual refreshes.
type AdminHandler struct {
	store     MappingReader
	refresher Refresher
	languages []string
	breaker   func() string
	limiter   *rate.Limiter
	every     time.Duration
}

// NewAdminHandler wires the handler. breaker may be nil.
func NewAdminHandler(store MappingReader, refresher Refresher, languages []string, breaker func() string) *AdminHandler {
	if languages == nil {
		languages = []string{}
	}
	return &AdminHandler{store: store, refresher: refresher, languages: languages, breaker: breaker}
}

// WithRefreshLimit allows one manual refresh per every. Zero or less removes
// the limit.
func (h *AdminHandler) WithRefreshLimit(every time.Duration) *AdminHandler {
	if every <= 0 {
		h.limiter = nil
		return h
	}
	h.limiter = rate.NewLimiter(rate.Every(every), 1)
	h.every = every
	return h
}

// Status handles GET /admin/status.
func (h *AdminHandler) Status(c *gin.Context) {
	state := h.store.Current()

	resp := StatusResponse{
		Scheduler:       h.refresher.State().String(),
		Loaded:          state.Loaded(),
		Entries:         state.Mapping.Len(),
		LastModified:    timePtr(state.LastModified),
		LastCheckedAt:   timePtr(state.LastCheckedAt),
		IntervalSeconds: int64(h.refresher.Interval() / time.Second),
		Languages:       h.languages,
	}
	if h.breaker != nil {
		resp.SourceBreaker = h.breaker()
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /admin/refresh. A refresh already queued is not an
// error; the response says whether this call queued a new one.
func (h *AdminHandler) Refresh(c *gin.Context) {
	if h.refresher.State() == refresh.StateStopped {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler stopped"})
		return
	}
	if h.limiter != nil && !h.limiter.Allow() {
		c.Header("Retry-After", strconv.FormatInt(int64(h.every.Seconds()), 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "refresh requested too recently"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": h.refresher.TriggerRefresh()})
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
