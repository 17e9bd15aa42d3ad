// Package handler serves redirects and the admin API.
package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	infralogger "github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/redirector/internal/domain"
	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"github.com/jonesrussell/north-cloud/redirector/internal/metrics"
	"github.com/jonesrussell/north-cloud/redirector/internal/middleware"
	"github.com/jonesrussell/north-cloud/redirector/internal/planner"
	"github.com/jonesrussell/north-cloud/redirector/internal/resolver"
	"github.com/jonesrussell/north-cloud/redirector/internal/storage"
)

// confirmParam requests the confirmation page when present, with any value.
const confirmParam = "confirm"

// uaHashLength is the number of hex characters kept of the user-agent hash.
const uaHashLength = 12

// Request is everything resolution needs from an HTTP request.
type Request struct {
	Path           string
	Host           string
	AcceptLanguage string
	Confirm        bool
}

// MappingReader is satisfied by *mapping.Store.
type MappingReader interface {
	Current() mapping.State
}

// ResolutionObserver is satisfied by *metrics.Metrics.
type ResolutionObserver interface {
	ObserveResolution(outcome string)
}

// RedirectHandler resolves every path not claimed by another route.
type RedirectHandler struct {
	store    MappingReader
	planner  *planner.Planner
	opts     resolver.Options
	hits     *storage.Buffer
	observer ResolutionObserver
	log      infralogger.Logger
}

// NewRedirectHandler wires the handler. hits and observer may be nil.
func NewRedirectHandler(
	store MappingReader,
	p *planner.Planner,
	opts resolver.Options,
	hits *storage.Buffer,
	observer ResolutionObserver,
	log infralogger.Logger,
) *RedirectHandler {
	return &RedirectHandler{
		store:    store,
		planner:  p,
		opts:     opts,
		hits:     hits,
		observer: observer,
		log:      log,
	}
}

// Serve resolves req against the current mapping and plans the response.
func (h *RedirectHandler) Serve(req Request) (planner.Response, resolver.Decision, error) {
	state := h.store.Current()
	decision := resolver.Resolve(req.Path, req.Host, state.Mapping, h.opts)

	resp, err := h.planner.Plan(decision, req.Confirm, req.AcceptLanguage)
	return resp, decision, err
}

// Handle is the gin entry point.
func (h *RedirectHandler) Handle(c *gin.Context) {
	_, confirm := c.GetQuery(confirmParam)
	req := Request{
		Path:           c.Request.URL.Path,
		Host:           c.Request.Host,
		AcceptLanguage: c.GetHeader("Accept-Language"),
		Confirm:        confirm,
	}

	ctx := infralogger.WithFields(c.Request.Context(), infralogger.String("path", req.Path))
	c.Request = c.Request.WithContext(ctx)

	resp, decision, err := h.Serve(req)
	if err != nil {
		infralogger.FromContext(ctx, h.log).Error("Failed to render response", infralogger.Error(err))
		h.observe(metrics.ResolutionError)
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	outcome := outcomeOf(decision, resp)
	h.observe(outcome)
	if decision.IsRedirect() {
		h.record(c, decision, outcome)
	}

	for k, vs := range resp.Headers {
		for _, v := range vs {
			c.Writer.Header().Add(k, v)
		}
	}
	if len(resp.Body) == 0 {
		c.Status(resp.Status)
		return
	}
	c.Data(resp.Status, resp.Headers.Get("Content-Type"), resp.Body)
}

func (h *RedirectHandler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveResolution(outcome)
	}
}

func (h *RedirectHandler) record(c *gin.Context, d resolver.Decision, outcome string) {
	hit := domain.RedirectHit{
		Alias:         d.Alias,
		Target:        d.Target,
		Outcome:       outcome,
		Host:          c.Request.Host,
		UserAgentHash: hashUA(c.Request.UserAgent()),
		IsBot:         middleware.IsBot(c),
		HitAt:         time.Now().UTC(),
	}
	if h.hits != nil && !h.hits.Send(hit) {
		h.log.Warn("Redirect hit buffer full, dropping hit", infralogger.String("alias", d.Alias))
	}
}

func outcomeOf(d resolver.Decision, resp planner.Response) string {
	switch {
	case d.Kind == resolver.KindNotFound:
		return metrics.ResolutionNotFound
	case resp.Status == http.StatusOK:
		return metrics.ResolutionConfirm
	case d.Kind == resolver.KindHostDefault:
		return metrics.ResolutionHostDefault
	default:
		return metrics.ResolutionRedirect
	}
}

func hashUA(ua string) string {
	if ua == "" {
		return ""
	}
	h := sha256.Sum256([]byte(ua))
	return hex.EncodeToString(h[:])[:uaHashLength]
}
