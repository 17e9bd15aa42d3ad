package handler_test

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/redirector/internal/handler"
	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"github.com/jonesrussell/north-cloud/redirector/internal/middleware"
	"github.com/jonesrussell/north-cloud/redirector/internal/planner"
	"github.com/jonesrussell/north-cloud/redirector/internal/resolver"
	"github.com/jonesrussell/north-cloud/redirector/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type provider map[planner.Purpose]map[string]planner.Template

func (p provider) TemplatesFor(purpose planner.Purpose) map[string]planner.Template {
	return p[purpose]
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveResolution(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func newTestPlanner(t *testing.T) *planner.Planner {
	t.Helper()

	p, err := planner.New(planner.Config{
		ConfirmationPagesEnabled: true,
		DefaultLanguage:          "en",
		ConfirmDelay:             time.Second,
		CacheMaxAge:              time.Minute,
	}, provider{
		planner.PurposeConfirm: {
			"en": template.Must(template.New("c").Parse(`en confirm {{.Link}}`)),
			"de": template.Must(template.New("c").Parse(`de confirm {{.Link}}`)),
		},
		planner.PurposeNotFound: {
			"en": template.Must(template.New("n").Parse(`not found {{.RedirectName}}`)),
		},
	})
	require.NoError(t, err)
	return p
}

type fixture struct {
	router   *gin.Engine
	store    *mapping.Store
	hits     *storage.Buffer
	observer *recordingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := mapping.NewStore()
	store.Publish(mapping.AliasMapping{
		"docs":           "https://docs.example.com",
		"go.example.com": "https://home.example.com",
		"team/handbook":  "https://handbook.example.com",
	}, time.Time{})

	f := &fixture{
		store:    store,
		hits:     storage.NewBuffer(10),
		observer: &recordingObserver{},
	}
	h := handler.NewRedirectHandler(store, newTestPlanner(t), resolver.Options{CaseInsensitive: true},
		f.hits, f.observer, infralogger.NewNop())

	f.router = gin.New()
	f.router.NoRoute(middleware.BotFilter(), h.Handle)
	return f
}

func (f *fixture) do(method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRedirectHandler_Redirects(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	w := f.do(http.MethodGet, "/DOCS/", nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://docs.example.com", w.Header().Get("Location"))
	assert.Equal(t, "max-age=60", w.Header().Get("Cache-Control"))
	assert.Equal(t, []string{"redirect"}, f.observer.outcomes)
	assert.Equal(t, 1, f.hits.Len())
}

func TestRedirectHandler_NestedAlias(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	w := f.do(http.MethodGet, "/team/handbook", nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://handbook.example.com", w.Header().Get("Location"))
}

func TestRedirectHandler_HostDefault(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Host = "go.example.com"
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://home.example.com", w.Header().Get("Location"))
	assert.Equal(t, []string{"host_default"}, f.observer.outcomes)
}

func TestRedirectHandler_ConfirmPage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	w := f.do(http.MethodGet, "/docs?confirm", map[string]string{"Accept-Language": "de-DE,de;q=0.9,en;q=0.5"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "de confirm https://docs.example.com", w.Body.String())
	assert.Empty(t, w.Header().Get("Location"))
	assert.Equal(t, []string{"confirm"}, f.observer.outcomes)
}

func TestRedirectHandler_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	w := f.do(http.MethodGet, "/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found /missing", w.Body.String())
	assert.Equal(t, []string{"not_found"}, f.observer.outcomes)
	assert.Equal(t, 0, f.hits.Len())
}

func TestRedirectHandler_BeforeFirstLoad(t *testing.T) {
	t.Parallel()

	h := handler.NewRedirectHandler(mapping.NewStore(), newTestPlanner(t), resolver.Options{}, nil, nil, infralogger.NewNop())

	resp, decision, err := h.Serve(handler.Request{Path: "/docs"})
	require.NoError(t, err)
	assert.Equal(t, resolver.KindNotFound, decision.Kind)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestRedirectHandler_SeesNewMapping(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/new", nil).Code)

	f.store.Publish(mapping.AliasMapping{"new": "https://new.example.com"}, time.Now())

	w := f.do(http.MethodGet, "/new", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://new.example.com", w.Header().Get("Location"))
}
