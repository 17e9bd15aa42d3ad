// Package planner turns a resolver decision into an HTTP response.
package planner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/jonesrussell/north-cloud/redirector/internal/acceptlang"
	"github.com/jonesrussell/north-cloud/redirector/internal/resolver"
)

// Purpose names a family of templates.
type Purpose string

const (
	PurposeConfirm  Purpose = "confirm"
	PurposeNotFound Purpose = "not-found"
)

const htmlContentType = "text/html; charset=utf-8"

// ErrMissingDefaultTemplate is returned by New when a required purpose has
// no template for the default language.
var ErrMissingDefaultTemplate = errors.New("missing template for default language")

// Template renders a view. *html/template.Template satisfies it.
type Template interface {
	Execute(w io.Writer, data any) error
}

// TemplateProvider hands out templates keyed by language tag.
type TemplateProvider interface {
	TemplatesFor(purpose Purpose) map[string]Template
}

// Config controls response shape.
type Config struct {
	ConfirmationPagesEnabled bool
	DefaultLanguage          string
	ConfirmDelay             time.Duration
	RedirectStatus           int
	// CacheMaxAge is sent as Cache-Control max-age on redirects. Zero omits
	// the header.
	CacheMaxAge time.Duration
}

// Response is what the handler writes back.
type Response struct {
	Status  int
	Body    []byte
	Headers http.Header
}

// ConfirmView is the data passed to confirmation templates.
type ConfirmView struct {
	Lang            string
	Link            string
	RedirectTimeout int64
	RedirectSeconds float64
}

// NotFoundView is the data passed to not-found templates.
type NotFoundView struct {
	Lang         string
	RedirectName string
}

// Planner is immutable after New and safe for concurrent use.
type Planner struct {
	cfg           Config
	confirm       map[string]Template
	confirmLangs  []string
	notFound      map[string]Template
	notFoundLangs []string
}

// New validates that every template the configuration can reach exists for
// the default language.
func New(cfg Config, provider TemplateProvider) (*Planner, error) {
	if cfg.DefaultLanguage == "" {
		return nil, errors.New("planner: default language is required")
	}
	if cfg.RedirectStatus == 0 {
		cfg.RedirectStatus = http.StatusFound
	}
	if cfg.RedirectStatus < 300 || cfg.RedirectStatus > 399 {
		return nil, fmt.Errorf("planner: redirect status %d is not a 3xx code", cfg.RedirectStatus)
	}

	p := &Planner{cfg: cfg}

	p.notFound = provider.TemplatesFor(PurposeNotFound)
	if _, ok := p.notFound[cfg.DefaultLanguage]; !ok {
		return nil, fmt.Errorf("planner: %s %q: %w", PurposeNotFound, cfg.DefaultLanguage, ErrMissingDefaultTemplate)
	}
	p.notFoundLangs = slices.Sorted(maps.Keys(p.notFound))

	if cfg.ConfirmationPagesEnabled {
		p.confirm = provider.TemplatesFor(PurposeConfirm)
		if _, ok := p.confirm[cfg.DefaultLanguage]; !ok {
			return nil, fmt.Errorf("planner: %s %q: %w", PurposeConfirm, cfg.DefaultLanguage, ErrMissingDefaultTemplate)
		}
		p.confirmLangs = slices.Sorted(maps.Keys(p.confirm))
	}

	return p, nil
}

// Languages returns the languages a confirmation page can be rendered in.
func (p *Planner) Languages() []string {
	return slices.Clone(p.confirmLangs)
}

// Plan builds the response for d. confirmRequested is ignored unless
// confirmation pages are enabled.
func (p *Planner) Plan(d resolver.Decision, confirmRequested bool, acceptLanguage string) (Response, error) {
	if !d.IsRedirect() {
		return p.notFoundPage(d.RequestedPath, acceptLanguage)
	}
	if confirmRequested && p.cfg.ConfirmationPagesEnabled {
		return p.confirmPage(d.Target, acceptLanguage)
	}

	headers := http.Header{}
	headers.Set("Location", d.Target)
	if p.cfg.CacheMaxAge > 0 {
		headers.Set("Cache-Control", "max-age="+strconv.FormatInt(int64(p.cfg.CacheMaxAge/time.Second), 10))
	}
	return Response{Status: p.cfg.RedirectStatus, Headers: headers}, nil
}

func (p *Planner) confirmPage(target, acceptLanguage string) (Response, error) {
	lang := acceptlang.Pick(acceptLanguage, p.confirmLangs, p.cfg.DefaultLanguage)
	tmpl := p.confirm[lang]

	ms := p.cfg.ConfirmDelay.Milliseconds()
	view := ConfirmView{
		Lang:            lang,
		Link:            target,
		RedirectTimeout: ms,
		RedirectSeconds: float64(ms) / 1000,
	}
	return render(http.StatusOK, tmpl, view)
}

func (p *Planner) notFoundPage(requestedPath, acceptLanguage string) (Response, error) {
	lang := acceptlang.Pick(acceptLanguage, p.notFoundLangs, p.cfg.DefaultLanguage)
	tmpl := p.notFound[lang]

	return render(http.StatusNotFound, tmpl, NotFoundView{Lang: lang, RedirectName: requestedPath})
}

func render(status int, tmpl Template, view any) (Response, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return Response{}, fmt.Errorf("render template: %w", err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", htmlContentType)
	return Response{Status: status, Body: buf.Bytes(), Headers: headers}, nil
}
