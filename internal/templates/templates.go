// Package templates loads the confirmation and not-found pages from a
// directory and hands them to the planner per language.
package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/redirector/internal/planner"
)

// File names inside the templates directory.
const (
	TextsFile    = "texts.json"
	ConfirmFile  = "redirect.html"
	NotFoundFile = "not-found.html"
)

const (
	secondCounterPlaceholder = "%SECOND_COUNTER%"
	fallbackNotFound         = "Not Found."
)

// Options controls loading.
type Options struct {
	DefaultLanguage string
	// RequireConfirm makes a missing texts.json or redirect.html an error.
	RequireConfirm bool
	ConfirmDelay   time.Duration
}

// Set holds parsed templates keyed by purpose and language.
type Set struct {
	confirm  map[string]*template.Template
	notFound map[string]*template.Template
}

// Load reads dir. Each language in texts.json gets its own copy of the base
// templates with a "text" function bound to that language's strings.
func Load(dir string, opts Options) (*Set, error) {
	if opts.DefaultLanguage == "" {
		return nil, errors.New("templates: default language is required")
	}

	texts, err := readTexts(filepath.Join(dir, TextsFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || opts.RequireConfirm {
			return nil, err
		}
		texts = map[string]map[string]string{}
	}

	counter := secondCounter(opts.ConfirmDelay)
	set := &Set{
		confirm:  make(map[string]*template.Template),
		notFound: make(map[string]*template.Template),
	}

	confirmBase, err := parseFile(filepath.Join(dir, ConfirmFile))
	switch {
	case err == nil:
		for lang, t := range texts {
			set.confirm[lang], err = bind(confirmBase, lang, t, counter)
			if err != nil {
				return nil, err
			}
		}
	case errors.Is(err, fs.ErrNotExist) && !opts.RequireConfirm:
	default:
		return nil, err
	}

	notFoundBase, err := parseFile(filepath.Join(dir, NotFoundFile))
	if errors.Is(err, fs.ErrNotExist) {
		notFoundBase, err = template.New(NotFoundFile).Parse(fallbackNotFound)
	}
	if err != nil {
		return nil, err
	}

	langs := slices.Collect(maps.Keys(texts))
	if !slices.Contains(langs, opts.DefaultLanguage) {
		langs = append(langs, opts.DefaultLanguage)
	}
	for _, lang := range langs {
		set.notFound[lang], err = bind(notFoundBase, lang, texts[lang], counter)
		if err != nil {
			return nil, err
		}
	}

	return set, nil
}

// TemplatesFor implements planner.TemplateProvider.
func (s *Set) TemplatesFor(purpose planner.Purpose) map[string]planner.Template {
	var src map[string]*template.Template
	switch purpose {
	case planner.PurposeConfirm:
		src = s.confirm
	case planner.PurposeNotFound:
		src = s.notFound
	default:
		return nil
	}

	out := make(map[string]planner.Template, len(src))
	for lang, t := range src {
		out[lang] = t
	}
	return out
}

// Languages lists the languages that have a confirmation page, sorted.
func (s *Set) Languages() []string {
	return slices.Sorted(maps.Keys(s.confirm))
}

func readTexts(path string) (map[string]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read texts: %w", err)
	}

	var texts map[string]map[string]string
	if err = json.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return texts, nil
}

// parseFile parses path with a placeholder "text" func so that bind can
// replace it per language.
func parseFile(path string) (*template.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	t, err := template.New(filepath.Base(path)).
		Funcs(template.FuncMap{"text": func(string) template.HTML { return "" }}).
		Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

func bind(base *template.Template, lang string, texts map[string]string, counter string) (*template.Template, error) {
	t, err := base.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone %s for %q: %w", base.Name(), lang, err)
	}

	resolved := make(map[string]template.HTML, len(texts))
	for k, v := range texts {
		resolved[k] = template.HTML(strings.ReplaceAll(v, secondCounterPlaceholder, counter)) //nolint:gosec // G203: texts.json is operator configuration
	}

	return t.Funcs(template.FuncMap{
		"text": func(key string) template.HTML { return resolved[key] },
	}), nil
}

func secondCounter(delay time.Duration) string {
	seconds := strconv.FormatFloat(float64(delay.Milliseconds())/1000, 'f', -1, 64)
	return `<span id="seconds-left" class="bold">` + seconds + `</span>`
}
