// Package normalize runs an ordered, named set of transforms over every
// freshly fetched alias mapping before it is published.
package normalize

import (
	"cmp"
	"slices"
	"sync"

	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
)

// Hook is a named mapping transform. Transform must be pure: it returns a new
// mapping and leaves its input untouched. Hooks with a lower Order run first.
// A transform that folds two aliases into one key keeps the target of the alias
// that sorts last, as mapping.AliasMapping.Rekey does.
type Hook struct {
	Name      string
	Order     int
	Transform func(mapping.AliasMapping) mapping.AliasMapping
}

type entry struct {
	hook Hook
	seq  uint64
}

// Pipeline is a registry of hooks keyed by name.
type Pipeline struct {
	mu    sync.Mutex
	hooks map[string]entry
	seq   uint64
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{hooks: make(map[string]entry)}
}

// Register adds h, replacing any hook with the same name. A replaced hook
// counts as newly registered when breaking order ties.
func (p *Pipeline) Register(h Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	p.hooks[h.Name] = entry{hook: h, seq: p.seq}
}

// Unregister removes the hook called name, if present.
func (p *Pipeline) Unregister(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.hooks, name)
}

// Hooks returns the registered hooks in the order Apply runs them.
func (p *Pipeline) Hooks() []Hook {
	p.mu.Lock()
	entries := make([]entry, 0, len(p.hooks))
	for _, e := range p.hooks {
		entries = append(entries, e)
	}
	p.mu.Unlock()

	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Or(cmp.Compare(a.hook.Order, b.hook.Order), cmp.Compare(a.seq, b.seq))
	})

	hooks := make([]Hook, len(entries))
	for i, e := range entries {
		hooks[i] = e.hook
	}
	return hooks
}

// Apply feeds m through every hook, ascending by Order and then by
// registration. With no hooks m is returned as is.
func (p *Pipeline) Apply(m mapping.AliasMapping) mapping.AliasMapping {
	for _, h := range p.Hooks() {
		m = h.Transform(m)
	}
	return m
}
