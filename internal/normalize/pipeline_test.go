package normalize_test

import (
	"testing"

	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"github.com/jonesrussell/north-cloud/redirector/internal/normalize"
	"github.com/stretchr/testify/assert"
)

// recordingHook appends its name to *trace and returns the mapping unchanged.
func recordingHook(name string, order int, trace *[]string) normalize.Hook {
	return normalize.Hook{
		Name:  name,
		Order: order,
		Transform: func(m mapping.AliasMapping) mapping.AliasMapping {
			*trace = append(*trace, name)
			return m
		},
	}
}

func hookNames(p *normalize.Pipeline) []string {
	var names []string
	for _, h := range p.Hooks() {
		names = append(names, h.Name)
	}
	return names
}

func TestPipeline_AppliesInAscendingOrder(t *testing.T) {
	t.Parallel()

	var trace []string
	p := normalize.NewPipeline()
	p.Register(recordingHook("late", 1000, &trace))
	p.Register(recordingHook("early", 1, &trace))
	p.Register(recordingHook("middle", 50, &trace))

	p.Apply(mapping.AliasMapping{})

	assert.Equal(t, []string{"early", "middle", "late"}, trace)
}

func TestPipeline_TiesKeepRegistrationOrder(t *testing.T) {
	t.Parallel()

	var trace []string
	p := normalize.NewPipeline()
	p.Register(recordingHook("b", 10, &trace))
	p.Register(recordingHook("a", 10, &trace))
	p.Register(recordingHook("c", 10, &trace))

	p.Apply(mapping.AliasMapping{})

	assert.Equal(t, []string{"b", "a", "c"}, trace)
}

func TestPipeline_ReRegisterReplacesByName(t *testing.T) {
	t.Parallel()

	p := normalize.NewPipeline()
	p.Register(normalize.Hook{Name: "suffix", Order: 1, Transform: func(m mapping.AliasMapping) mapping.AliasMapping {
		return m.Rekey(func(s string) string { return s + "-v1" })
	}})
	p.Register(normalize.Hook{Name: "suffix", Order: 1, Transform: func(m mapping.AliasMapping) mapping.AliasMapping {
		return m.Rekey(func(s string) string { return s + "-v2" })
	}})

	out := p.Apply(mapping.AliasMapping{"x": "https://x.example.com"})

	assert.Len(t, p.Hooks(), 1)
	assert.Equal(t, mapping.AliasMapping{"x-v2": "https://x.example.com"}, out)
}

func TestPipeline_UnregisterRemovesHook(t *testing.T) {
	t.Parallel()

	var trace []string
	p := normalize.NewPipeline()
	p.Register(recordingHook("keep", 1, &trace))
	p.Register(recordingHook("drop", 2, &trace))
	p.Unregister("drop")
	p.Unregister("never-registered")

	p.Apply(mapping.AliasMapping{})

	assert.Equal(t, []string{"keep"}, trace)
}

func TestPipeline_EmptyIsIdentity(t *testing.T) {
	t.Parallel()

	in := mapping.AliasMapping{"/Docs/": "https://docs.example.com"}
	assert.Equal(t, in, normalize.NewPipeline().Apply(in))
}

func TestRegisterDefaults_CaseInsensitive(t *testing.T) {
	t.Parallel()

	p := normalize.NewPipeline()
	normalize.RegisterDefaults(p, true)

	assert.Equal(t, []string{normalize.LowercaseHookName, normalize.StripSlashesHookName}, hookNames(p))

	out := p.Apply(mapping.AliasMapping{
		"/Docs/":      "https://docs.example.com",
		"//Blog//":    "https://blog.example.com",
		"deep/Path/":  "https://deep.example.com",
		"ÉTÉ":         "https://summer.example.com",
		"already-low": "https://low.example.com",
	})

	assert.Equal(t, mapping.AliasMapping{
		"docs":        "https://docs.example.com",
		"blog":        "https://blog.example.com",
		"deep/path":   "https://deep.example.com",
		"été":         "https://summer.example.com",
		"already-low": "https://low.example.com",
	}, out)
}

func TestRegisterDefaults_CaseSensitive(t *testing.T) {
	t.Parallel()

	p := normalize.NewPipeline()
	normalize.RegisterDefaults(p, false)

	assert.Equal(t, []string{normalize.StripSlashesHookName}, hookNames(p))
	assert.Equal(t,
		mapping.AliasMapping{"Docs": "https://docs.example.com"},
		p.Apply(mapping.AliasMapping{"/Docs/": "https://docs.example.com"}),
	)
}

func TestDefaultHooks_AreIdempotent(t *testing.T) {
	t.Parallel()

	p := normalize.NewPipeline()
	normalize.RegisterDefaults(p, true)

	in := mapping.AliasMapping{"/A/b/": "https://ab.example.com", "C": "https://c.example.com"}
	once := p.Apply(in)
	assert.Equal(t, once, p.Apply(once))
}

func TestRegisterDefaults_CollidingAliasesKeepLastSorted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   mapping.AliasMapping
		want mapping.AliasMapping
	}{
		{
			name: "case fold",
			in:   mapping.AliasMapping{"Docs": "https://upper.example.com", "docs": "https://lower.example.com"},
			want: mapping.AliasMapping{"docs": "https://lower.example.com"},
		},
		{
			name: "slash strip",
			in:   mapping.AliasMapping{"/docs/": "https://slashed.example.com", "docs": "https://bare.example.com"},
			want: mapping.AliasMapping{"docs": "https://bare.example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := normalize.NewPipeline()
			normalize.RegisterDefaults(p, true)
			assert.Equal(t, tt.want, p.Apply(tt.in))
		})
	}
}

func TestFoldCase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "straße", normalize.FoldCase("STRAßE"))
	assert.Equal(t, "docs", normalize.FoldCase("DoCs"))
}
