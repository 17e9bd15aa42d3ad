// Package resolver decides what a request path maps to.
package resolver

import (
	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"github.com/jonesrussell/north-cloud/redirector/internal/normalize"
)

// Kind tags a Decision.
type Kind int

const (
	KindNotFound Kind = iota
	KindRedirect
	KindHostDefault
)

func (k Kind) String() string {
	switch k {
	case KindRedirect:
		return "redirect"
	case KindHostDefault:
		return "host_default"
	default:
		return "not_found"
	}
}

// Decision is the outcome for one request. Target is set for KindRedirect
// and KindHostDefault; RequestedPath is the raw path for KindNotFound.
type Decision struct {
	Kind          Kind
	Target        string
	Alias         string
	RequestedPath string
}

// IsRedirect reports whether the decision sends the client somewhere.
func (d Decision) IsRedirect() bool {
	return d.Kind == KindRedirect || d.Kind == KindHostDefault
}

// Options mirror how the published mapping was normalized.
type Options struct {
	CaseInsensitive bool
}

// Resolve looks rawPath up in m. Leading and trailing slashes are ignored,
// and so is case when opts.CaseInsensitive. A request for "/" whose Host is
// itself an alias resolves to that alias's target. host may be empty.
func Resolve(rawPath, host string, m mapping.AliasMapping, opts Options) Decision {
	alias := normalize.TrimSlashes(rawPath)
	if opts.CaseInsensitive {
		alias = normalize.FoldCase(alias)
	}

	if alias == "" && host != "" {
		if target, ok := m.Lookup(host); ok {
			return Decision{Kind: KindHostDefault, Target: target, Alias: host}
		}
	}

	if target, ok := m.Lookup(alias); ok {
		return Decision{Kind: KindRedirect, Target: target, Alias: alias}
	}
	return Decision{Kind: KindNotFound, Alias: alias, RequestedPath: rawPath}
}
