package normalize

import (
	"strings"

	"github.com/jonesrussell/north-cloud/redirector/internal/mapping"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Default hook names and orders. Lowercasing runs first so that slash
// stripping sees the final key.
const (
	StripSlashesHookName = "strip-slashes"
	StripSlashesOrder    = 1000
	LowercaseHookName    = "make-lowercase"
	LowercaseOrder       = 1
)

// TrimSlashes removes every leading and trailing "/".
func TrimSlashes(s string) string {
	return strings.Trim(s, "/")
}

// FoldCase lowercases s with Unicode-aware, language-neutral rules. Aliases
// and request paths must go through the same function so they compare equal.
func FoldCase(s string) string {
	// A Caser carries state and must not be shared between goroutines.
	return cases.Lower(language.Und).String(s)
}

// StripSlashesHook strips surrounding slashes from every alias.
func StripSlashesHook() Hook {
	return Hook{
		Name:  StripSlashesHookName,
		Order: StripSlashesOrder,
		Transform: func(m mapping.AliasMapping) mapping.AliasMapping {
			return m.Rekey(TrimSlashes)
		},
	}
}

// LowercaseHook folds the case of every alias.
func LowercaseHook() Hook {
	return Hook{
		Name:  LowercaseHookName,
		Order: LowercaseOrder,
		Transform: func(m mapping.AliasMapping) mapping.AliasMapping {
			return m.Rekey(FoldCase)
		},
	}
}

// RegisterDefaults installs the built-in hooks. The lowercase hook is only
// installed for case-insensitive matching.
func RegisterDefaults(p *Pipeline, caseInsensitive bool) {
	p.Register(StripSlashesHook())
	if caseInsensitive {
		p.Register(LowercaseHook())
	}
}
