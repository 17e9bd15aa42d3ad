// Package mapping holds alias mappings and the atomically swapped store that
// request handlers read them from.
package mapping

import (
	"maps"
	"slices"
	"strings"
)

// AliasMapping maps a normalized alias to its target URL. A mapping is never
// mutated after it has been published; refreshes build a new one.
type AliasMapping map[string]string

// Row is one alias/target pair as read from a source.
type Row struct {
	Alias  string
	Target string
}

// FromRows builds a raw mapping from source rows. Cells are trimmed, rows
// missing either value are skipped, and a later duplicate alias replaces an
// earlier one. It also returns how many rows were skipped.
func FromRows(rows []Row) (AliasMapping, int) {
	m := make(AliasMapping, len(rows))
	skipped := 0
	for _, r := range rows {
		alias := strings.TrimSpace(r.Alias)
		target := strings.TrimSpace(r.Target)
		if alias == "" || target == "" {
			skipped++
			continue
		}
		m[alias] = target
	}
	return m, skipped
}

// Lookup returns the target for alias. It is safe on a nil mapping.
func (m AliasMapping) Lookup(alias string) (string, bool) {
	target, ok := m[alias]
	return target, ok
}

// Len reports the number of aliases.
func (m AliasMapping) Len() int {
	return len(m)
}

// Rekey returns a new mapping with every alias passed through fn. When two
// aliases collide the one that sorts last wins, so the result does not depend
// on map iteration order.
func (m AliasMapping) Rekey(fn func(string) string) AliasMapping {
	out := make(AliasMapping, len(m))
	for _, alias := range slices.Sorted(maps.Keys(m)) {
		out[fn(alias)] = m[alias]
	}
	return out
}
