// Package acceptlang parses Accept-Language headers and picks the best
// supported language for a response.
package acceptlang

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Wildcard is the "any language" tag.
const Wildcard = "*"

// maxHeaderLength caps the work done on hostile headers. Anything past it is
// ignored; a preference cut in half is dropped as malformed.
const maxHeaderLength = 4096

// maxSubtags is lang plus optional script and region.
const maxSubtags = 3

// Preference is one parsed Accept-Language item.
type Preference struct {
	Language string
	Script   string
	Region   string
	Quality  float64
}

// Parse returns the well-formed preferences in header, highest quality first.
// Items with equal quality keep their header order. Malformed items, and items
// whose q is non-numeric or outside [0, 1], are dropped. Parameters other than
// q are ignored.
func Parse(header string) []Preference {
	if len(header) > maxHeaderLength {
		header = header[:maxHeaderLength]
	}

	var prefs []Preference
	for item := range strings.SplitSeq(header, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if p, ok := parseItem(item); ok {
			prefs = append(prefs, p)
		}
	}

	slices.SortStableFunc(prefs, func(a, b Preference) int {
		return cmp.Compare(b.Quality, a.Quality)
	})
	return prefs
}

func parseItem(item string) (Preference, bool) {
	tag, params, hasParams := strings.Cut(item, ";")

	p, ok := parseTag(strings.TrimSpace(tag))
	if !ok {
		return Preference{}, false
	}

	p.Quality = 1
	if hasParams {
		q, qOK := parseQuality(params)
		if !qOK {
			return Preference{}, false
		}
		p.Quality = q
	}
	return p, true
}

// parseTag accepts "*", "lang", "lang-region" and "lang-script-region".
func parseTag(tag string) (Preference, bool) {
	if tag == Wildcard {
		return Preference{Language: Wildcard}, true
	}

	parts := strings.Split(tag, "-")
	if len(parts) > maxSubtags || !isAlpha(parts[0]) {
		return Preference{}, false
	}
	for _, sub := range parts[1:] {
		if !isAlphanumeric(sub) {
			return Preference{}, false
		}
	}

	p := Preference{Language: parts[0]}
	switch len(parts) {
	case 2:
		p.Region = parts[1]
	case maxSubtags:
		p.Script = parts[1]
		p.Region = parts[2]
	}
	return p, true
}

// parseQuality reads the first "q" parameter and ignores the rest. No q
// means 1.
func parseQuality(params string) (float64, bool) {
	for param := range strings.SplitSeq(params, ";") {
		key, value, found := strings.Cut(param, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "q") {
			continue
		}

		q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(q) || q < 0 || q > 1 {
			return 0, false
		}
		return q, true
	}
	return 1, true
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// Pick returns the supported language matching the highest-ranked parsed
// preference, comparing primary language subtags case-insensitively. Script
// and region are ignored. The wildcard only matches when "*" is itself
// listed in supported. Without a match, fallback is returned.
func Pick(header string, supported []string, fallback string) string {
	for _, p := range Parse(header) {
		for _, lang := range supported {
			if strings.EqualFold(p.Language, lang) {
				return lang
			}
		}
	}
	return fallback
}
