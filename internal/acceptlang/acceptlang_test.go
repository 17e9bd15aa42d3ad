package acceptlang_test

import (
	"strings"
	"testing"

	"github.com/jonesrussell/north-cloud/redirector/internal/acceptlang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EmptyHeader(t *testing.T) {
	t.Parallel()

	assert.Empty(t, acceptlang.Parse(""))
	assert.Empty(t, acceptlang.Parse(" , ,"))
}

func TestParse_OrdersByQualityDescending(t *testing.T) {
	t.Parallel()

	prefs := acceptlang.Parse("fr-CA;q=0.8,en;q=0.9,de")
	require.Len(t, prefs, 3)

	assert.Equal(t, acceptlang.Preference{Language: "de", Quality: 1}, prefs[0])
	assert.Equal(t, acceptlang.Preference{Language: "en", Quality: 0.9}, prefs[1])
	assert.Equal(t, acceptlang.Preference{Language: "fr", Region: "CA", Quality: 0.8}, prefs[2])
}

func TestParse_EqualQualityKeepsHeaderOrder(t *testing.T) {
	t.Parallel()

	prefs := acceptlang.Parse("nl;q=0.5, sv;q=0.5, da;q=0.5, en")
	langs := make([]string, 0, len(prefs))
	for _, p := range prefs {
		langs = append(langs, p.Language)
	}

	assert.Equal(t, []string{"en", "nl", "sv", "da"}, langs)
}

func TestParse_ScriptOnlyWithThreeSubtags(t *testing.T) {
	t.Parallel()

	prefs := acceptlang.Parse("zh-Hant-TW, sr-Latn")
	require.Len(t, prefs, 2)

	assert.Equal(t, "zh", prefs[0].Language)
	assert.Equal(t, "Hant", prefs[0].Script)
	assert.Equal(t, "TW", prefs[0].Region)

	assert.Equal(t, "sr", prefs[1].Language)
	assert.Empty(t, prefs[1].Script)
	assert.Equal(t, "Latn", prefs[1].Region)
}

func TestParse_Wildcard(t *testing.T) {
	t.Parallel()

	prefs := acceptlang.Parse("*;q=0.1")
	require.Len(t, prefs, 1)
	assert.Equal(t, acceptlang.Wildcard, prefs[0].Language)
	assert.InDelta(t, 0.1, prefs[0].Quality, 1e-9)
}

func TestParse_DropsMalformedItems(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"quality above one":   "en;q=1.5",
		"negative quality":    "en;q=-0.1",
		"non-numeric quality": "en;q=high",
		"nan quality":         "en;q=NaN",
		"bad q after other":   "en;level=1;q=2",
		"too many subtags":    "en-Latn-US-x1",
		"digit in language":   "e1",
		"empty subtag":        "en-",
		"punctuation":         "en_US",
	}

	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Empty(t, acceptlang.Parse(header))
		})
	}
}

func TestParse_IgnoresParametersOtherThanQuality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		quality float64
	}{
		{name: "extension after q", header: "en;q=0.8;level=1", quality: 0.8},
		{name: "extension before q", header: "en;level=1;q=0.4", quality: 0.4},
		{name: "extension without q", header: "en;level=1", quality: 1},
		{name: "first q wins", header: "en;q=0.2;q=0.9", quality: 0.2},
		{name: "upper case q", header: "en;Q=0.5", quality: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prefs := acceptlang.Parse(tt.header)
			require.Len(t, prefs, 1)
			assert.Equal(t, "en", prefs[0].Language)
			assert.InDelta(t, tt.quality, prefs[0].Quality, 1e-9)
		})
	}
}

func TestParse_MalformedItemDoesNotAffectOthers(t *testing.T) {
	t.Parallel()

	prefs := acceptlang.Parse("en;q=2, de;q=0.3")
	require.Len(t, prefs, 1)
	assert.Equal(t, "de", prefs[0].Language)
}

func TestParse_QualityBoundsAccepted(t *testing.T) {
	t.Parallel()

	prefs := acceptlang.Parse("en;q=0, de;q=1, fr ; q = 0.25")
	require.Len(t, prefs, 3)
	assert.Equal(t, "de", prefs[0].Language)
	assert.Equal(t, "fr", prefs[1].Language)
	assert.Equal(t, "en", prefs[2].Language)
}

func TestParse_TruncatesOversizedHeader(t *testing.T) {
	t.Parallel()

	header := "de," + strings.Repeat("en;q=0.5,", 1000)
	prefs := acceptlang.Parse(header)

	require.NotEmpty(t, prefs)
	assert.Equal(t, "de", prefs[0].Language)
	assert.Less(t, len(prefs), 1001)
}

func TestPick(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		header    string
		supported []string
		fallback  string
		want      string
	}{
		{"higher quality wins", "fr-CA;q=0.8,en;q=0.9", []string{"en", "fr"}, "en", "en"},
		{"region ignored", "fr-CA", []string{"en", "fr"}, "en", "fr"},
		{"absent header", "", []string{"en"}, "en", "en"},
		{"no supported match", "ja, ko;q=0.5", []string{"en", "de"}, "en", "en"},
		{"skips unsupported top choice", "ja, de;q=0.5", []string{"en", "de"}, "en", "de"},
		{"case insensitive", "DE-at", []string{"en", "de"}, "en", "de"},
		{"wildcard not supported", "*", []string{"en", "de"}, "de", "de"},
		{"wildcard supported", "*", []string{"*", "en"}, "en", "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, acceptlang.Pick(tt.header, tt.supported, tt.fallback))
		})
	}
}
