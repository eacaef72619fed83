package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFD decomposition. For Hebrew this
// drops niqqud and cantillation so "דָּחוּף" and "דחוף" match the same entry.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize prepares text for matching: combining marks stripped, lowercased,
// whitespace runs collapsed to single spaces. Matching is defined over this
// form only; callers must normalize both transcript and query text.
func Normalize(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Malformed input falls back to the raw text; matching still works
		// for well-formed spans.
		out = s
	}
	out = strings.ToLower(out)
	return strings.Join(strings.Fields(out), " ")
}
