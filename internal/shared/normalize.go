package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldName converts a profile name into its credential-store form:
// accents stripped, upper-cased, whitespace runs collapsed to a single
// underscore. "Zoé du Lac" becomes "ZOE_DU_LAC", which keys
// API_TOKEN_ZOE_DU_LAC and PLAYLIST_ID_ZOE_DU_LAC.
func FoldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToUpper(folded)), "_")
}
