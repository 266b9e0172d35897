package transcript

import (
	"strings"

	"github.com/forPelevin/transcut/internal/types"
)

var (
	punct  = strings.NewReplacer(".", "", ",", "", "!", "", "?", "")
	quotes = strings.NewReplacer(`"`, "", "'", "")
)

// Match is the first contiguous run of words equal to a query phrase.
type Match struct {
	Selection
	Query string
}

// FindPhrase searches words for the first contiguous window whose normalized
// text equals the normalized query. Normalization lower-cases and strips
// . , ! ? so matching ignores case and that punctuation. There is no fuzzy
// or partial fallback.
func FindPhrase(words []types.TranscriptWord, query string) (Match, bool) {
	tokens := strings.Fields(normalize(quotes.Replace(query)))
	n := len(tokens)
	if n == 0 || n > len(words) {
		return Match{}, false
	}
	want := strings.Join(tokens, " ")

	norm := make([]string, len(words))
	for i, w := range words {
		norm[i] = normalize(w.Text)
	}
	for i := 0; i+n <= len(words); i++ {
		if strings.Join(norm[i:i+n], " ") != want {
			continue
		}
		return Match{
			Selection: Selection{Lo: i, Hi: i + n - 1, Start: words[i].Start, End: words[i+n-1].End},
			Query:     query,
		}, true
	}
	return Match{}, false
}

func normalize(s string) string {
	return punct.Replace(strings.ToLower(strings.TrimSpace(s)))
}
