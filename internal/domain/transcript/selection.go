package transcript

import (
	"strings"

	"github.com/forPelevin/transcut/internal/types"
)

// Selection is an inclusive word index range with its source time bounds.
type Selection struct {
	Lo, Hi int
	Start  float64
	End    float64
}

// SelectRange resolves a drag selection given by word ids. The ids may come
// in either order or be equal. ok is false when either id is unknown.
func SelectRange(words []types.TranscriptWord, startID, endID string) (Selection, bool) {
	a := indexOf(words, startID)
	b := indexOf(words, endID)
	if a < 0 || b < 0 {
		return Selection{}, false
	}
	if a > b {
		a, b = b, a
	}
	return Selection{Lo: a, Hi: b, Start: words[a].Start, End: words[b].End}, true
}

// Contains reports whether word index i is highlighted by the selection.
func (s Selection) Contains(i int) bool {
	return i >= s.Lo && i <= s.Hi
}

func (s Selection) Duration() float64 { return s.End - s.Start }

// Text joins the selected words.
func (s Selection) Text(words []types.TranscriptWord) string {
	if s.Lo < 0 || s.Hi >= len(words) || s.Lo > s.Hi {
		return ""
	}
	parts := make([]string, 0, s.Hi-s.Lo+1)
	for _, w := range words[s.Lo : s.Hi+1] {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

func indexOf(words []types.TranscriptWord, id string) int {
	if id == "" {
		return -1
	}
	for i := range words {
		if words[i].ID == id {
			return i
		}
	}
	return -1
}
