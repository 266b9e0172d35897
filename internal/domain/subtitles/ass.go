// Package subtitles renders transcript words that fall inside a clip's
// source window as subtitle files.
package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/transcut/internal/domain/frames"
	"github.com/forPelevin/transcut/internal/types"
)

const (
	lineChars = 42
	lineWords = 8
)

// Style sets the ASS canvas; it should match the output resolution.
type Style struct {
	Width    int
	Height   int
	FontSize int
}

func DefaultStyle() Style { return Style{Width: 1920, Height: 1080, FontSize: 64} }

type cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []cue
}

// ClipASS renders karaoke subtitles for one timeline clip. Times are local
// to the clip. Segment text is used when no word overlaps the clip window.
func ClipASS(tr types.Transcript, c types.Clip, st Style) string {
	from, to := frames.Duration(c.Offset), frames.Duration(c.TrimEnd)
	words := clipWords(tr, from, to)
	if len(words) == 0 {
		return renderPlain(st, segmentText(tr, from, to), to-from)
	}
	return renderKaraoke(st, packLines(words))
}

// ClipText returns the transcript text spoken inside the clip window.
func ClipText(tr types.Transcript, c types.Clip) string {
	words := clipWords(tr, frames.Duration(c.Offset), frames.Duration(c.TrimEnd))
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

func clipWords(tr types.Transcript, from, to time.Duration) []cue {
	var out []cue
	for _, s := range tr.Segments {
		for _, w := range s.Words {
			ws, we := frames.Duration(w.Start), frames.Duration(w.End)
			if we <= from || ws >= to {
				continue
			}
			text := strings.TrimSpace(w.Text)
			if text == "" {
				continue
			}
			ws = max(ws, from)
			we = min(we, to)
			out = append(out, cue{Start: ws - from, End: we - from, Text: text})
		}
	}
	return out
}

func segmentText(tr types.Transcript, from, to time.Duration) string {
	var parts []string
	for _, s := range tr.Segments {
		if frames.Duration(s.End) <= from || frames.Duration(s.Start) >= to {
			continue
		}
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// packLines breaks words into display lines bounded by lineChars and
// lineWords.
func packLines(words []cue) []line {
	var (
		out  []line
		cur  line
		size int
	)
	for _, w := range words {
		n := len([]rune(w.Text))
		if len(cur.Words) > 0 && (len(cur.Words) >= lineWords || size+1+n > lineChars) {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur, size = line{}, 0
		}
		if len(cur.Words) == 0 {
			cur.Start = w.Start
		} else {
			size++
		}
		cur.Words = append(cur.Words, w)
		size += n
	}
	if len(cur.Words) > 0 {
		cur.End = cur.Words[len(cur.Words)-1].End
		out = append(out, cur)
	}
	return out
}

func renderKaraoke(st Style, lines []line) string {
	var b strings.Builder
	writeHeader(&b, st)
	for _, ln := range lines {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Caption,,0,0,0,,", assTime(ln.Start), assTime(ln.End))
		for i, w := range ln.Words {
			cs := max(int((w.End-w.Start)/(10*time.Millisecond)), 1)
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "{\\k%d}%s", cs, sanitize(w.Text))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderPlain(st Style, text string, d time.Duration) string {
	var b strings.Builder
	writeHeader(&b, st)
	if text != "" {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Caption,,0,0,0,,%s\n", assTime(0), assTime(d), sanitize(text))
	}
	return b.String()
}

func writeHeader(b *strings.Builder, st Style) {
	if st.Width <= 0 || st.Height <= 0 {
		st.Width, st.Height = DefaultStyle().Width, DefaultStyle().Height
	}
	if st.FontSize <= 0 {
		st.FontSize = DefaultStyle().FontSize
	}
	fmt.Fprintf(b, `[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption, Inter, %d, &H00FFFFFF, &H00F6823B, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,4,1,2, 60,60,%d,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`, st.Width, st.Height, st.FontSize, st.Height/14)
}

// assTime formats d as H:MM:SS.cc.
func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	cs := int64(d / (10 * time.Millisecond))
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
