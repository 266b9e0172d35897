package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/transcut/internal/domain/frames"
	"github.com/forPelevin/transcut/internal/types"
)

// TimelineSRT renders subtitles for a whole timeline. Each clip contributes
// the words of its media's transcript, shifted to the clip's timeline
// position. Clips without a transcript are silent.
func TimelineSRT(s types.TimelineSnapshot, transcripts map[string]types.Transcript) string {
	var (
		b strings.Builder
		n int
	)
	for _, c := range s.Clips {
		tr, ok := transcripts[c.MediaID]
		if !ok {
			continue
		}
		shift := frames.Duration(c.Start)
		for _, ln := range packLines(clipWords(tr, frames.Duration(c.Offset), frames.Duration(c.TrimEnd))) {
			n++
			texts := make([]string, 0, len(ln.Words))
			for _, w := range ln.Words {
				texts = append(texts, w.Text)
			}
			fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", n, srtTime(shift+ln.Start), srtTime(shift+ln.End), strings.Join(texts, " "))
		}
	}
	return b.String()
}

// srtTime formats d as HH:MM:SS,mmm.
func srtTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
