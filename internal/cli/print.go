package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/forPelevin/transcut/internal/domain/frames"
	"github.com/forPelevin/transcut/internal/project"
	"github.com/forPelevin/transcut/internal/types"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
)

func tc(sec float64) string { return frames.Timecode(sec, frames.DefaultFPS) }

func printMedia(w io.Writer, p *project.Project) {
	items := p.Library().List()
	if len(items) == 0 {
		fmt.Fprintln(w, "No media imported yet.")
		return
	}
	bold.Fprintf(w, "Media (%d)\n", len(items))
	for _, m := range items {
		cyan.Fprintf(w, "%s", m.ID)
		fmt.Fprintf(w, "  %s  %s  %dx%d", m.Name, tc(m.Duration), m.Width, m.Height)
		if _, ok := p.Transcript(m.ID); ok {
			green.Fprint(w, "  transcribed")
		}
		fmt.Fprintln(w)
	}
}

func printTimeline(w io.Writer, p *project.Project) {
	tl := p.Timeline()
	snap := tl.Snapshot()
	if len(snap.Clips) == 0 {
		fmt.Fprintln(w, "Timeline is empty.")
		return
	}
	bold.Fprintf(w, "Timeline  %d clips  %s (%d frames)\n", len(snap.Clips), tc(snap.Duration), snap.DurationFrames)
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for i, c := range snap.Clips {
		mark := " "
		if c.ID == snap.SelectedClipID {
			mark = yellow.Sprint("*")
		}
		fmt.Fprintf(w, "%s%3d  ", mark, i)
		cyan.Fprintf(w, "%s", c.ID)
		fmt.Fprintf(w, "  %s\n", c.Name)
		fmt.Fprintf(w, "      at %s (f%d)  len %s (%d f)  src %.2fs..%.2fs",
			tc(c.Start), c.StartFrame, tc(c.Duration), c.DurationFrames, c.Offset, c.TrimEnd)
		if _, ok := tl.Resolve(c); !ok {
			red.Fprint(w, "  missing media")
		}
		fmt.Fprintln(w)
	}
}

func printTranscript(w io.Writer, tr types.Transcript) {
	bold.Fprintf(w, "Transcript %s  %s  model %s\n", tr.MediaID, tr.Language, tr.ModelVersion)
	for _, s := range tr.Segments {
		cyan.Fprintf(w, "[%s - %s]", tc(s.Start), tc(s.End))
		fmt.Fprintf(w, " %s\n", s.Text)
		for _, wd := range s.Words {
			faint.Fprintf(w, "  %-14s", wd.ID)
			fmt.Fprintf(w, " %6.2f %6.2f  %s\n", wd.Start, wd.End, wd.Text)
		}
	}
}

func printClip(w io.Writer, verb string, c types.Clip) {
	green.Fprintf(w, "%s ", verb)
	cyan.Fprintf(w, "%s", c.ID)
	fmt.Fprintf(w, "  %s  src %.2fs..%.2fs  at %s\n", c.Name, c.Offset, c.TrimEnd, tc(c.Start))
}
