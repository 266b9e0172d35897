package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/forPelevin/transcut/internal/pipeline"
	"github.com/forPelevin/transcut/internal/transcription"
	"github.com/forPelevin/transcut/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func transcribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <mediaID>",
		Short: "Transcribe a media item with whisper.cpp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, _ := cmd.Flags().GetString("model")
			language, _ := cmd.Flags().GetString("language")
			tui, _ := cmd.Flags().GetBool("tui")
			if tui && !term.IsTerminal(int(os.Stdout.Fd())) {
				fmt.Fprintln(cmd.ErrOrStderr(), "stdout is not a terminal; using plain progress output")
				tui = false
			}

			return run(cmd, true, func(ctx context.Context, a *pipeline.App) error {
				mediaID := args[0]
				m, _ := a.Project.Library().Get(mediaID)

				var (
					tr  types.Transcript
					err error
				)
				if tui {
					modelName := model
					if modelName == "" {
						modelName = "default"
					}
					tr, err = runTranscribeTUI(ctx, a, mediaID, m.Name, modelName, func(ctx context.Context) (types.Transcript, error) {
						return a.Transcribe(ctx, mediaID, model, language)
					})
				} else {
					events, unsubscribe := a.Coordinator.Subscribe(64)
					stop := make(chan struct{})
					logged := make(chan struct{})
					go func() {
						defer close(logged)
						logEvents(cmd.ErrOrStderr(), mediaID, events, stop)
					}()
					tr, err = a.Transcribe(ctx, mediaID, model, language)
					close(stop)
					<-logged
					unsubscribe()
				}
				if err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "transcribed %s", mediaID)
				fmt.Fprintf(cmd.OutOrStdout(), "  %d segments, %d words\n", len(tr.Segments), wordCount(tr))
				return nil
			})
		},
	}
	cmd.Flags().String("model", "", "Whisper model name (default from config)")
	cmd.Flags().String("language", "", "Spoken language code (default from config)")
	cmd.Flags().Bool("tui", false, "Show an interactive progress view")
	return cmd
}

// logEvents prints coordinator events for mediaID until stop closes, then
// drains what is already buffered.
func logEvents(w io.Writer, mediaID string, events <-chan transcription.Event, stop <-chan struct{}) {
	l := eventLogger{w: w, mediaID: mediaID, lastDownload: -1, lastPercent: -1}
	for {
		select {
		case ev := <-events:
			l.log(ev)
		case <-stop:
			for {
				select {
				case ev := <-events:
					l.log(ev)
				default:
					return
				}
			}
		}
	}
}

type eventLogger struct {
	w            io.Writer
	mediaID      string
	lastDownload float64
	lastPercent  float64
}

// log prints one line per event; percentages only every 10%.
func (l *eventLogger) log(ev transcription.Event) {
	switch e := ev.(type) {
	case transcription.ModelLoading:
		fmt.Fprintf(l.w, "[transcribe] loading model %s\n", e.ModelID)
	case transcription.ModelProgress:
		step := math.Floor(e.Progress.Progress / 10)
		if step <= l.lastDownload {
			return
		}
		l.lastDownload = step
		fmt.Fprintf(l.w, "[transcribe] downloading %s: %.0f%%\n", e.Progress.File, e.Progress.Progress)
	case transcription.ModelReady:
		fmt.Fprintf(l.w, "[transcribe] model %s ready\n", e.ModelID)
	case transcription.ModelFailed:
		fmt.Fprintf(l.w, "[transcribe] model %s failed: %s\n", e.ModelID, e.Err)
	case transcription.Transcribing:
		if e.MediaID == l.mediaID {
			fmt.Fprintf(l.w, "[transcribe] %s\n", e.Message)
		}
	case transcription.TranscribeProgress:
		step := math.Floor(e.Percent / 10)
		if e.MediaID != l.mediaID || step <= l.lastPercent {
			return
		}
		l.lastPercent = step
		fmt.Fprintf(l.w, "[transcribe] %.0f%%\n", e.Percent)
	case transcription.Completed:
		if e.MediaID == l.mediaID {
			fmt.Fprintf(l.w, "[transcribe] completed in %.2fs\n", e.Elapsed.Seconds())
		}
	case transcription.Failed:
		if e.MediaID == l.mediaID {
			fmt.Fprintf(l.w, "[transcribe] failed: %s\n", e.Err)
		}
	}
}

func wordCount(tr types.Transcript) int {
	n := 0
	for _, s := range tr.Segments {
		n += len(s.Words)
	}
	return n
}
