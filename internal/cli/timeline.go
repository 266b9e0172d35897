package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/forPelevin/transcut/internal/pipeline"
	"github.com/spf13/cobra"
)

var errClipNotFound = errors.New("clip not found")

func lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List timeline clips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, false, func(_ context.Context, a *pipeline.App) error {
				printTimeline(cmd.OutOrStdout(), a.Project)
				return nil
			})
		},
	}
}

func trimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trim <clipID>",
		Short: "Trim a clip by edge deltas (--left/--right) or absolute --offset/--duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			left, _ := f.GetFloat64("left")
			right, _ := f.GetFloat64("right")
			offset, _ := f.GetFloat64("offset")
			duration, _ := f.GetFloat64("duration")

			edges := f.Changed("left") || f.Changed("right")
			absolute := f.Changed("offset") || f.Changed("duration")
			if edges == absolute {
				return errors.New("use either --left/--right or --offset/--duration")
			}
			for _, v := range []float64{left, right, offset, duration} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return errors.New("trim values must be finite")
				}
			}

			return run(cmd, true, func(_ context.Context, a *pipeline.App) error {
				tl := a.Project.Timeline()
				c, ok := tl.Clip(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", errClipNotFound, args[0])
				}
				applied := true
				if absolute {
					if !f.Changed("offset") {
						offset = c.Offset
					}
					if !f.Changed("duration") {
						duration = c.Duration
					}
					applied = tl.TrimClip(c.ID, offset, duration)
				} else {
					if f.Changed("left") {
						applied = tl.TrimLeft(c.ID, left)
					}
					if applied && f.Changed("right") {
						applied = tl.TrimRight(c.ID, right)
					}
				}
				if !applied {
					yellow.Fprintf(cmd.OutOrStdout(), "clip %s has no media; trim ignored\n", c.ID)
					return nil
				}
				c, _ = tl.Clip(c.ID)
				printClip(cmd.OutOrStdout(), "trimmed", c)
				return nil
			})
		},
	}
	cmd.Flags().Float64("left", 0, "Move the in-point by this many seconds")
	cmd.Flags().Float64("right", 0, "Change the duration by this many seconds")
	cmd.Flags().Float64("offset", 0, "New source in-point in seconds")
	cmd.Flags().Float64("duration", 0, "New duration in seconds")
	return cmd
}

func moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <clipID> <index>",
		Short: "Move a clip to a new position (clamped to the timeline)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[1])
			}
			return run(cmd, true, func(_ context.Context, a *pipeline.App) error {
				tl := a.Project.Timeline()
				if !tl.ReorderClip(args[0], idx) {
					return fmt.Errorf("%w: %s", errClipNotFound, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "moved %s to %d\n", args[0], tl.Index(args[0]))
				return nil
			})
		},
	}
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <clipID>",
		Short: "Remove a clip from the timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, true, func(_ context.Context, a *pipeline.App) error {
				if !a.Project.Timeline().RemoveClip(args[0]) {
					return fmt.Errorf("%w: %s", errClipNotFound, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every clip from the timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, true, func(_ context.Context, a *pipeline.App) error {
				n := a.Project.Timeline().Len()
				a.Project.Timeline().Clear()
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %d clips\n", n)
				return nil
			})
		},
	}
}

func selectClipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select-clip [clipID]",
		Short: "Select a timeline clip (no id clears the selection)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return run(cmd, true, func(_ context.Context, a *pipeline.App) error {
				tl := a.Project.Timeline()
				if id != "" && tl.Index(id) < 0 {
					return fmt.Errorf("%w: %s", errClipNotFound, id)
				}
				tl.Select(id)
				return nil
			})
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the timeline to an MP4 with a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outDir, _ := cmd.Flags().GetString("out")
			subs, _ := cmd.Flags().GetBool("subtitles")
			return run(cmd, false, func(ctx context.Context, a *pipeline.App) error {
				res, err := a.Export(ctx, outDir, subs)
				if err != nil {
					return err
				}
				green.Fprintf(cmd.OutOrStdout(), "exported %d clips (%s)\n", len(res.Manifest.Clips), tc(res.Manifest.Duration))
				fmt.Fprintf(cmd.OutOrStdout(), "manifest: %s\n", res.ManifestPath)
				return nil
			})
		},
	}
	cmd.Flags().String("out", "", "Output directory (default from config)")
	cmd.Flags().Bool("subtitles", false, "Burn in karaoke subtitles and write timeline.srt")
	return cmd
}
