package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/transcut/internal/pipeline"
	"github.com/forPelevin/transcut/internal/usecase"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [name]",
		Short: "Create a new project file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			a, err := pipeline.Create(cfg, name)
			if err != nil {
				return err
			}
			green.Fprintf(cmd.OutOrStdout(), "Created project %q", a.Project.Name)
			fmt.Fprintf(cmd.OutOrStdout(), " in %s\n", cfg.ProjectPath)
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Probe media files and add them to the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, true, func(ctx context.Context, a *pipeline.App) error {
				var rejected []string
				for _, path := range args {
					m, err := a.Usecase.ImportMedia(ctx, a.Project, path)
					if err != nil {
						red.Fprintf(cmd.ErrOrStderr(), "rejected: %v\n", err)
						rejected = append(rejected, path)
						continue
					}
					green.Fprint(cmd.OutOrStdout(), "imported ")
					cyan.Fprintf(cmd.OutOrStdout(), "%s", m.ID)
					fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", m.Name, tc(m.Duration))
				}
				if len(rejected) == len(args) {
					return fmt.Errorf("no media imported")
				}
				return nil
			})
		},
	}
}

func mediaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "media",
		Short: "List imported media",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, false, func(_ context.Context, a *pipeline.App) error {
				printMedia(cmd.OutOrStdout(), a.Project)
				return nil
			})
		},
	}
}

func transcriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcript <mediaID>",
		Short: "Print a transcript with word ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false, func(_ context.Context, a *pipeline.App) error {
				tr, ok := a.Project.Transcript(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", usecase.ErrNoTranscript, args[0])
				}
				printTranscript(cmd.OutOrStdout(), tr)
				return nil
			})
		},
	}
}

func clipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clip <mediaID>",
		Short: "Append a whole media item, or a range of it, to the timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetFloat64("in")
			out, _ := cmd.Flags().GetFloat64("out")
			return run(cmd, true, func(_ context.Context, a *pipeline.App) error {
				m, ok := a.Project.Library().Get(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", usecase.ErrUnknownMedia, args[0])
				}
				if !cmd.Flags().Changed("out") {
					out = m.Duration
				}
				c, err := a.Project.Timeline().AddMediaRange(m, in, out)
				if err != nil {
					return err
				}
				printClip(cmd.OutOrStdout(), "added", c)
				return nil
			})
		},
	}
	cmd.Flags().Float64("in", 0, "Source in-point in seconds")
	cmd.Flags().Float64("out", 0, "Source out-point in seconds (default end of media)")
	return cmd
}

func selectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <mediaID> <startWordID> <endWordID>",
		Short: "Append the transcript words between two word ids as a clip",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, true, func(_ context.Context, a *pipeline.App) error {
				c, sel, err := a.Usecase.ClipFromSelection(a.Project, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				printClip(cmd.OutOrStdout(), "added", c)
				fmt.Fprintf(cmd.OutOrStdout(), "  words %d..%d (%.2fs)\n", sel.Lo, sel.Hi, sel.Duration())
				return nil
			})
		},
	}
}

func findCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <mediaID> <phrase...>",
		Short: "Find a phrase in a transcript and append it as a clip",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, true, func(ctx context.Context, a *pipeline.App) error {
				reply, err := a.Chat.Send(ctx, args[0], "/find "+strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
				return nil
			})
		},
	}
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <text...>",
		Short: "Send a message to the editor assistant (slash commands act on the project)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mediaID, _ := cmd.Flags().GetString("media")
			clearHistory, _ := cmd.Flags().GetBool("clear")
			return run(cmd, true, func(ctx context.Context, a *pipeline.App) error {
				if clearHistory {
					a.Project.ClearChat()
				}
				reply, err := a.Chat.Send(ctx, mediaID, strings.Join(args, " "))
				// The failed exchange is kept in the history.
				if err != nil {
					if saveErr := a.Save(); saveErr != nil {
						return errors.Join(err, saveErr)
					}
					return err
				}
				bold.Fprint(cmd.OutOrStdout(), "assistant: ")
				fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
				return nil
			})
		},
	}
	cmd.Flags().String("media", "", "Selected media id for commands like /find")
	cmd.Flags().Bool("clear", false, "Clear the chat history first")
	return cmd
}
