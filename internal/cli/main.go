package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "transcut",
		Short:        "Cut a video timeline by editing its transcript",
		SilenceUsage: true,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("project", "project.json", "Project file")
	root.PersistentFlags().String("config", "", "Config file (default $TRANSCUT_CONFIG, ./transcut.yml, then the user config dir)")

	root.AddCommand(
		initCmd(),
		importCmd(),
		mediaCmd(),
		transcribeCmd(),
		transcriptCmd(),
		clipCmd(),
		selectCmd(),
		findCmd(),
		chatCmd(),
		lsCmd(),
		trimCmd(),
		moveCmd(),
		rmCmd(),
		clearCmd(),
		selectClipCmd(),
		exportCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
