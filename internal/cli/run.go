package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/forPelevin/transcut/internal/config"
	"github.com/forPelevin/transcut/internal/pipeline"
	"github.com/spf13/cobra"
)

const commandTimeout = 3 * time.Hour

func loadConfig(cmd *cobra.Command) (pipeline.Config, error) {
	projectPath, _ := cmd.Flags().GetString("project")
	cfgPath, _ := cmd.Flags().GetString("config")

	c, err := config.Load(cfgPath)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}
	cfg := pipeline.FromConfig(c, projectPath)
	stderr := cmd.ErrOrStderr()
	cfg.Logf = func(format string, args ...any) {
		fmt.Fprintf(stderr, format+"\n", args...)
	}
	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// run opens the project, calls fn and saves the project when save is set
// and fn succeeded.
func run(cmd *cobra.Command, save bool, fn func(ctx context.Context, a *pipeline.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := pipeline.Open(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := fn(ctx, a); err != nil {
		return err
	}
	if !save {
		return nil
	}
	return a.Save()
}
