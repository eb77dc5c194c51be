package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"staybook/internal/infra/config"
	"staybook/internal/infra/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type configLoader func() (config.Config, error)

func newRootCommand() *cobra.Command {
	var envFiles []string
	root := &cobra.Command{
		Use:          "staybook",
		Short:        "Weekly vacation rental bookings",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files loaded before the environment (default .env)")

	load := func() (config.Config, error) { return config.Load(envFiles...) }
	root.AddCommand(
		newServeCommand(load),
		newMigrateCommand(load),
		newSweepCommand(load),
		newExportCommand(load),
	)
	return root
}

func bootstrap(load configLoader) (config.Config, *slog.Logger, error) {
	cfg, err := load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
