package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"airchart/internal/catalog"
	"airchart/internal/chartstore"
	"airchart/internal/config"
	"airchart/internal/mirror"
	"airchart/internal/stage"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var opts stage.Options

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Rebuild the chart store's entity mirror from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStages(cmd, opts, func(cfg *config.Config, logger *slog.Logger, cat *catalog.Store, charts *chartstore.Store) ([]stage.Stage, error) {
				return []stage.Stage{mirror.NewSynchronizer(cat, charts, cfg, logger)}, nil
			})
		},
	}

	addStageFlags(cmd, &opts)
	return cmd
}
