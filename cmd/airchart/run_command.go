package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"airchart/internal/anchor"
	"airchart/internal/catalog"
	"airchart/internal/chartstore"
	"airchart/internal/config"
	"airchart/internal/identity"
	"airchart/internal/ingest"
	"airchart/internal/mirror"
	"airchart/internal/ranking"
	"airchart/internal/stage"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts stage.Options
	var archiveDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the full pipeline: ingest, resolve, sync, aggregate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStages(cmd, opts, func(cfg *config.Config, logger *slog.Logger, cat *catalog.Store, charts *chartstore.Store) ([]stage.Stage, error) {
				return []stage.Stage{
					ingest.NewIngestor(cat, anchor.NewService(cfg), cfg, archiveDir, logger),
					identity.NewResolver(cat, charts, logger),
					mirror.NewSynchronizer(cat, charts, cfg, logger),
					ranking.NewAggregator(cat, charts, cfg, logger),
				}, nil
			})
		},
	}

	addStageFlags(cmd, &opts)
	cmd.Flags().StringVar(&archiveDir, "archive", "", "Archive directory override")
	return cmd
}
