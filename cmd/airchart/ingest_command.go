package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"airchart/internal/anchor"
	"airchart/internal/catalog"
	"airchart/internal/chartstore"
	"airchart/internal/config"
	"airchart/internal/ingest"
	"airchart/internal/stage"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var opts stage.Options
	var archiveDir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load vendor report files from the archive into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStages(cmd, opts, func(cfg *config.Config, logger *slog.Logger, cat *catalog.Store, _ *chartstore.Store) ([]stage.Stage, error) {
				return []stage.Stage{
					ingest.NewIngestor(cat, anchor.NewService(cfg), cfg, archiveDir, logger),
				}, nil
			})
		},
	}

	addStageFlags(cmd, &opts)
	cmd.Flags().StringVar(&archiveDir, "archive", "", "Archive directory override")
	return cmd
}
