package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"airchart/internal/catalog"
	"airchart/internal/chartstore"
	"airchart/internal/config"
	"airchart/internal/ranking"
	"airchart/internal/stage"
)

func newAggregateCommand(ctx *commandContext) *cobra.Command {
	var opts stage.Options

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Compute ranking windows from resolved staging rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStages(cmd, opts, func(cfg *config.Config, logger *slog.Logger, cat *catalog.Store, charts *chartstore.Store) ([]stage.Stage, error) {
				return []stage.Stage{ranking.NewAggregator(cat, charts, cfg, logger)}, nil
			})
		},
	}

	addStageFlags(cmd, &opts)
	return cmd
}
