package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"airchart/internal/catalog"
	"airchart/internal/chartstore"
	"airchart/internal/config"
	"airchart/internal/identity"
	"airchart/internal/stage"
)

// stageFunc adapts a single resolver phase into a stage.Stage.
type stageFunc struct {
	name string
	run  func(ctx context.Context) (stage.Summary, error)
}

func (s stageFunc) Name() string { return s.name }

func (s stageFunc) Run(ctx context.Context, _ stage.Options) (stage.Summary, error) {
	return s.run(ctx)
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var opts stage.Options
	var dedupOnly, backfillOnly, reconcileOnly bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Link staging rows to canonical entities and run maintenance passes",
		Long: `Resolve links every pending staging row to a canonical artist and label,
creating ghost entities on miss. Without phase flags all maintenance passes
run afterwards; with phase flags only the selected passes run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStages(cmd, opts, func(cfg *config.Config, logger *slog.Logger, cat *catalog.Store, charts *chartstore.Store) ([]stage.Stage, error) {
				resolver := identity.NewResolver(cat, charts, logger)
				if !dedupOnly && !backfillOnly && !reconcileOnly {
					return []stage.Stage{resolver}, nil
				}

				var stages []stage.Stage
				if dedupOnly {
					stages = append(stages, stageFunc{name: "dedup", run: resolver.Dedup})
				}
				if backfillOnly {
					stages = append(stages, stageFunc{name: "backfill", run: resolver.BackfillLabels})
				}
				if reconcileOnly {
					stages = append(stages, stageFunc{name: "reconcile", run: resolver.ReconcileGhosts})
				}
				return stages, nil
			})
		},
	}

	addStageFlags(cmd, &opts)
	cmd.Flags().BoolVar(&dedupOnly, "dedup", false, "Run only the duplicate merge pass")
	cmd.Flags().BoolVar(&backfillOnly, "backfill", false, "Run only the label backfill pass")
	cmd.Flags().BoolVar(&reconcileOnly, "reconcile", false, "Run only the ghost reconciliation pass")
	return cmd
}
