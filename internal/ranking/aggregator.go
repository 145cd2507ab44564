package ranking

import (
	"context"
	"fmt"
	"log/slog"

	"airchart/internal/catalog"
	"airchart/internal/chartstore"
	"airchart/internal/config"
	"airchart/internal/logging"
	"airchart/internal/stage"
)

// Aggregator computes weekly ranking windows from resolved staging rows.
type Aggregator struct {
	catalog     *catalog.Store
	charts      *chartstore.Store
	interval    string
	reachWeight float64
	logger      *slog.Logger
}

// NewAggregator wires the aggregation stage.
func NewAggregator(cat *catalog.Store, charts *chartstore.Store, cfg *config.Config, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		catalog:     cat,
		charts:      charts,
		interval:    cfg.Scoring.Interval,
		reachWeight: cfg.Scoring.ReachWeight,
		logger:      logging.WithComponent(logger, "aggregator"),
	}
}

// Name implements stage.Stage.
func (a *Aggregator) Name() string { return "aggregate" }

// Run aggregates every reporting period in the archive, bounded by
// offset/limit. A finalized window is skipped unless Force is set, but its
// stored ranks still feed the delta computation of later windows. Resume
// (or a non-zero offset) seeds the previous-rank accumulator from the last
// finalized window on disk instead of starting empty.
//
// Cancellation is honored at window boundaries only; a window transaction,
// once started, runs to completion.
func (a *Aggregator) Run(ctx context.Context, opts stage.Options) (stage.Summary, error) {
	summary := stage.Summary{}

	weeks, err := a.catalog.ReportWeeks(ctx)
	if err != nil {
		return summary, fmt.Errorf("list report weeks: %w", err)
	}
	first, last := stage.Bound(len(weeks), opts)
	weeks = weeks[first:last]
	if len(weeks) == 0 {
		a.logger.Info("no reporting periods to aggregate")
		return summary, nil
	}

	prev := map[chartstore.EntityKey]int{}
	if opts.Resume || first > 0 {
		seedBefore := WeekStart(weeks[0].Year, weeks[0].Week)
		window, err := a.charts.LatestFinalizedBefore(ctx, a.interval, seedBefore)
		if err != nil {
			return summary, err
		}
		if window != nil {
			if prev, err = a.charts.RankMap(ctx, window.ID); err != nil {
				return summary, err
			}
			a.logger.Info("seeded previous ranks from storage",
				slog.Time("window_start", window.Start), slog.Int("entities", len(prev)))
		}
	}

	for _, week := range weeks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		start := WeekStart(week.Year, week.Week)
		end := start.AddDate(0, 0, 7)

		existing, err := a.charts.WindowByStart(ctx, a.interval, start)
		if err != nil {
			return summary, err
		}
		if existing != nil && existing.Finalized && !opts.Force {
			// Keep the accumulator moving so deltas in later windows
			// survive partial backfills.
			if prev, err = a.charts.RankMap(ctx, existing.ID); err != nil {
				return summary, err
			}
			summary.Add("skipped", 1)
			a.logger.Info("window already finalized, skipping",
				slog.Int("year", week.Year), slog.Int("week", week.Week))
			continue
		}

		ingestionIDs, err := a.catalog.IngestionIDsForWeek(ctx, week.Year, week.Week)
		if err != nil {
			return summary, err
		}
		aggregates, err := a.catalog.ArtistAggregates(ctx, ingestionIDs)
		if err != nil {
			return summary, err
		}

		write, next := BuildWindow(WindowInput{
			Interval:    a.interval,
			Start:       start,
			End:         end,
			Aggregates:  aggregates,
			Prev:        prev,
			ReachWeight: a.reachWeight,
		})
		if _, err := a.charts.ReplaceWindow(ctx, write); err != nil {
			return summary, fmt.Errorf("aggregate window %d-%d: %w", week.Week, week.Year, err)
		}
		prev = next

		summary.Add("aggregated", 1)
		summary.Add("artists", len(write.Artists))
		summary.Add("labels", len(write.Labels))
		a.logger.Info("window aggregated",
			slog.Int("year", week.Year),
			slog.Int("week", week.Week),
			slog.Int("artists", len(write.Artists)),
			slog.Int("labels", len(write.Labels)))
	}

	a.logger.Info("aggregation complete", slog.String("summary", summary.String()))
	return summary, nil
}
