package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"airchart/internal/chartstore"
	"airchart/internal/config"
)

func newChartCommand(ctx *commandContext) *cobra.Command {
	chartCmd := &cobra.Command{
		Use:   "chart",
		Short: "Read published ranking windows",
	}

	chartCmd.AddCommand(newChartTopCommand(ctx))
	return chartCmd
}

func newChartTopCommand(ctx *commandContext) *cobra.Command {
	var windowFlag string
	var labels bool
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the top of a ranking window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withChartStore(cmd, func(cmdCtx context.Context, cfg *config.Config, charts *chartstore.Store) error {
				window, err := resolveWindow(cmdCtx, charts, cfg.Scoring.Interval, windowFlag)
				if err != nil {
					return err
				}

				entityType := chartstore.EntityArtist
				if labels {
					entityType = chartstore.EntityLabel
				}

				items, err := charts.Items(cmdCtx, window.ID, entityType, limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s chart, week of %s\n", entityType,
					window.Start.Format("2006-01-02"))
				if len(items) == 0 {
					fmt.Fprintln(out, "No entries")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					name, err := entityName(cmdCtx, charts, entityType, item.EntityID)
					if err != nil {
						return err
					}
					rows = append(rows, []string{
						strconv.Itoa(item.Rank),
						name,
						fmt.Sprintf("%.1f", item.Score),
						strconv.Itoa(item.Spins),
						strconv.Itoa(item.Reach),
						formatDelta(item.Delta()),
					})
				}

				headers := []string{"Rank", "Name", "Score", "Spins", "Reach", "Change"}
				aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&windowFlag, "window", "", "Window start date (YYYY-MM-DD); defaults to the latest finalized window")
	cmd.Flags().BoolVar(&labels, "labels", false, "Show the label chart instead of the artist chart")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	return cmd
}

func resolveWindow(ctx context.Context, charts *chartstore.Store, interval, windowFlag string) (*chartstore.Window, error) {
	if windowFlag == "" {
		window, err := charts.LatestFinalized(ctx, interval)
		if err != nil {
			return nil, err
		}
		if window == nil {
			return nil, errors.New("no finalized ranking windows; run `airchart aggregate` first")
		}
		return window, nil
	}

	start, err := time.ParseInLocation("2006-01-02", windowFlag, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse --window: %w", err)
	}
	window, err := charts.WindowByStart(ctx, interval, start)
	if err != nil {
		return nil, err
	}
	if window == nil {
		return nil, fmt.Errorf("no ranking window starts on %s", windowFlag)
	}
	return window, nil
}

func entityName(ctx context.Context, charts *chartstore.Store, entityType chartstore.EntityType, id int64) (string, error) {
	var name string
	var err error
	if entityType == chartstore.EntityLabel {
		name, err = charts.LabelRefName(ctx, id)
	} else {
		name, err = charts.ArtistRefName(ctx, id)
	}
	if err != nil {
		return "", err
	}
	if name == "" {
		return fmt.Sprintf("#%d", id), nil
	}
	return name, nil
}

func formatDelta(delta *int) string {
	switch {
	case delta == nil:
		return "new"
	case *delta == 0:
		return "="
	default:
		return fmt.Sprintf("%+d", *delta)
	}
}
