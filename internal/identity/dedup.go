package identity

import (
	"context"
	"log/slog"

	"airchart/internal/catalog"
	"airchart/internal/chartstore"
	"airchart/internal/stage"
)

// Dedup merges canonical entities that share a normalized name. The
// earliest-created entity in each group is the primary; every reference in
// the catalog and the chart store is repointed to it before the duplicates
// are deleted, one merge group at a time so no reference is ever left at a
// deleted id.
func (r *Resolver) Dedup(ctx context.Context) (stage.Summary, error) {
	summary := stage.Summary{}

	artistGroups, err := r.catalog.DuplicateArtistGroups(ctx)
	if err != nil {
		return summary, err
	}
	for _, group := range artistGroups {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.mergeArtistGroup(ctx, group, summary); err != nil {
			return summary, err
		}
	}

	labelGroups, err := r.catalog.DuplicateLabelGroups(ctx)
	if err != nil {
		return summary, err
	}
	for _, group := range labelGroups {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.mergeLabelGroup(ctx, group, summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (r *Resolver) mergeArtistGroup(ctx context.Context, group []*catalog.Artist, summary stage.Summary) error {
	if len(group) < 2 {
		return nil
	}
	primary := group[0]
	duplicates := group[1:]

	// A later duplicate may carry the confirmed identity; the surviving
	// primary absorbs it rather than staying a ghost.
	if primary.Status == catalog.StatusGhost {
		for _, dup := range duplicates {
			if dup.Status == catalog.StatusActive {
				primary.Name = dup.Name
				primary.Status = catalog.StatusActive
				if primary.LabelID == nil {
					primary.LabelID = dup.LabelID
				}
				break
			}
		}
	}

	ids := make([]int64, 0, len(duplicates))
	for _, dup := range duplicates {
		ids = append(ids, dup.ID)
	}

	if err := r.catalog.MergeArtists(ctx, primary.ID, ids); err != nil {
		return err
	}
	if primary.Status == catalog.StatusActive {
		if err := r.catalog.UpdateArtist(ctx, primary); err != nil {
			return err
		}
	}
	for _, id := range ids {
		if err := r.repointChartEntity(ctx, chartstore.EntityArtist, id, primary.ID); err != nil {
			return err
		}
	}

	summary.Add("merged_artists", len(ids))
	r.logger.Info("artist duplicates merged",
		slog.String("normalized", primary.NormalizedName),
		slog.Int64("primary", primary.ID),
		slog.Int("merged", len(ids)))
	return nil
}

func (r *Resolver) mergeLabelGroup(ctx context.Context, group []*catalog.Label, summary stage.Summary) error {
	if len(group) < 2 {
		return nil
	}
	primary := group[0]
	duplicates := group[1:]

	if primary.Status == catalog.StatusGhost {
		for _, dup := range duplicates {
			if dup.Status == catalog.StatusActive {
				primary.Name = dup.Name
				primary.Status = catalog.StatusActive
				break
			}
		}
	}

	ids := make([]int64, 0, len(duplicates))
	for _, dup := range duplicates {
		ids = append(ids, dup.ID)
	}

	if err := r.catalog.MergeLabels(ctx, primary.ID, ids); err != nil {
		return err
	}
	if primary.Status == catalog.StatusActive {
		if err := r.catalog.UpdateLabel(ctx, primary); err != nil {
			return err
		}
	}
	for _, id := range ids {
		if err := r.repointChartEntity(ctx, chartstore.EntityLabel, id, primary.ID); err != nil {
			return err
		}
	}

	summary.Add("merged_labels", len(ids))
	r.logger.Info("label duplicates merged",
		slog.String("normalized", primary.NormalizedName),
		slog.Int64("primary", primary.ID),
		slog.Int("merged", len(ids)))
	return nil
}
