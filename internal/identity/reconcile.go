package identity

import (
	"context"
	"log/slog"

	"airchart/internal/catalog"
	"airchart/internal/chartstore"
	"airchart/internal/stage"
)

// ReconcileGhosts enriches or merges placeholder entities using the raw
// strings recovered from their linked staging rows. A ghost with no linked
// history is left alone; placeholders are never silently discarded.
//
// Rows that merely repeat the string the ghost was created from confirm
// nothing, so such ghosts stay placeholders. Only an independently recovered
// spelling counts: when it normalizes onto an existing active entity the
// ghost is merged into it, otherwise the ghost takes the recovered display
// name and is promoted to active.
func (r *Resolver) ReconcileGhosts(ctx context.Context) (stage.Summary, error) {
	summary := stage.Summary{}

	ghosts, err := r.catalog.ListArtists(ctx, catalog.StatusGhost)
	if err != nil {
		return summary, err
	}
	for _, ghost := range ghosts {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.reconcileArtist(ctx, ghost, summary); err != nil {
			return summary, err
		}
	}

	ghostLabels, err := r.catalog.ListLabels(ctx, catalog.StatusGhost)
	if err != nil {
		return summary, err
	}
	for _, ghost := range ghostLabels {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.reconcileLabel(ctx, ghost, summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (r *Resolver) reconcileArtist(ctx context.Context, ghost *catalog.Artist, summary stage.Summary) error {
	names, err := r.catalog.RawArtistNames(ctx, ghost.ID)
	if err != nil {
		return err
	}
	recovered := recoveredName(ghost.Name, names)
	if recovered == "" {
		summary.Add("ghosts_kept", 1)
		return nil
	}

	normalized := Normalize(recovered)
	if normalized == "" {
		summary.Add("ghosts_kept", 1)
		return nil
	}

	existing, err := r.catalog.ArtistByNormalized(ctx, normalized)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != ghost.ID && existing.Status == catalog.StatusActive {
		if err := r.catalog.MergeArtists(ctx, existing.ID, []int64{ghost.ID}); err != nil {
			return err
		}
		if err := r.repointChartEntity(ctx, chartstore.EntityArtist, ghost.ID, existing.ID); err != nil {
			return err
		}
		summary.Add("ghosts_merged", 1)
		r.logger.Info("ghost artist merged into active entity",
			slog.Int64("ghost_id", ghost.ID), slog.Int64("primary", existing.ID))
		return nil
	}

	ghost.Name = recovered
	ghost.NormalizedName = normalized
	ghost.Status = catalog.StatusActive
	if err := r.catalog.UpdateArtist(ctx, ghost); err != nil {
		return err
	}
	summary.Add("ghosts_promoted", 1)
	r.logger.Info("ghost artist promoted",
		slog.Int64("artist_id", ghost.ID), slog.String("name", ghost.Name))
	return nil
}

// reconcileLabel renames a ghost label only when a spelling it was not
// created with is recovered, directly or via one of its linked artists'
// staging rows.
func (r *Resolver) reconcileLabel(ctx context.Context, ghost *catalog.Label, summary stage.Summary) error {
	names, err := r.catalog.RawLabelNamesForLabel(ctx, ghost.ID)
	if err != nil {
		return err
	}
	recovered := recoveredName(ghost.Name, names)
	if recovered == "" {
		summary.Add("ghosts_kept", 1)
		return nil
	}

	normalized := Normalize(recovered)
	if normalized == "" {
		summary.Add("ghosts_kept", 1)
		return nil
	}

	existing, err := r.catalog.LabelByNormalized(ctx, normalized)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != ghost.ID && existing.Status == catalog.StatusActive {
		if err := r.catalog.MergeLabels(ctx, existing.ID, []int64{ghost.ID}); err != nil {
			return err
		}
		if err := r.repointChartEntity(ctx, chartstore.EntityLabel, ghost.ID, existing.ID); err != nil {
			return err
		}
		summary.Add("ghosts_merged", 1)
		r.logger.Info("ghost label merged into active entity",
			slog.Int64("ghost_id", ghost.ID), slog.Int64("primary", existing.ID))
		return nil
	}

	ghost.Name = recovered
	ghost.NormalizedName = normalized
	ghost.Status = catalog.StatusActive
	if err := r.catalog.UpdateLabel(ctx, ghost); err != nil {
		return err
	}
	summary.Add("ghosts_promoted", 1)
	r.logger.Info("ghost label promoted",
		slog.Int64("label_id", ghost.ID), slog.String("name", ghost.Name))
	return nil
}

// recoveredName picks the most recent raw spelling that differs from the
// name the ghost was created with. An empty result means no staging row
// added information beyond the creation string.
func recoveredName(creationName string, names []string) string {
	for _, name := range names {
		if name != creationName {
			return name
		}
	}
	return ""
}
