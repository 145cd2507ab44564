package identity

import (
	"context"
	"errors"
	"log/slog"

	"airchart/internal/stage"
)

// BackfillLabels attaches a label to every artist missing one, using the
// most recent non-empty raw label value in the artist's staging history.
// The label is resolved or created through the same two-phase path as
// during row resolution.
func (r *Resolver) BackfillLabels(ctx context.Context) (stage.Summary, error) {
	summary := stage.Summary{}

	artists, err := r.catalog.ArtistsWithoutLabel(ctx)
	if err != nil {
		return summary, err
	}

	for _, artist := range artists {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		raw, err := r.catalog.LatestRawLabelForArtist(ctx, artist.ID)
		if err != nil {
			return summary, err
		}
		if raw == "" {
			continue
		}

		label, created, err := r.resolveLabel(ctx, raw)
		if errors.Is(err, ErrUnresolvable) {
			continue
		}
		if err != nil {
			return summary, err
		}
		if created {
			summary.Add("ghost_labels", 1)
		}

		if err := r.catalog.SetArtistLabel(ctx, artist.ID, label.ID); err != nil {
			return summary, err
		}
		summary.Add("backfilled", 1)
		r.logger.Info("label backfilled",
			slog.Int64("artist_id", artist.ID),
			slog.String("label", label.Name))
	}

	return summary, nil
}
