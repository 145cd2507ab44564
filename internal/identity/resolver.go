package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"airchart/internal/catalog"
	"airchart/internal/chartstore"
	"airchart/internal/logging"
	"airchart/internal/stage"
)

// ErrUnresolvable indicates a raw name that cannot be normalized into a
// lookup key (for example, a string with no letters or digits).
var ErrUnresolvable = errors.New("name cannot be normalized")

// resolveAttempts bounds the insert/lookup retry loop used when concurrent
// runs race on the same normalized name or slug.
const resolveAttempts = 3

// Resolver links staging rows to canonical entities and runs the periodic
// maintenance passes: deduplication, label backfill, and ghost
// reconciliation.
type Resolver struct {
	catalog *catalog.Store
	charts  *chartstore.Store
	logger  *slog.Logger
}

// NewResolver wires the identity resolution stage.
func NewResolver(cat *catalog.Store, charts *chartstore.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		catalog: cat,
		charts:  charts,
		logger:  logging.WithComponent(logger, "resolver"),
	}
}

// Name implements stage.Stage.
func (r *Resolver) Name() string { return "resolve" }

// Run executes every resolver phase in order: pending-row resolution,
// deduplication, label backfill, ghost reconciliation.
func (r *Resolver) Run(ctx context.Context, _ stage.Options) (stage.Summary, error) {
	summary := stage.Summary{}

	part, err := r.ResolvePending(ctx)
	summary.Merge(part)
	if err != nil {
		return summary, err
	}

	part, err = r.Dedup(ctx)
	summary.Merge(part)
	if err != nil {
		return summary, err
	}

	part, err = r.BackfillLabels(ctx)
	summary.Merge(part)
	if err != nil {
		return summary, err
	}

	part, err = r.ReconcileGhosts(ctx)
	summary.Merge(part)
	if err != nil {
		return summary, err
	}

	r.logger.Info("resolution complete", slog.String("summary", summary.String()))
	return summary, nil
}

// ResolvePending links every pending_mapping staging row to a canonical
// artist (and, when the row names one, a canonical label), creating ghost
// entities on miss so aggregation is never blocked on manual curation. A
// single unresolvable row is logged and skipped; only storage errors fail
// the run.
func (r *Resolver) ResolvePending(ctx context.Context) (stage.Summary, error) {
	summary := stage.Summary{}

	rows, err := r.catalog.PendingRows(ctx)
	if err != nil {
		return summary, err
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		artist, created, err := r.resolveArtist(ctx, row.ArtistRaw)
		if err != nil {
			if errors.Is(err, ErrUnresolvable) {
				summary.Add("unresolvable", 1)
				r.logger.Warn("row skipped: artist name unresolvable",
					slog.Int64("row", row.ID), slog.String("artist_raw", row.ArtistRaw))
				continue
			}
			return summary, err
		}
		if created {
			summary.Add("ghosted", 1)
			r.logger.Info("ghost artist created",
				slog.String("name", artist.Name), slog.Int64("artist_id", artist.ID))
		} else {
			summary.Add("matched", 1)
		}

		var labelID *int64
		if row.LabelRaw != "" {
			label, labelCreated, err := r.resolveLabel(ctx, row.LabelRaw)
			switch {
			case errors.Is(err, ErrUnresolvable):
				// The row still resolves; only its label link is lost.
			case err != nil:
				return summary, err
			default:
				labelID = &label.ID
				if labelCreated {
					summary.Add("ghost_labels", 1)
				}
				if artist.LabelID == nil {
					if err := r.catalog.SetArtistLabel(ctx, artist.ID, label.ID); err != nil {
						return summary, err
					}
					artist.LabelID = &label.ID
				}
			}
		}

		if err := r.catalog.LinkRow(ctx, row.ID, artist.ID, labelID); err != nil {
			return summary, err
		}
		summary.Add("resolved_rows", 1)
	}

	return summary, nil
}

// resolveArtist is the two-phase resolve-or-create: exact normalized lookup,
// then a guarded ghost insert. The insert/lookup loop retries on constraint
// violations so concurrent resolvers converge on one entity per name.
func (r *Resolver) resolveArtist(ctx context.Context, raw string) (*catalog.Artist, bool, error) {
	normalized := Normalize(raw)
	if normalized == "" {
		return nil, false, fmt.Errorf("%w: %q", ErrUnresolvable, raw)
	}

	for attempt := 0; attempt < resolveAttempts; attempt++ {
		existing, err := r.catalog.ArtistByNormalized(ctx, normalized)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}

		ghost := &catalog.Artist{
			Name:           raw,
			NormalizedName: normalized,
			Slug:           disambiguatedSlug(raw, attempt),
			Status:         catalog.StatusGhost,
		}
		err = r.catalog.InsertArtist(ctx, ghost)
		if err == nil {
			return ghost, true, nil
		}
		if !catalog.IsConstraintErr(err) {
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("resolve artist %q: gave up after %d attempts", raw, resolveAttempts)
}

func (r *Resolver) resolveLabel(ctx context.Context, raw string) (*catalog.Label, bool, error) {
	normalized := Normalize(raw)
	if normalized == "" {
		return nil, false, fmt.Errorf("%w: %q", ErrUnresolvable, raw)
	}

	for attempt := 0; attempt < resolveAttempts; attempt++ {
		existing, err := r.catalog.LabelByNormalized(ctx, normalized)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}

		ghost := &catalog.Label{
			Name:           raw,
			NormalizedName: normalized,
			Slug:           disambiguatedSlug(raw, attempt),
			Status:         catalog.StatusGhost,
		}
		err = r.catalog.InsertLabel(ctx, ghost)
		if err == nil {
			return ghost, true, nil
		}
		if !catalog.IsConstraintErr(err) {
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("resolve label %q: gave up after %d attempts", raw, resolveAttempts)
}

// disambiguatedSlug derives a slug from the raw name, appending a short
// random suffix on retry so slug collisions cannot starve ghost creation.
func disambiguatedSlug(raw string, attempt int) string {
	slug := Slugify(raw)
	if slug == "" {
		slug = "unknown"
	}
	if attempt > 0 {
		slug = slug + "-" + uuid.NewString()[:8]
	}
	return slug
}

// repointChartEntity moves chart-store references during a merge. The chart
// store is updated in its own transaction after the catalog transaction has
// committed; the synchronizer re-establishes the mirror afterwards.
func (r *Resolver) repointChartEntity(ctx context.Context, entityType chartstore.EntityType, fromID, toID int64) error {
	if r.charts == nil {
		return nil
	}
	return r.charts.RepointEntity(ctx, entityType, fromID, toID)
}
