package mirror

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

// Synchronizer projects the catalog's entity tables into the chart store's
// reference mirror and verifies that no ranking row points at an entity the
// catalog no longer knows about.
type Synchronizer struct {
	catalog *catalog.Store
	charts  *chartstore.Store
	strict  bool
	logger  *slog.Logger
}

// NewSynchronizer wires the mirror stage.
func NewSynchronizer(cat *catalog.Store, charts *chartstore.Store, cfg *config.Config, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		catalog: cat,
		charts:  charts,
		strict:  cfg.Sync.Strict,
		logger:  logging.WithComponent(logger, "sync"),
	}
}

// Name implements stage.Stage.
func (s *Synchronizer) Name() string { return "sync" }

// Run replaces the chart store's reference mirror with the current catalog
// contents, then checks ranking rows for dangling entity ids. In strict mode
// a dangling reference fails the run; otherwise it is logged and counted.
func (s *Synchronizer) Run(ctx context.Context, _ stage.Options) (stage.Summary, error) {
	summary := stage.Summary{}

	artists, err := s.catalog.ListArtists(ctx)
	if err != nil {
		return summary, err
	}
	labels, err := s.catalog.ListLabels(ctx)
	if err != nil {
		return summary, err
	}

	artistRefs := make([]chartstore.Ref, 0, len(artists))
	for _, a := range artists {
		artistRefs = append(artistRefs, chartstore.Ref{
			ID:     a.ID,
			Name:   a.Name,
			Slug:   a.Slug,
			Status: string(a.Status),
		})
	}
	labelRefs := make([]chartstore.Ref, 0, len(labels))
	for _, l := range labels {
		labelRefs = append(labelRefs, chartstore.Ref{
			ID:     l.ID,
			Name:   l.Name,
			Slug:   l.Slug,
			Status: string(l.Status),
		})
	}

	if err := s.charts.ReplaceRefs(ctx, artistRefs, labelRefs); err != nil {
		return summary, fmt.Errorf("replace reference mirror: %w", err)
	}
	summary.Add("mirrored_artists", len(artistRefs))
	summary.Add("mirrored_labels", len(labelRefs))

	orphanArtists, orphanLabels, err := s.charts.OrphanCounts(ctx)
	if err != nil {
		return summary, err
	}
	orphans := orphanArtists + orphanLabels
	summary.Add("orphans", orphans)

	if orphans > 0 {
		if s.strict {
			return summary, fmt.Errorf("%w: %d ranking rows reference unknown entities",
				chartstore.ErrIntegrity, orphans)
		}
		s.logger.Warn("ranking rows reference unknown entities",
			slog.Int("artists", orphanArtists), slog.Int("labels", orphanLabels))
	}

	s.logger.Info("mirror synchronized", slog.String("summary", summary.String()))
	return summary, nil
}
