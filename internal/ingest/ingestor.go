// Package ingest loads vendor report files into the staging tables.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"airchart/internal/anchor"
	"airchart/internal/catalog"
	"airchart/internal/config"
	"airchart/internal/logging"
	"airchart/internal/ranking"
	"airchart/internal/report"
	"airchart/internal/stage"
)

// Ingestor scans the report archive and writes one ingestion batch per file.
type Ingestor struct {
	store       *catalog.Store
	anchor      anchor.Service
	archiveDir  string
	reachWeight float64
	logger      *slog.Logger
}

// NewIngestor wires the ingestion stage. archiveDir overrides the configured
// archive directory when non-empty.
func NewIngestor(store *catalog.Store, svc anchor.Service, cfg *config.Config, archiveDir string, logger *slog.Logger) *Ingestor {
	dir := archiveDir
	if dir == "" {
		dir = cfg.Paths.ArchiveDir
	}
	return &Ingestor{
		store:       store,
		anchor:      svc,
		archiveDir:  dir,
		reachWeight: cfg.Scoring.ReachWeight,
		logger:      logging.WithComponent(logger, "ingest"),
	}
}

// Name implements stage.Stage.
func (g *Ingestor) Name() string { return "ingest" }

// Run ingests every report file in the archive in chronological order.
// Files already ingested are skipped unless Force is set; re-ingesting a
// file updates its staging rows in place. Files whose name encodes no
// reporting period, and rows missing required fields, are counted and
// skipped without failing the run.
func (g *Ingestor) Run(ctx context.Context, opts stage.Options) (stage.Summary, error) {
	summary := stage.Summary{}

	files, err := g.archiveFiles()
	if err != nil {
		return summary, err
	}
	first, last := stage.Bound(len(files), opts)
	files = files[first:last]

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := g.ingestFile(ctx, file, opts.Force, summary); err != nil {
			return summary, err
		}
	}

	g.logger.Info("ingestion complete", slog.String("summary", summary.String()))
	return summary, nil
}

type archiveFile struct {
	path string
	week int
	year int
}

func (g *Ingestor) archiveFiles() ([]archiveFile, error) {
	entries, err := os.ReadDir(g.archiveDir)
	if err != nil {
		return nil, fmt.Errorf("read archive directory %q: %w", g.archiveDir, err)
	}

	var files []archiveFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		week, year, err := report.ParseFilename(entry.Name())
		if err != nil {
			g.logger.Warn("skipping file without reporting period", slog.String("file", entry.Name()))
			continue
		}
		files = append(files, archiveFile{
			path: filepath.Join(g.archiveDir, entry.Name()),
			week: week,
			year: year,
		})
	}

	sort.Slice(files, func(a, b int) bool {
		if files[a].year != files[b].year {
			return files[a].year < files[b].year
		}
		if files[a].week != files[b].week {
			return files[a].week < files[b].week
		}
		return files[a].path < files[b].path
	})
	return files, nil
}

func (g *Ingestor) ingestFile(ctx context.Context, file archiveFile, force bool, summary stage.Summary) error {
	sourceName := filepath.Base(file.path)

	existing, err := g.store.IngestionBySource(ctx, sourceName)
	if err != nil {
		return err
	}
	if existing != nil && !force {
		summary.Add("skipped_files", 1)
		g.logger.Debug("file already ingested", slog.String("file", sourceName))
		return nil
	}

	parsed, err := report.ReadFile(file.path)
	if err != nil {
		// A file that cannot be parsed at all is a row-level class of
		// failure for the stage: log, count, move on.
		summary.Add("failed_files", 1)
		g.logger.Warn("report file unusable", slog.String("file", sourceName), logging.Error(err))
		return nil
	}

	rows := make([]*catalog.RawRow, 0, len(parsed.Rows))
	for _, r := range parsed.Rows {
		rows = append(rows, &catalog.RawRow{
			ArtistRaw:    r.Artist,
			TitleRaw:     r.Title,
			LabelRaw:     r.Label,
			Spins:        r.Spins,
			PriorSpins:   r.PriorSpins,
			Reach:        r.Reach,
			RankPosition: r.Position,
			Score:        ranking.CompositeScore(r.Spins, r.Reach, g.reachWeight),
		})
	}

	ing := &catalog.Ingestion{
		SourceFile:   sourceName,
		ReportWeek:   parsed.Week,
		ReportYear:   parsed.Year,
		RowCount:     len(rows),
		SkippedCount: parsed.Skipped,
	}
	if err := g.store.SaveIngestion(ctx, ing, rows); err != nil {
		return fmt.Errorf("ingest %s: %w", sourceName, err)
	}

	summary.Add("files", 1)
	summary.Add("rows", len(rows))
	summary.Add("skipped_rows", parsed.Skipped)
	g.logger.Info("file ingested",
		slog.String("file", sourceName),
		slog.Int("week", parsed.Week),
		slog.Int("year", parsed.Year),
		slog.Int("rows", len(rows)),
		slog.Int("skipped", parsed.Skipped))

	// Fire-and-forget: anchoring must never roll back an ingestion.
	if err := g.anchor.NotifyIngested(ctx, sourceName, parsed.Week, parsed.Year, len(rows)); err != nil {
		g.logger.Warn("anchor notification failed", slog.String("file", sourceName), logging.Error(err))
	}
	return nil
}
