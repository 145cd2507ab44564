package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const ingestionColumns = "id, source_file, report_week, report_year, row_count, skipped_count, created_at, updated_at"

// IngestionBySource returns the ingestion recorded for a source filename, or
// nil when the file has never been ingested.
func (s *Store) IngestionBySource(ctx context.Context, sourceFile string) (*Ingestion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ingestionColumns+` FROM ingestions WHERE source_file = ?`, sourceFile)
	ing, err := scanIngestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingestion by source: %w", err)
	}
	return ing, nil
}

// SaveIngestion writes one ingested file and its staging rows in a single
// transaction. Re-saving the same source file reuses the existing ingestion
// id and updates rows in place, so re-ingestion never duplicates staging
// rows.
func (s *Store) SaveIngestion(ctx context.Context, ing *Ingestion, rows []*RawRow) error {
	if ing == nil {
		return errors.New("ingestion is nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ingestion tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM ingestions WHERE source_file = ?`, ing.SourceFile).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if ing.ID == "" {
			ing.ID = uuid.NewString()
		}
		ing.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ingestions (id, source_file, report_week, report_year, row_count, skipped_count, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ing.ID, ing.SourceFile, ing.ReportWeek, ing.ReportYear,
			ing.RowCount, ing.SkippedCount, timestamp(now), timestamp(now))
		if err != nil {
			return fmt.Errorf("insert ingestion: %w", err)
		}
	case err != nil:
		return fmt.Errorf("find ingestion: %w", err)
	default:
		ing.ID = existingID
		_, err = tx.ExecContext(ctx,
			`UPDATE ingestions
             SET report_week = ?, report_year = ?, row_count = ?, skipped_count = ?, updated_at = ?
             WHERE id = ?`,
			ing.ReportWeek, ing.ReportYear, ing.RowCount, ing.SkippedCount, timestamp(now), ing.ID)
		if err != nil {
			return fmt.Errorf("update ingestion: %w", err)
		}
	}
	ing.UpdatedAt = now

	for _, r := range rows {
		r.IngestionID = ing.ID
		_, err = tx.ExecContext(ctx,
			`INSERT INTO raw_report_rows (
                ingestion_id, artist_raw, title_raw, label_raw,
                spins, prior_spins, reach, rank_position, score,
                status, created_at, updated_at
             ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT (ingestion_id, artist_raw, title_raw) DO UPDATE SET
                label_raw = excluded.label_raw,
                spins = excluded.spins,
                prior_spins = excluded.prior_spins,
                reach = excluded.reach,
                rank_position = excluded.rank_position,
                score = excluded.score,
                updated_at = excluded.updated_at`,
			ing.ID, r.ArtistRaw, r.TitleRaw, r.LabelRaw,
			r.Spins, r.PriorSpins, r.Reach, r.RankPosition, r.Score,
			RowPendingMapping, timestamp(now), timestamp(now))
		if err != nil {
			return fmt.Errorf("upsert staging row %q/%q: %w", r.ArtistRaw, r.TitleRaw, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingestion: %w", err)
	}
	return nil
}

// ReportWeeks returns the distinct reporting periods present in the archive,
// oldest first.
func (s *Store) ReportWeeks(ctx context.Context) ([]ReportWeek, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT report_year, report_week FROM ingestions ORDER BY report_year, report_week`)
	if err != nil {
		return nil, fmt.Errorf("list report weeks: %w", err)
	}
	defer rows.Close()

	var weeks []ReportWeek
	for rows.Next() {
		var w ReportWeek
		if err := rows.Scan(&w.Year, &w.Week); err != nil {
			return nil, err
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

// IngestionIDsForWeek returns the ingestion batches whose report week/year
// fall inside the given reporting period.
func (s *Store) IngestionIDsForWeek(ctx context.Context, year, week int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM ingestions WHERE report_year = ? AND report_week = ? ORDER BY created_at`,
		year, week)
	if err != nil {
		return nil, fmt.Errorf("ingestions for week: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanIngestion(scanner interface{ Scan(dest ...any) error }) (*Ingestion, error) {
	var (
		ing        Ingestion
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&ing.ID, &ing.SourceFile, &ing.ReportWeek, &ing.ReportYear,
		&ing.RowCount, &ing.SkippedCount, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		ing.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		ing.UpdatedAt = updated
	}
	return &ing, nil
}
