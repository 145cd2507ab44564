package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const rawRowColumns = "id, ingestion_id, artist_raw, title_raw, label_raw, spins, prior_spins, reach, rank_position, score, status, artist_id, label_id, created_at, updated_at"

// PendingRows returns staging rows awaiting identity resolution, oldest
// ingestion first.
func (s *Store) PendingRows(ctx context.Context) ([]*RawRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rawRowColumns+` FROM raw_report_rows WHERE status = ? ORDER BY id`,
		RowPendingMapping)
	if err != nil {
		return nil, fmt.Errorf("query pending rows: %w", err)
	}
	defer rows.Close()
	return collectRawRows(rows)
}

// RowCountForIngestion counts staging rows attached to one ingestion.
func (s *Store) RowCountForIngestion(ctx context.Context, ingestionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM raw_report_rows WHERE ingestion_id = ?`, ingestionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count staging rows: %w", err)
	}
	return count, nil
}

// LinkRow attaches a resolved canonical artist (and optionally label) to a
// staging row and marks it resolved.
func (s *Store) LinkRow(ctx context.Context, rowID, artistID int64, labelID *int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE raw_report_rows
         SET artist_id = ?, label_id = ?, status = ?, updated_at = ?
         WHERE id = ?`,
		artistID, nullableID(labelID), RowResolved, timestamp(time.Now().UTC()), rowID)
	if err != nil {
		return fmt.Errorf("link staging row: %w", err)
	}
	return nil
}

// LatestRawLabelForArtist returns the most recent non-empty raw label value
// seen in the artist's staging history, or "" when none exists.
func (s *Store) LatestRawLabelForArtist(ctx context.Context, artistID int64) (string, error) {
	var label string
	err := s.db.QueryRowContext(ctx,
		`SELECT r.label_raw
         FROM raw_report_rows r
         JOIN ingestions i ON i.id = r.ingestion_id
         WHERE r.artist_id = ? AND r.label_raw != ''
         ORDER BY i.report_year DESC, i.report_week DESC, r.id DESC
         LIMIT 1`, artistID).Scan(&label)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest raw label: %w", err)
	}
	return label, nil
}

// RawArtistNames returns the distinct raw artist strings linked to a
// canonical artist, most recent first.
func (s *Store) RawArtistNames(ctx context.Context, artistID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.artist_raw
         FROM raw_report_rows r
         JOIN ingestions i ON i.id = r.ingestion_id
         WHERE r.artist_id = ?
         GROUP BY r.artist_raw
         ORDER BY MAX(i.report_year) DESC, MAX(i.report_week) DESC`, artistID)
	if err != nil {
		return nil, fmt.Errorf("raw artist names: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

// RawLabelNamesForLabel returns the distinct raw label strings linked to a
// canonical label, most recent first. Reconciliation uses these to recover a
// display name for ghost labels via their linked artists' rows.
func (s *Store) RawLabelNamesForLabel(ctx context.Context, labelID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.label_raw
         FROM raw_report_rows r
         JOIN ingestions i ON i.id = r.ingestion_id
         WHERE r.label_raw != ''
           AND (r.label_id = ? OR r.artist_id IN (SELECT id FROM artists WHERE label_id = ?))
         GROUP BY r.label_raw
         ORDER BY MAX(i.report_year) DESC, MAX(i.report_week) DESC`, labelID, labelID)
	if err != nil {
		return nil, fmt.Errorf("raw label names: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

// ArtistAggregates sums resolved staging rows per artist across a set of
// ingestion batches: total spins, max reach, contributing row count, plus the
// artist's current label affiliation. Pending rows are excluded.
func (s *Store) ArtistAggregates(ctx context.Context, ingestionIDs []string) ([]ArtistAggregate, error) {
	if len(ingestionIDs) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(ingestionIDs))
	args := make([]any, 0, len(ingestionIDs)+1)
	args = append(args, RowResolved)
	for _, id := range ingestionIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.artist_id, a.label_id, SUM(r.spins), MAX(r.reach), COUNT(1)
         FROM raw_report_rows r
         JOIN artists a ON a.id = r.artist_id
         WHERE r.status = ? AND r.ingestion_id IN (`+placeholders+`)
         GROUP BY r.artist_id
         ORDER BY r.artist_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("artist aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []ArtistAggregate
	for rows.Next() {
		var (
			agg     ArtistAggregate
			labelID sql.NullInt64
		)
		if err := rows.Scan(&agg.ArtistID, &labelID, &agg.Spins, &agg.Reach, &agg.Rows); err != nil {
			return nil, err
		}
		if labelID.Valid {
			id := labelID.Int64
			agg.LabelID = &id
		}
		aggs = append(aggs, agg)
	}
	return aggs, rows.Err()
}

func collectRawRows(rows *sql.Rows) ([]*RawRow, error) {
	var out []*RawRow
	for rows.Next() {
		row, err := scanRawRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

func scanRawRow(scanner interface{ Scan(dest ...any) error }) (*RawRow, error) {
	var (
		row        RawRow
		statusStr  string
		artistID   sql.NullInt64
		labelID    sql.NullInt64
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&row.ID, &row.IngestionID, &row.ArtistRaw, &row.TitleRaw, &row.LabelRaw,
		&row.Spins, &row.PriorSpins, &row.Reach, &row.RankPosition, &row.Score,
		&statusStr, &artistID, &labelID, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	row.Status = RowStatus(statusStr)
	if artistID.Valid {
		id := artistID.Int64
		row.ArtistID = &id
	}
	if labelID.Valid {
		id := labelID.Int64
		row.LabelID = &id
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		row.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		row.UpdatedAt = updated
	}
	return &row, nil
}
