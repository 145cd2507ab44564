package chartstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// WindowByStart returns the window for (interval, start), or nil when it has
// never been created.
func (s *Store) WindowByStart(ctx context.Context, interval string, start time.Time) (*Window, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, interval, window_start, window_end, finalized, created_at
         FROM ranking_windows WHERE interval = ? AND window_start = ?`,
		interval, timestamp(start))
	window, err := scanWindow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("window by start: %w", err)
	}
	return window, nil
}

// LatestFinalizedBefore returns the most recent finalized window starting
// strictly before the given time, or nil when none exists. Resumed runs seed
// their previous-rank state from it.
func (s *Store) LatestFinalizedBefore(ctx context.Context, interval string, start time.Time) (*Window, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, interval, window_start, window_end, finalized, created_at
         FROM ranking_windows
         WHERE interval = ? AND finalized = 1 AND window_start < ?
         ORDER BY window_start DESC LIMIT 1`,
		interval, timestamp(start))
	window, err := scanWindow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest finalized window: %w", err)
	}
	return window, nil
}

// LatestFinalized returns the most recent finalized window, or nil.
func (s *Store) LatestFinalized(ctx context.Context, interval string) (*Window, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, interval, window_start, window_end, finalized, created_at
         FROM ranking_windows
         WHERE interval = ? AND finalized = 1
         ORDER BY window_start DESC LIMIT 1`, interval)
	window, err := scanWindow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest finalized window: %w", err)
	}
	return window, nil
}

// ListWindows returns windows ordered by start, newest first, bounded by
// limit/offset (zero limit means no bound).
func (s *Store) ListWindows(ctx context.Context, interval string, limit, offset int) ([]*Window, error) {
	builder := s.sb.
		Select("id", "interval", "window_start", "window_end", "finalized", "created_at").
		From("ranking_windows").
		Where(sq.Eq{"interval": interval}).
		OrderBy("window_start DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build window query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer rows.Close()

	var windows []*Window
	for rows.Next() {
		window, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}
	return windows, rows.Err()
}

// ReplaceWindow persists one aggregation pass atomically: the window row is
// created or reset, all prior items and receipts for it are deleted, the new
// content is inserted, and the window is finalized. Display code never
// observes a partially populated window.
func (s *Store) ReplaceWindow(ctx context.Context, write WindowWrite) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin window tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var windowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM ranking_windows WHERE interval = ? AND window_start = ?`,
		write.Interval, timestamp(write.Start)).Scan(&windowID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, insertErr := tx.ExecContext(ctx,
			`INSERT INTO ranking_windows (interval, window_start, window_end, finalized, created_at)
             VALUES (?, ?, ?, 0, ?)`,
			write.Interval, timestamp(write.Start), timestamp(write.End), timestamp(now))
		if insertErr != nil {
			return 0, fmt.Errorf("insert window: %w", insertErr)
		}
		windowID, insertErr = res.LastInsertId()
		if insertErr != nil {
			return 0, fmt.Errorf("last insert id: %w", insertErr)
		}
	case err != nil:
		return 0, fmt.Errorf("find window: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE ranking_windows SET window_end = ?, finalized = 0 WHERE id = ?`,
			timestamp(write.End), windowID); err != nil {
			return 0, fmt.Errorf("reset window: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ranking_items WHERE window_id = ?`, windowID); err != nil {
		return 0, fmt.Errorf("clear window items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fairness_receipts WHERE window_id = ?`, windowID); err != nil {
		return 0, fmt.Errorf("clear window receipts: %w", err)
	}

	insertItem := func(item Item) error {
		var prev any
		if item.PrevRank != nil {
			prev = *item.PrevRank
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ranking_items (window_id, entity_type, entity_id, rank, prev_rank, score, spins, reach)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			windowID, item.EntityType, item.EntityID, item.Rank, prev, item.Score, item.Spins, item.Reach)
		return err
	}
	for _, item := range write.Artists {
		if err := insertItem(item); err != nil {
			return 0, fmt.Errorf("insert artist item: %w", err)
		}
	}
	for _, item := range write.Labels {
		if err := insertItem(item); err != nil {
			return 0, fmt.Errorf("insert label item: %w", err)
		}
	}

	for _, receipt := range write.Receipts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO fairness_receipts (id, window_id, artist_id, spins, reach, score, source_rows, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			receipt.ID, windowID, receipt.ArtistID, receipt.Spins, receipt.Reach,
			receipt.Score, receipt.SourceRows, timestamp(now))
		if err != nil {
			return 0, fmt.Errorf("insert receipt: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE ranking_windows SET finalized = 1 WHERE id = ?`, windowID); err != nil {
		return 0, fmt.Errorf("finalize window: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit window: %w", err)
	}
	return windowID, nil
}

// RankMap loads the stored ranks of a window keyed by entity. Resumed and
// partial backfills use it so delta computation for later windows stays
// correct.
func (s *Store) RankMap(ctx context.Context, windowID int64) (map[EntityKey]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_type, entity_id, rank FROM ranking_items WHERE window_id = ?`, windowID)
	if err != nil {
		return nil, fmt.Errorf("load rank map: %w", err)
	}
	defer rows.Close()

	ranks := make(map[EntityKey]int)
	for rows.Next() {
		var (
			entityType string
			entityID   int64
			rank       int
		)
		if err := rows.Scan(&entityType, &entityID, &rank); err != nil {
			return nil, err
		}
		ranks[EntityKey{Type: EntityType(entityType), ID: entityID}] = rank
	}
	return ranks, rows.Err()
}

func scanWindow(scanner interface{ Scan(dest ...any) error }) (*Window, error) {
	var (
		window     Window
		startRaw   string
		endRaw     string
		finalized  int
		createdRaw string
	)
	if err := scanner.Scan(
		&window.ID, &window.Interval, &startRaw, &endRaw, &finalized, &createdRaw,
	); err != nil {
		return nil, err
	}
	window.Finalized = finalized != 0
	if start, err := parseTimeString(startRaw); err == nil {
		window.Start = start
	}
	if end, err := parseTimeString(endRaw); err == nil {
		window.End = end
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		window.CreatedAt = created
	}
	return &window, nil
}
