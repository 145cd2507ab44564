package chartstore

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Items returns the ranked entries of one window and entity type, best rank
// first, bounded by limit when positive.
func (s *Store) Items(ctx context.Context, windowID int64, entityType EntityType, limit int) ([]*Item, error) {
	builder := s.sb.
		Select("id", "window_id", "entity_type", "entity_id", "rank", "prev_rank", "score", "spins", "reach").
		From("ranking_items").
		Where(sq.Eq{"window_id": windowID, "entity_type": entityType}).
		OrderBy("rank")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ItemsForEntity returns an entity's chart history, newest window first.
func (s *Store) ItemsForEntity(ctx context.Context, entityType EntityType, entityID int64, limit int) ([]*Item, error) {
	builder := s.sb.
		Select("i.id", "i.window_id", "i.entity_type", "i.entity_id", "i.rank", "i.prev_rank", "i.score", "i.spins", "i.reach").
		From("ranking_items i").
		Join("ranking_windows w ON w.id = i.window_id").
		Where(sq.Eq{"i.entity_type": entityType, "i.entity_id": entityID}).
		OrderBy("w.window_start DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build entity history query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entity history: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReceiptsForWindow returns the fairness receipts persisted for a window.
func (s *Store) ReceiptsForWindow(ctx context.Context, windowID int64) ([]*Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, window_id, artist_id, spins, reach, score, source_rows, created_at
         FROM fairness_receipts WHERE window_id = ? ORDER BY artist_id`, windowID)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*Receipt
	for rows.Next() {
		var (
			receipt    Receipt
			createdRaw string
		)
		if err := rows.Scan(
			&receipt.ID, &receipt.WindowID, &receipt.ArtistID, &receipt.Spins,
			&receipt.Reach, &receipt.Score, &receipt.SourceRows, &createdRaw,
		); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			receipt.CreatedAt = created
		}
		receipts = append(receipts, &receipt)
	}
	return receipts, rows.Err()
}

// RepointEntity moves every ranking item and receipt from one canonical id
// to another inside a single transaction. Where the target already charts in
// a window, the duplicate's row is dropped rather than violating the
// (window, entity_type, entity_id) uniqueness, and the window is reopened so
// the next aggregation run rebuilds its rank sequence without a gap.
func (s *Store) RepointEntity(ctx context.Context, entityType EntityType, fromID, toID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin repoint tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE ranking_windows SET finalized = 0
         WHERE id IN (
             SELECT a.window_id FROM ranking_items a
             JOIN ranking_items b
               ON b.window_id = a.window_id AND b.entity_type = a.entity_type
             WHERE a.entity_type = ? AND a.entity_id = ? AND b.entity_id = ?
         )`,
		entityType, fromID, toID); err != nil {
		return fmt.Errorf("reopen conflicted windows: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE OR IGNORE ranking_items SET entity_id = ? WHERE entity_type = ? AND entity_id = ?`,
		toID, entityType, fromID); err != nil {
		return fmt.Errorf("repoint ranking items: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ranking_items WHERE entity_type = ? AND entity_id = ?`,
		entityType, fromID); err != nil {
		return fmt.Errorf("drop conflicting ranking items: %w", err)
	}

	if entityType == EntityArtist {
		if _, err := tx.ExecContext(ctx,
			`UPDATE fairness_receipts SET artist_id = ? WHERE artist_id = ?`,
			toID, fromID); err != nil {
			return fmt.Errorf("repoint receipts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit repoint: %w", err)
	}
	return nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item       Item
		entityType string
		prevRank   sql.NullInt64
	)
	if err := scanner.Scan(
		&item.ID, &item.WindowID, &entityType, &item.EntityID,
		&item.Rank, &prevRank, &item.Score, &item.Spins, &item.Reach,
	); err != nil {
		return nil, err
	}
	item.EntityType = EntityType(entityType)
	if prevRank.Valid {
		rank := int(prevRank.Int64)
		item.PrevRank = &rank
	}
	return &item, nil
}
