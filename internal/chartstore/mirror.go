package chartstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReplaceRefs swaps the mirrored canonical-entity tables wholesale inside a
// single transaction (delete-all, bulk insert). Safe to re-run at any time.
func (s *Store) ReplaceRefs(ctx context.Context, artists, labels []Ref) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mirror tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM artist_refs`); err != nil {
		return fmt.Errorf("clear artist refs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM label_refs`); err != nil {
		return fmt.Errorf("clear label refs: %w", err)
	}

	for _, ref := range artists {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO artist_refs (id, name, slug, status) VALUES (?, ?, ?, ?)`,
			ref.ID, ref.Name, ref.Slug, ref.Status); err != nil {
			return fmt.Errorf("insert artist ref %d: %w", ref.ID, err)
		}
	}
	for _, ref := range labels {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO label_refs (id, name, slug, status) VALUES (?, ?, ?, ?)`,
			ref.ID, ref.Name, ref.Slug, ref.Status); err != nil {
			return fmt.Errorf("insert label ref %d: %w", ref.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mirror: %w", err)
	}
	return nil
}

// OrphanCounts reports how many ranking items reference an entity id missing
// from the mirror tables.
func (s *Store) OrphanCounts(ctx context.Context) (artists, labels int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM ranking_items
         WHERE entity_type = ? AND entity_id NOT IN (SELECT id FROM artist_refs)`,
		EntityArtist).Scan(&artists)
	if err != nil {
		return 0, 0, fmt.Errorf("count orphaned artist items: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM ranking_items
         WHERE entity_type = ? AND entity_id NOT IN (SELECT id FROM label_refs)`,
		EntityLabel).Scan(&labels)
	if err != nil {
		return 0, 0, fmt.Errorf("count orphaned label items: %w", err)
	}
	return artists, labels, nil
}

// ArtistRefName resolves a mirrored artist name, or "" when unmirrored.
func (s *Store) ArtistRefName(ctx context.Context, id int64) (string, error) {
	return s.refName(ctx, "artist_refs", id)
}

// LabelRefName resolves a mirrored label name, or "" when unmirrored.
func (s *Store) LabelRefName(ctx context.Context, id int64) (string, error) {
	return s.refName(ctx, "label_refs", id)
}

func (s *Store) refName(ctx context.Context, table string, id int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM `+table+` WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve ref name: %w", err)
	}
	return name, nil
}
