package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const artistColumns = "id, name, normalized_name, slug, status, label_id, created_at, updated_at"

// ArtistByID fetches a canonical artist, or nil when it does not exist.
func (s *Store) ArtistByID(ctx context.Context, id int64) (*Artist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE id = ?`, id)
	artist, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("artist by id: %w", err)
	}
	return artist, nil
}

// ArtistByNormalized looks up a canonical artist by exact normalized name.
// Active entities win over ghosts; ties go to the earliest-created.
func (s *Store) ArtistByNormalized(ctx context.Context, normalized string) (*Artist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artistColumns+` FROM artists
         WHERE normalized_name = ?
         ORDER BY CASE status WHEN 'active' THEN 0 ELSE 1 END, created_at, id
         LIMIT 1`, normalized)
	artist, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("artist by normalized name: %w", err)
	}
	return artist, nil
}

// InsertArtist persists a new canonical artist and assigns its id. Callers
// should check IsConstraintErr to detect slug or active-name collisions.
func (s *Store) InsertArtist(ctx context.Context, artist *Artist) error {
	if artist == nil {
		return errors.New("artist is nil")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO artists (name, normalized_name, slug, status, label_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		artist.Name, artist.NormalizedName, artist.Slug, artist.Status,
		nullableID(artist.LabelID), timestamp(now), timestamp(now))
	if err != nil {
		return fmt.Errorf("insert artist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	artist.ID = id
	artist.CreatedAt = now
	artist.UpdatedAt = now
	return nil
}

// UpdateArtist persists changes to an existing artist.
func (s *Store) UpdateArtist(ctx context.Context, artist *Artist) error {
	if artist == nil {
		return errors.New("artist is nil")
	}
	artist.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE artists
         SET name = ?, normalized_name = ?, slug = ?, status = ?, label_id = ?, updated_at = ?
         WHERE id = ?`,
		artist.Name, artist.NormalizedName, artist.Slug, artist.Status,
		nullableID(artist.LabelID), timestamp(artist.UpdatedAt), artist.ID)
	if err != nil {
		return fmt.Errorf("update artist: %w", err)
	}
	return nil
}

// SetArtistLabel attaches a label affiliation to an artist.
func (s *Store) SetArtistLabel(ctx context.Context, artistID, labelID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE artists SET label_id = ?, updated_at = ? WHERE id = ?`,
		labelID, timestamp(time.Now().UTC()), artistID)
	if err != nil {
		return fmt.Errorf("set artist label: %w", err)
	}
	return nil
}

// ListArtists returns all canonical artists ordered by id. Filter by status
// when statuses are provided.
func (s *Store) ListArtists(ctx context.Context, statuses ...EntityStatus) ([]*Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	defer rows.Close()
	return collectArtists(rows)
}

// ArtistsWithoutLabel returns artists missing a label affiliation.
func (s *Store) ArtistsWithoutLabel(ctx context.Context) ([]*Artist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE label_id IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("artists without label: %w", err)
	}
	defer rows.Close()
	return collectArtists(rows)
}

// DuplicateArtistGroups returns groups of artists sharing a normalized name,
// each group ordered earliest-created first (the merge primary).
func (s *Store) DuplicateArtistGroups(ctx context.Context) ([][]*Artist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+artistColumns+` FROM artists
         WHERE normalized_name IN (
            SELECT normalized_name FROM artists GROUP BY normalized_name HAVING COUNT(1) > 1
         )
         ORDER BY normalized_name, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("duplicate artist groups: %w", err)
	}
	defer rows.Close()

	artists, err := collectArtists(rows)
	if err != nil {
		return nil, err
	}
	return groupArtists(artists), nil
}

// MergeArtists repoints every catalog reference from the duplicate artists to
// the primary and deletes the duplicates, all in one transaction. Chart-store
// references are repointed separately by the caller.
func (s *Store) MergeArtists(ctx context.Context, primaryID int64, duplicateIDs []int64) error {
	if len(duplicateIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := timestamp(time.Now().UTC())
	placeholders := makePlaceholders(len(duplicateIDs))
	args := make([]any, 0, len(duplicateIDs)+2)
	args = append(args, primaryID, now)
	for _, id := range duplicateIDs {
		args = append(args, id)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE raw_report_rows SET artist_id = ?, updated_at = ? WHERE artist_id IN (`+placeholders+`)`,
		args...); err != nil {
		return fmt.Errorf("repoint staging rows: %w", err)
	}

	delArgs := make([]any, 0, len(duplicateIDs))
	for _, id := range duplicateIDs {
		delArgs = append(delArgs, id)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM artists WHERE id IN (`+placeholders+`)`, delArgs...); err != nil {
		return fmt.Errorf("delete duplicate artists: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	return nil
}

// DeleteArtist removes a canonical artist outright. Staging rows keep their
// link only until the next resolver run; use MergeArtists for curation.
func (s *Store) DeleteArtist(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete artist: %w", err)
	}
	return nil
}

func groupArtists(artists []*Artist) [][]*Artist {
	var groups [][]*Artist
	var current []*Artist
	for _, artist := range artists {
		if len(current) > 0 && current[0].NormalizedName != artist.NormalizedName {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, artist)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func collectArtists(rows *sql.Rows) ([]*Artist, error) {
	var out []*Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, artist)
	}
	return out, rows.Err()
}

func scanArtist(scanner interface{ Scan(dest ...any) error }) (*Artist, error) {
	var (
		artist     Artist
		statusStr  string
		labelID    sql.NullInt64
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&artist.ID, &artist.Name, &artist.NormalizedName, &artist.Slug,
		&statusStr, &labelID, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	artist.Status = EntityStatus(statusStr)
	if labelID.Valid {
		id := labelID.Int64
		artist.LabelID = &id
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		artist.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		artist.UpdatedAt = updated
	}
	return &artist, nil
}
