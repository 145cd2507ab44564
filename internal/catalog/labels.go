package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const labelColumns = "id, name, normalized_name, slug, status, created_at, updated_at"

// LabelByID fetches a canonical label, or nil when it does not exist.
func (s *Store) LabelByID(ctx context.Context, id int64) (*Label, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE id = ?`, id)
	label, err := scanLabel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("label by id: %w", err)
	}
	return label, nil
}

// LabelByNormalized looks up a canonical label by exact normalized name,
// preferring active entities over ghosts.
func (s *Store) LabelByNormalized(ctx context.Context, normalized string) (*Label, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+labelColumns+` FROM labels
         WHERE normalized_name = ?
         ORDER BY CASE status WHEN 'active' THEN 0 ELSE 1 END, created_at, id
         LIMIT 1`, normalized)
	label, err := scanLabel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("label by normalized name: %w", err)
	}
	return label, nil
}

// InsertLabel persists a new canonical label and assigns its id.
func (s *Store) InsertLabel(ctx context.Context, label *Label) error {
	if label == nil {
		return errors.New("label is nil")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO labels (name, normalized_name, slug, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		label.Name, label.NormalizedName, label.Slug, label.Status,
		timestamp(now), timestamp(now))
	if err != nil {
		return fmt.Errorf("insert label: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	label.ID = id
	label.CreatedAt = now
	label.UpdatedAt = now
	return nil
}

// UpdateLabel persists changes to an existing label.
func (s *Store) UpdateLabel(ctx context.Context, label *Label) error {
	if label == nil {
		return errors.New("label is nil")
	}
	label.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE labels
         SET name = ?, normalized_name = ?, slug = ?, status = ?, updated_at = ?
         WHERE id = ?`,
		label.Name, label.NormalizedName, label.Slug, label.Status,
		timestamp(label.UpdatedAt), label.ID)
	if err != nil {
		return fmt.Errorf("update label: %w", err)
	}
	return nil
}

// ListLabels returns all canonical labels ordered by id, optionally filtered
// by status.
func (s *Store) ListLabels(ctx context.Context, statuses ...EntityStatus) ([]*Label, error) {
	query := `SELECT ` + labelColumns + ` FROM labels`
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
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()
	return collectLabels(rows)
}

// DuplicateLabelGroups returns groups of labels sharing a normalized name,
// each group ordered earliest-created first.
func (s *Store) DuplicateLabelGroups(ctx context.Context) ([][]*Label, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+labelColumns+` FROM labels
         WHERE normalized_name IN (
            SELECT normalized_name FROM labels GROUP BY normalized_name HAVING COUNT(1) > 1
         )
         ORDER BY normalized_name, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("duplicate label groups: %w", err)
	}
	defer rows.Close()

	labels, err := collectLabels(rows)
	if err != nil {
		return nil, err
	}
	return groupLabels(labels), nil
}

// MergeLabels repoints staging rows and artist affiliations from the
// duplicate labels to the primary and deletes the duplicates in one
// transaction.
func (s *Store) MergeLabels(ctx context.Context, primaryID int64, duplicateIDs []int64) error {
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
		`UPDATE raw_report_rows SET label_id = ?, updated_at = ? WHERE label_id IN (`+placeholders+`)`,
		args...); err != nil {
		return fmt.Errorf("repoint staging rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE artists SET label_id = ?, updated_at = ? WHERE label_id IN (`+placeholders+`)`,
		args...); err != nil {
		return fmt.Errorf("repoint artist affiliations: %w", err)
	}

	delArgs := make([]any, 0, len(duplicateIDs))
	for _, id := range duplicateIDs {
		delArgs = append(delArgs, id)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM labels WHERE id IN (`+placeholders+`)`, delArgs...); err != nil {
		return fmt.Errorf("delete duplicate labels: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	return nil
}

func groupLabels(labels []*Label) [][]*Label {
	var groups [][]*Label
	var current []*Label
	for _, label := range labels {
		if len(current) > 0 && current[0].NormalizedName != label.NormalizedName {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, label)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func collectLabels(rows *sql.Rows) ([]*Label, error) {
	var out []*Label
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, label)
	}
	return out, rows.Err()
}

func scanLabel(scanner interface{ Scan(dest ...any) error }) (*Label, error) {
	var (
		label      Label
		statusStr  string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&label.ID, &label.Name, &label.NormalizedName, &label.Slug,
		&statusStr, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	label.Status = EntityStatus(statusStr)
	if created, err := parseTimeString(createdRaw); err == nil {
		label.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		label.UpdatedAt = updated
	}
	return &label, nil
}
