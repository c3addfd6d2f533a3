package db

import (
	"context"
	"fmt"
	"strings"
)

// Apply records tags for a path and returns the subset that was newly
// inserted. Existing (path, tag) pairs are left as-is and excluded from the
// returned set, so undo of a later run never clears a tag an earlier run or
// an external actor applied.
func (db *DB) Apply(ctx context.Context, path string, tags []string, runID string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var applied []string
	for _, tag := range tags {
		result, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO file_tags (path, tag, run_id) VALUES (?, ?, ?)
		`, path, tag, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to apply tag %q: %w", tag, err)
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			applied = append(applied, tag)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return applied, nil
}

// Remove deletes exactly the given tags from a path and reports how many
// were present. Tags outside the set are untouched.
func (db *DB) Remove(ctx context.Context, path string, tags []string) (int, error) {
	if len(tags) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(tags))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(tags)+1)
	args = append(args, path)
	for _, tag := range tags {
		args = append(args, tag)
	}

	result, err := db.conn.ExecContext(ctx,
		"DELETE FROM file_tags WHERE path = ? AND tag IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to remove tags: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

// Rename repoints tag rows when a file moves so tags follow the file.
func (db *DB) Rename(ctx context.Context, oldPath, newPath string) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE OR REPLACE file_tags SET path = ? WHERE path = ?
	`, newPath, oldPath)
	if err != nil {
		return fmt.Errorf("failed to move tags: %w", err)
	}
	return nil
}

// TagsFor returns the tags recorded for a path, in application order.
func (db *DB) TagsFor(ctx context.Context, path string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT tag FROM file_tags WHERE path = ? ORDER BY applied_at, tag
	`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
