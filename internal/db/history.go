package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomclarke/orgman/internal/engine"
)

// HistoryEntry is the persisted summary of one organize run. Created at run
// start, updated at completion, consumed by undo.
type HistoryEntry struct {
	ID        int64
	RunID     string
	RootPath  string
	Status    engine.Status
	Created   int
	Moved     int
	Renamed   int
	Tagged    int
	Skipped   int
	ErrorText string
	Ledger    *engine.Ledger
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateHistoryEntry inserts a new entry and trims history beyond the cap,
// oldest first. Sets entry.ID on success.
func (db *DB) CreateHistoryEntry(ctx context.Context, entry *HistoryEntry) error {
	ledgerJSON, err := marshalLedger(entry.Ledger)
	if err != nil {
		return err
	}

	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO history (run_id, root_path, status, created, moved, renamed, tagged, skipped, error_text, ledger_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.RunID, entry.RootPath, string(entry.Status),
		entry.Created, entry.Moved, entry.Renamed, entry.Tagged, entry.Skipped,
		entry.ErrorText, ledgerJSON)
	if err != nil {
		return fmt.Errorf("failed to create history entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get history entry ID: %w", err)
	}
	entry.ID = id

	return db.trimHistory(ctx)
}

// UpdateHistoryEntry rewrites a run's status, counts, and ledger.
func (db *DB) UpdateHistoryEntry(ctx context.Context, entry *HistoryEntry) error {
	ledgerJSON, err := marshalLedger(entry.Ledger)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, `
		UPDATE history
		SET status = ?, created = ?, moved = ?, renamed = ?, tagged = ?, skipped = ?,
		    error_text = ?, ledger_json = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(entry.Status), entry.Created, entry.Moved, entry.Renamed, entry.Tagged,
		entry.Skipped, entry.ErrorText, ledgerJSON, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to update history entry: %w", err)
	}
	return nil
}

// GetHistoryEntry loads one entry by ID.
func (db *DB) GetHistoryEntry(ctx context.Context, id int64) (*HistoryEntry, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, run_id, root_path, status, created, moved, renamed, tagged, skipped,
		       error_text, ledger_json, created_at, updated_at
		FROM history WHERE id = ?
	`, id)
	return scanHistoryEntry(row)
}

// LatestHistoryEntry loads the most recent entry, or nil when history is empty.
func (db *DB) LatestHistoryEntry(ctx context.Context) (*HistoryEntry, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, run_id, root_path, status, created, moved, renamed, tagged, skipped,
		       error_text, ledger_json, created_at, updated_at
		FROM history ORDER BY id DESC LIMIT 1
	`)
	entry, err := scanHistoryEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

// ListHistory returns entries newest first, up to limit (0 = all retained).
func (db *DB) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	query := `
		SELECT id, run_id, root_path, status, created, moved, renamed, tagged, skipped,
		       error_text, ledger_json, created_at, updated_at
		FROM history ORDER BY id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []HistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// trimHistory drops the oldest entries beyond the cap.
func (db *DB) trimHistory(ctx context.Context) error {
	keep := db.HistoryCap
	if keep <= 0 {
		return nil
	}
	_, err := db.conn.ExecContext(ctx, `
		DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHistoryEntry(row scanner) (*HistoryEntry, error) {
	var entry HistoryEntry
	var status, ledgerJSON string
	err := row.Scan(&entry.ID, &entry.RunID, &entry.RootPath, &status,
		&entry.Created, &entry.Moved, &entry.Renamed, &entry.Tagged, &entry.Skipped,
		&entry.ErrorText, &ledgerJSON, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan history entry: %w", err)
	}
	entry.Status = engine.Status(status)

	if ledgerJSON != "" {
		ledger, err := engine.UnmarshalLedger([]byte(ledgerJSON))
		if err != nil {
			return nil, err
		}
		entry.Ledger = ledger
	}
	return &entry, nil
}

func marshalLedger(l *engine.Ledger) (string, error) {
	if l == nil {
		return "", nil
	}
	data, err := engine.MarshalLedger(l)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
