package database

import (
	"context"
	"encoding/json"
	"fmt"

	"trading-autopilot/internal/autopilot"
)

// AppendRunLog writes one cycle summary record
func (db *DB) AppendRunLog(ctx context.Context, entry *autopilot.RunLogEntry) error {
	if db.Pool == nil {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode run log entry: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO autopilot_runs (id, kind, mode, dry_run, ok, error, data, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.Kind, entry.Mode, entry.DryRun, entry.OK,
		nullString(entry.Error), data, entry.StartedAt, entry.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append run log entry: %w", err)
	}

	return nil
}

// ListRunLog returns the most recent run log entries, newest first
func (db *DB) ListRunLog(ctx context.Context, limit int) ([]*autopilot.RunLogEntry, error) {
	if db.Pool == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT data FROM autopilot_runs ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list run log: %w", err)
	}
	defer rows.Close()

	var entries []*autopilot.RunLogEntry
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan run log entry: %w", err)
		}
		var entry autopilot.RunLogEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode run log entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
