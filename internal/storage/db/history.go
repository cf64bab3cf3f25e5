package db

import (
	"context"
	"time"

	"butterfly/internal/domain"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"
)

// RecordHistory appends an entry to the install history
func (d *DB) RecordHistory(ctx context.Context, e domain.HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := d.ExecContext(ctx, `
		INSERT INTO install_history (id, mod, version, action, error, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Mod, e.Version, string(e.Action), e.Error, e.At.UnixMilli())
	if err != nil {
		return errors.Errorf("recording history: %w", err)
	}
	return nil
}

// History returns the most recent entries, newest first. A limit of zero
// or less returns everything. A non-empty mod filters by mod name.
func (d *DB) History(ctx context.Context, mod string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.QueryContext(ctx, `
		SELECT id, mod, version, action, error, at
		FROM install_history
		WHERE ? = '' OR mod = ?
		ORDER BY at DESC, rowid DESC
		LIMIT ?
	`, mod, mod, limit)
	if err != nil {
		return nil, errors.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			e      domain.HistoryEntry
			action string
			at     int64
		)
		if err := rows.Scan(&e.ID, &e.Mod, &e.Version, &action, &e.Error, &at); err != nil {
			return nil, errors.Errorf("scanning history: %w", err)
		}
		e.Action = domain.HistoryAction(action)
		e.At = time.UnixMilli(at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("reading history: %w", err)
	}
	return entries, nil
}

// ClearHistory removes every history entry
func (d *DB) ClearHistory(ctx context.Context) error {
	if _, err := d.ExecContext(ctx, "DELETE FROM install_history"); err != nil {
		return errors.Errorf("clearing history: %w", err)
	}
	return nil
}
