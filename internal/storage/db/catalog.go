package db

import (
	"context"
	"encoding/json"
	"time"

	"butterfly/internal/domain"

	"gitlab.com/tozd/go/errors"
)

// SaveCatalog replaces the cached remote catalog with entries
func (d *DB) SaveCatalog(ctx context.Context, entries []domain.ModManifestEntry) (err error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return errors.Errorf("starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM catalog_cache"); err != nil {
		return errors.Errorf("clearing catalog cache: %w", err)
	}

	now := time.Now().UnixMilli()
	for i, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return errors.Errorf("encoding %s: %w", e.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_cache (position, name, version, payload, fetched_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				version = excluded.version,
				payload = excluded.payload,
				fetched_at = excluded.fetched_at
		`, i, e.Name, e.Version, string(payload), now); err != nil {
			return errors.Errorf("caching %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Errorf("committing catalog cache: %w", err)
	}
	return nil
}

// LoadCatalog returns the cached catalog in its original order and when it
// was fetched. An empty cache returns no entries and the zero time.
func (d *DB) LoadCatalog(ctx context.Context) ([]domain.ModManifestEntry, time.Time, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT payload, fetched_at FROM catalog_cache ORDER BY position
	`)
	if err != nil {
		return nil, time.Time{}, errors.Errorf("loading catalog cache: %w", err)
	}
	defer rows.Close()

	var (
		entries []domain.ModManifestEntry
		fetched int64
	)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload, &fetched); err != nil {
			return nil, time.Time{}, errors.Errorf("scanning catalog cache: %w", err)
		}
		var e domain.ModManifestEntry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, time.Time{}, errors.Errorf("decoding cached entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, errors.Errorf("reading catalog cache: %w", err)
	}
	if len(entries) == 0 {
		return nil, time.Time{}, nil
	}
	return entries, time.UnixMilli(fetched), nil
}
