package db

import "gitlab.com/tozd/go/errors"

func (d *DB) migrate() error {
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return errors.Errorf("creating migrations table: %w", err)
	}

	var version int
	if err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return errors.Errorf("getting schema version: %w", err)
	}

	migrations := []func(*DB) error{
		migrateV1,
		migrateV2,
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](d); err != nil {
			return errors.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := d.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			return errors.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

func migrateV1(d *DB) error {
	statements := []string{
		`CREATE TABLE catalog_cache (
			position INTEGER NOT NULL,
			name TEXT PRIMARY KEY,
			version TEXT NOT NULL,
			payload TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)`,
		`CREATE TABLE install_history (
			id TEXT PRIMARY KEY,
			mod TEXT NOT NULL,
			version TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := d.Exec(stmt); err != nil {
			return errors.Errorf("executing %q: %w", stmt[:30], err)
		}
	}
	return nil
}

func migrateV2(d *DB) error {
	_, err := d.Exec(`CREATE INDEX idx_install_history_mod_at ON install_history(mod, at)`)
	return err
}
