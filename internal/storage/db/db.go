// Package db keeps the offline catalog cache and the install history in SQLite.
package db

import (
	"database/sql"

	"gitlab.com/tozd/go/errors"
	_ "modernc.org/sqlite"
)

// FileName is the database file inside the data directory
const FileName = "butterfly.db"

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection and runs migrations
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		sqlDB.Close()
		return nil, errors.Errorf("setting pragmas: %w", err)
	}

	database := &DB{DB: sqlDB}

	if err := database.migrate(); err != nil {
		sqlDB.Close()
		return nil, errors.Errorf("running migrations: %w", err)
	}

	return database, nil
}
