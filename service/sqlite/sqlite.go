package sqlite

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens a db at path.
// It will check stat of the db file before open it.
// It returns an error if the check or openning of the db failed.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path required")
	}
	_, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	err = pragmas(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Create creates a new initialized db.
// It returns an error if failed to create the db.
func Create(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	err = pragmas(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, err
	}
	defer tx.Rollback()
	err = CreateJobsTable(tx)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, tx.Commit()
}

// OpenOrCreate opens the db at path, or creates it when it doesn't exist yet.
func OpenOrCreate(path string) (*sql.DB, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Create(path)
	}
	return Open(path)
}

func pragmas(db *sql.DB) error {
	// Enable Write-Ahead Logging. See https://sqlite.org/wal.html
	if _, err := db.Exec(`PRAGMA journal_mode = wal;`); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	// Enable foreign key checks.
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return fmt.Errorf("foreign keys pragma: %w", err)
	}
	return nil
}
