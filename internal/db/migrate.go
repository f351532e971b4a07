package db

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded goose migrations that create the
// dashboard's fixed tables (file_available, sync_history).
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(EmbedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// Migrate opens a write handle on path, applies migrations, and closes it.
func Migrate(path string) error {
	db, err := OpenSQLite(path, ModeWrite, 0)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	return RunMigrations(db)
}
