package storage

import (
	"database/sql"
	"fmt"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_match_run_index",
		Up:      migration002AddMatchRunIndex,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version, migration.Name,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (s *Storage) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func migration001InitialSchema(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE reconciliation_runs (
		id TEXT PRIMARY KEY,
		threshold REAL NOT NULL,
		total_invoices INTEGER NOT NULL,
		total_bank INTEGER NOT NULL,
		match_count INTEGER NOT NULL,
		unmatched_invoices INTEGER NOT NULL,
		unmatched_bank INTEGER NOT NULL,
		candidate_count INTEGER NOT NULL,
		cross_product_size INTEGER NOT NULL,
		total_invoice_amount_cents INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
	CREATE TABLE reconciliation_matches (
		match_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES reconciliation_runs(id) ON DELETE CASCADE,
		invoice_ref INTEGER NOT NULL,
		bank_ref INTEGER NOT NULL,
		invoice_description TEXT NOT NULL DEFAULT '',
		bank_description TEXT NOT NULL DEFAULT '',
		invoice_amount_cents INTEGER NOT NULL,
		bank_amount_cents INTEGER NOT NULL,
		score REAL NOT NULL,
		is_manual INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		UNIQUE (run_id, invoice_ref),
		UNIQUE (run_id, bank_ref)
	)`)
	return err
}

func migration002AddMatchRunIndex(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE INDEX IF NOT EXISTS idx_matches_run_created
	ON reconciliation_matches(run_id, created_at)`)
	return err
}
