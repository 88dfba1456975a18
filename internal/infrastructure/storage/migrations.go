package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
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
		Name:    "seed_id_counters",
		Up:      migration002SeedIDCounters,
	},
}

// runMigrations executes all pending migrations
func (s *SQLite) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		slog.Info("running migration", "version", migration.Version, "name", migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *SQLite) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *SQLite) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// migration001InitialSchema creates the four ledger stores plus the
// settlement accounts table. The seq rowid preserves insertion order;
// monetary amounts are stored as decimal strings.
func migration001InitialSchema(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			side TEXT NOT NULL,
			date TIMESTAMP,
			description TEXT NOT NULL DEFAULT '',
			reference TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL DEFAULT '0',
			currency TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'unmatched',
			confidence INTEGER NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			partner TEXT NOT NULL DEFAULT '',
			bank_account TEXT NOT NULL DEFAULT '',
			account_number TEXT NOT NULL DEFAULT '',
			UNIQUE(side, id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_transactions_status
		 ON transactions(side, status)`,

		`CREATE TABLE IF NOT EXISTS match_records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			bank_transaction_id TEXT NOT NULL,
			system_transaction_id TEXT NOT NULL,
			matched_at TIMESTAMP NOT NULL,
			matched_by TEXT NOT NULL DEFAULT '',
			match_type TEXT NOT NULL,
			confidence INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT ''
		)`,

		// One active match per transaction, enforced at the schema level too
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_match_records_bank
		 ON match_records(bank_transaction_id)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_match_records_system
		 ON match_records(system_transaction_id)`,

		`CREATE TABLE IF NOT EXISTS exceptions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			bank_transaction_id TEXT NOT NULL DEFAULT '',
			system_transaction_id TEXT NOT NULL DEFAULT '',
			suggested_action TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_exceptions_type
		 ON exceptions(type)`,

		`CREATE TABLE IF NOT EXISTS watchlist_items (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL DEFAULT '0',
			added_date TIMESTAMP,
			expected_clear_date TIMESTAMP,
			type TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			balance TEXT NOT NULL DEFAULT '0',
			status TEXT NOT NULL,
			last_reconciled TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS id_counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// migration002SeedIDCounters initializes the monotonic M/W sequences.
func migration002SeedIDCounters(db *sql.Tx) error {
	queries := []string{
		`INSERT OR IGNORE INTO id_counters (name, value) VALUES ('match_seq', 0)`,
		`INSERT OR IGNORE INTO id_counters (name, value) VALUES ('watchlist_seq', 0)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
