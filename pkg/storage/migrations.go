package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: run history
	`CREATE TABLE IF NOT EXISTS refresh_runs (
		id          TEXT PRIMARY KEY,
		started_at  DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		succeeded   INTEGER NOT NULL DEFAULT 0,
		status_file TEXT NOT NULL DEFAULT '',
		alert_count INTEGER NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON refresh_runs(started_at);

	CREATE TABLE IF NOT EXISTS stage_results (
		run_id    TEXT NOT NULL REFERENCES refresh_runs(id) ON DELETE CASCADE,
		stage     TEXT NOT NULL,
		status    TEXT NOT NULL CHECK(status IN ('success', 'error')),
		records   INTEGER,
		error     TEXT NOT NULL DEFAULT '',
		timestamp DATETIME NOT NULL,
		PRIMARY KEY (run_id, stage)
	);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	// Migration 2: alerts raised per run
	`CREATE TABLE IF NOT EXISTS alert_history (
		run_id             TEXT NOT NULL REFERENCES refresh_runs(id) ON DELETE CASCADE,
		seq                INTEGER NOT NULL,
		type               TEXT NOT NULL,
		campaign_id        TEXT NOT NULL,
		campaign_name      TEXT NOT NULL DEFAULT '',
		channel            TEXT NOT NULL DEFAULT '',
		issue              TEXT NOT NULL,
		current_value      TEXT NOT NULL DEFAULT '',
		recommended_action TEXT NOT NULL DEFAULT '',
		priority           TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_alert_campaign ON alert_history(campaign_id);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
