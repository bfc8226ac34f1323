package store

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"

	"github.com/woa-project/usbfnswitch/internal/constants"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS registry_keys (
		path TEXT PRIMARY KEY COLLATE NOCASE,
		parent TEXT NOT NULL COLLATE NOCASE,
		name TEXT NOT NULL,
		protected INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_registry_keys_parent ON registry_keys(parent)`,
	`CREATE TABLE IF NOT EXISTS registry_values (
		key_path TEXT NOT NULL COLLATE NOCASE,
		name TEXT NOT NULL COLLATE NOCASE,
		kind TEXT NOT NULL CHECK (kind IN ('REG_DWORD', 'REG_SZ', 'REG_MULTI_SZ')),
		int_value INTEGER,
		str_value TEXT,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (key_path, name),
		FOREIGN KEY (key_path) REFERENCES registry_keys(path) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS role_switches (
		id TEXT PRIMARY KEY,
		backend TEXT NOT NULL,
		from_role TEXT NOT NULL DEFAULT '',
		to_role TEXT NOT NULL,
		outcome TEXT NOT NULL CHECK (outcome IN ('applied', 'failed')),
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT (STRFTIME('%Y-%m-%dT%H:%M:%fZ', 'now'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_role_switches_created ON role_switches(created_at)`,
}

func applyPragmas(ctx context.Context, db *sql.DB, readOnly bool) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", int(constants.StoreBusyTimeout.Milliseconds())),
		"PRAGMA foreign_keys = ON",
	}

	if !readOnly {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA temp_store = MEMORY",
		)
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("config: apply pragma %q: %w", pragma, err)
		}
	}

	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("config: begin schema transaction: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("config: apply schema statement %q: %w", abbreviate(stmt), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("config: commit schema transaction: %w", err)
	}

	return nil
}

// DefaultSettings returns the values seeded into a fresh store.
func DefaultSettings() map[string]string {
	backend := BackendEmulated
	if runtime.GOOS == "windows" {
		backend = BackendNative
	}
	return map[string]string{
		SettingBackend:            backend,
		SettingRebootDelaySeconds: fmt.Sprintf("%d", int(constants.DefaultRebootDelay.Seconds())),
		SettingRebootEnabled:      "true",
	}
}

func seedDefaults(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("config: begin seed transaction: %w", err)
	}

	for key, value := range DefaultSettings() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO NOTHING
		`, key, value); err != nil {
			tx.Rollback()
			return fmt.Errorf("config: seed setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("config: commit seed transaction: %w", err)
	}

	return nil
}

func abbreviate(stmt string) string {
	const maxLen = 64
	trimmed := strings.Join(strings.Fields(stmt), " ")
	if len(trimmed) <= maxLen {
		return trimmed
	}
	return trimmed[:maxLen] + "…"
}
