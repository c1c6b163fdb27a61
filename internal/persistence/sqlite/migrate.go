package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is the ordered schema history. Entries are applied exactly once
// and never edited after release; schema changes append a new version.
var migrations = []struct {
	version int
	script  string
}{
	{
		version: 1,
		script: `
CREATE TABLE IF NOT EXISTS scheduled_sessions (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL CHECK (length(trim(title)) > 0),
	description TEXT NOT NULL DEFAULT '',
	scheduled_at TEXT NOT NULL,
	estimated_minutes INTEGER CHECK (estimated_minutes IS NULL OR estimated_minutes > 0),
	recurrence_type TEXT NOT NULL DEFAULT 'none' CHECK (recurrence_type IN ('none', 'weekly')),
	recurrence_day_of_week INTEGER CHECK (recurrence_day_of_week IS NULL OR recurrence_day_of_week BETWEEN 1 AND 7),
	recurrence_end_date TEXT,
	recurrence_count INTEGER,
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'cancelled')),
	last_notified_at TEXT,
	linked_session_id TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scheduled_sessions_owner_status
	ON scheduled_sessions (owner_id, status, scheduled_at);
`,
	},
	{
		version: 2,
		script: `
CREATE TABLE IF NOT EXISTS tags (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	name TEXT NOT NULL,
	UNIQUE (owner_id, name)
);

CREATE TABLE IF NOT EXISTS scheduled_session_tags (
	session_id TEXT NOT NULL REFERENCES scheduled_sessions (id) ON DELETE CASCADE,
	tag_id TEXT NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
	PRIMARY KEY (session_id, tag_id)
);
`,
	},
}

// Migrate brings the schema up to the current version.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	var current sql.NullInt64
	if err := cp.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	for _, migration := range migrations {
		if current.Valid && migration.version <= int(current.Int64) {
			continue
		}

		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(migration.script); err != nil {
				return fmt.Errorf("sqlite: apply migration %d: %w", migration.version, err)
			}
			if _, err := tx.Exec(
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))",
				migration.version,
			); err != nil {
				return fmt.Errorf("sqlite: record migration %d: %w", migration.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
