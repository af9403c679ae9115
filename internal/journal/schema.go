package journal

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS operations (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_operations_started_at ON operations(started_at);

	CREATE TABLE IF NOT EXISTS operation_members (
		operation_id TEXT NOT NULL,
		member TEXT NOT NULL,
		state TEXT NOT NULL,
		detail TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (operation_id, member),
		FOREIGN KEY (operation_id) REFERENCES operations(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_operation_members_operation_id
		ON operation_members(operation_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
