package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/kwisatz/internal/common"
)

// Migration is one forward-only schema step, tracked in PRAGMA user_version.
type Migration struct {
	Description string
	Statements  []string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "correction log",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS corrections (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT UNIQUE NOT NULL,
				description TEXT NOT NULL,
				normalized_description TEXT NOT NULL,
				predicted_category_id TEXT NOT NULL,
				corrected_category_id TEXT NOT NULL,
				metadata TEXT NOT NULL DEFAULT '{}',
				recorded_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_corrections_corrected ON corrections(corrected_category_id)`,
			`CREATE INDEX IF NOT EXISTS idx_corrections_recorded_at ON corrections(recorded_at)`,
		},
	},
	{
		Version:     2,
		Description: "append-only correction log",
		Statements: []string{
			`CREATE TRIGGER IF NOT EXISTS corrections_no_update
			BEFORE UPDATE ON corrections
			BEGIN
				SELECT RAISE(ABORT, 'corrections are append-only');
			END`,
			`CREATE TRIGGER IF NOT EXISTS corrections_no_delete
			BEFORE DELETE ON corrections
			BEGIN
				SELECT RAISE(ABORT, 'corrections are append-only');
			END`,
		},
	},
}

// SchemaVersion is the version Migrate brings a database to.
func SchemaVersion() int {
	return migrations[len(migrations)-1].Version
}

// Migrate applies pending migrations, one transaction each.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	current, err := s.userVersion(ctx)
	if err != nil {
		return err
	}
	if current > SchemaVersion() {
		return fmt.Errorf("%w: schema version %d is newer than supported %d",
			common.ErrDatabaseCorrupted, current, SchemaVersion())
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		slog.Info("applied migration", "version", m.Version, "description", m.Description)
	}
	return nil
}

func (s *SQLiteStorage) apply(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed on %q: %w", m.Version, compact(stmt), err)
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}

func (s *SQLiteStorage) userVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func compact(stmt string) string {
	return strings.Join(strings.Fields(stmt), " ")
}
