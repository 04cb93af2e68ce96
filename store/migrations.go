package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// migration upgrades a corpus database by one schema version.
type migration struct {
	version     int
	description string
	apply       func(ctx context.Context, tx *sql.Tx, log *zap.Logger) error
}

// migrations is ordered by version. Append only.
var migrations = []migration{
	{
		version:     1,
		description: "runs and records tables (schemaSQL)",
		apply:       func(context.Context, *sql.Tx, *zap.Logger) error { return nil },
	},
	{
		version:     2,
		description: "index records by shape",
		apply: func(ctx context.Context, tx *sql.Tx, _ *zap.Logger) error {
			_, err := tx.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_records_shape ON records(shape)")
			return err
		},
	},
	{
		version:     3,
		description: "add chain lengths to records",
		apply: func(ctx context.Context, tx *sql.Tx, log *zap.Logger) error {
			// schemaSQL creates the column; only corpora written before it lack it.
			has, err := hasColumn(ctx, tx, "records", "chain_lengths")
			if err != nil {
				return err
			}
			if has {
				log.Debug("records.chain_lengths already present")
				return nil
			}
			_, err = tx.ExecContext(ctx, "ALTER TABLE records ADD COLUMN chain_lengths JSON")
			return err
		},
	},
}

// Migrate brings the corpus schema up to the latest version.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	from, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	var pending []migration
	for _, m := range migrations {
		if m.version > from {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	for _, m := range pending {
		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
	}
	s.log.Info("corpus schema migrated",
		zap.Int("from", from),
		zap.Int("to", pending[len(pending)-1].version),
		zap.Int("applied", len(pending)))
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	log := s.log.With(zap.Int("migration", m.version))
	log.Debug("applying", zap.String("description", m.description))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if err := m.apply(ctx, tx, log); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, description) VALUES (?, ?)",
		m.version, m.description); err != nil {
		return fmt.Errorf("recording migration %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", m.version, err)
	}
	return nil
}

// hasColumn reports whether table has a column named column.
func hasColumn(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspecting %s columns: %w", table, err)
	}
	return n > 0, nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}
