package repository

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in schema_version. Changing schema.sql requires a bump.
const schemaVersion = 1

// initSchema creates the tables in an empty database and rejects databases
// written by a different schema version.
func (s *Store) initSchema(ctx context.Context) error {
	version, found, err := s.storedSchemaVersion(ctx)
	if err != nil {
		return err
	}
	switch {
	case !found:
		return s.createSchema(ctx)
	case version != schemaVersion:
		return fmt.Errorf("%w: %s has version %d, this build expects %d (move the repository database aside)",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	default:
		return nil
	}
}

func (s *Store) storedSchemaVersion(ctx context.Context) (int, bool, error) {
	var tables int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'",
	).Scan(&tables); err != nil {
		return 0, false, fmt.Errorf("inspect repository schema: %w", err)
	}
	if tables == 0 {
		return 0, false, nil
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, true, nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create repository schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}
