// Package ingest loads source feed files into the raw schema and tracks
// every load in an ingestion log.
package ingest

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quipulab/cmn-panel/internal/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrateLockKey serializes concurrent migration runs across processes.
const migrateLockKey = 7352001

// migration is one embedded schema change, identified by its filename.
type migration struct {
	name string
	sql  string
}

// Migrate brings the raw and panel schemas up to date. Each pending
// migration runs in its own transaction together with its tracking row: a
// failure leaves earlier migrations committed and the failed one fully
// rolled back.
func Migrate(ctx context.Context, pool db.Pool) error {
	log := zap.L().With(zap.String("component", "ingest.migrate"))

	if _, err := pool.Exec(ctx, "SELECT pg_advisory_lock($1)", migrateLockKey); err != nil {
		return eris.Wrap(err, "ingest: acquire migration advisory lock")
	}
	defer func() {
		if _, err := pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrateLockKey); err != nil {
			log.Warn("ingest: failed to release migration advisory lock", zap.Error(err))
		}
	}()

	if err := ensureVersionTable(ctx, pool); err != nil {
		return err
	}

	pending, err := pendingMigrations(ctx, pool)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		log.Info("schema is up to date")
		return nil
	}

	for _, m := range pending {
		if err := applyMigration(ctx, pool, m); err != nil {
			return err
		}
		log.Info("migration applied", zap.String("version", m.name))
	}
	return nil
}

// ensureVersionTable bootstraps the raw schema and the version tracking
// table on first contact with an empty database.
func ensureVersionTable(ctx context.Context, pool db.Pool) error {
	stmts := `
		CREATE SCHEMA IF NOT EXISTS raw;
		CREATE TABLE IF NOT EXISTS raw.schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	if _, err := pool.Exec(ctx, stmts); err != nil {
		return eris.Wrap(err, "ingest: ensure migration table")
	}
	return nil
}

// pendingMigrations returns the embedded migrations not yet recorded,
// ordered by filename (zero-padded, so lexicographic is numeric order).
func pendingMigrations(ctx context.Context, pool db.Pool) ([]migration, error) {
	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return nil, err
	}

	paths, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, eris.Wrap(err, "ingest: list migrations")
	}
	sort.Strings(paths)

	var pending []migration
	for _, p := range paths {
		name := strings.TrimPrefix(p, "migrations/")
		if applied[name] {
			continue
		}
		data, err := migrationFS.ReadFile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read migration %s", name)
		}
		pending = append(pending, migration{name: name, sql: string(data)})
	}
	return pending, nil
}

// appliedMigrations returns the set of already-applied migration filenames.
func appliedMigrations(ctx context.Context, pool db.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, "SELECT filename FROM raw.schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "ingest: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "ingest: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// applyMigration runs one migration and its tracking insert atomically.
func applyMigration(ctx context.Context, pool db.Pool, m migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "ingest: begin tx for migration %s", m.name)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.sql); err != nil {
		return eris.Wrapf(err, "ingest: apply migration %s", m.name)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO raw.schema_migrations (filename) VALUES ($1)", m.name,
	); err != nil {
		return eris.Wrapf(err, "ingest: record migration %s", m.name)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "ingest: commit migration %s", m.name)
	}
	return nil
}
