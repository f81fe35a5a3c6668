// Package audit writes the item-level trace behind the indicators to a local
// SQLite file, so an analyst can verify any unit-year by hand without
// touching the warehouse.
package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/quipulab/cmn-panel/internal/panel"
)

// Writer owns one SQLite audit file.
type Writer struct {
	db *sql.DB
}

// NewWriter opens (or creates) a SQLite database at the given path and
// configures WAL mode.
func NewWriter(dsn string) (*Writer, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "audit: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "audit: exec %s", pragma)
		}
	}
	return &Writer{db: db}, nil
}

const auditMigration = `
CREATE TABLE IF NOT EXISTS audit_run (
	written_at     DATETIME NOT NULL,
	universe_rows  INTEGER NOT NULL,
	cohort_size    INTEGER NOT NULL,
	detail_rows    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS item_detail (
	year          INTEGER NOT NULL,
	unit_id       TEXT NOT NULL,
	taxonomy_code TEXT NOT NULL,
	n_programmed  INTEGER NOT NULL,
	n_executed    INTEGER NOT NULL,
	covered       INTEGER NOT NULL,
	both_sources  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (year, unit_id, taxonomy_code)
);

CREATE TABLE IF NOT EXISTS indicator (
	year            INTEGER NOT NULL,
	unit_id         TEXT NOT NULL,
	n_programmed    INTEGER NOT NULL,
	n_with_exec     INTEGER NOT NULL,
	n_without_exec  INTEGER NOT NULL,
	coverage_pct    REAL,
	dev_pct_mixed   REAL,
	dev_pct_all     REAL,
	dev_pct_nonzero REAL,
	exec_state      TEXT NOT NULL,
	PRIMARY KEY (year, unit_id)
);

CREATE INDEX IF NOT EXISTS idx_item_detail_unit ON item_detail(unit_id, year);
`

// Migrate creates the audit tables.
func (w *Writer) Migrate(ctx context.Context) error {
	_, err := w.db.ExecContext(ctx, auditMigration)
	return eris.Wrap(err, "audit: migrate")
}

// Close closes the underlying database.
func (w *Writer) Close() error {
	return w.db.Close()
}

// WriteTrace stores the cohort-restricted item detail and indicator rows for
// one rebuild result, replacing whatever the file held before.
func (w *Writer) WriteTrace(ctx context.Context, res *panel.Result) (int, error) {
	cohort := make(map[string]bool, len(res.Cohort))
	for _, unit := range res.Cohort {
		cohort[unit] = true
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "audit: begin tx")
	}
	defer tx.Rollback()

	for _, table := range []string{"audit_run", "item_detail", "indicator"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, eris.Wrapf(err, "audit: clear %s", table)
		}
	}

	var written int
	for _, d := range res.AuditDetail {
		if !cohort[d.UnitID] {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_detail (year, unit_id, taxonomy_code, n_programmed, n_executed, covered, both_sources)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.Year, d.UnitID, d.TaxonomyCode, d.Programmed, d.Executed, boolInt(d.Covered), boolInt(d.BothSources),
		); err != nil {
			return 0, eris.Wrap(err, "audit: insert item detail")
		}
		written++
	}

	for _, r := range res.Indicators {
		if !cohort[r.UnitID] {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO indicator
			 (year, unit_id, n_programmed, n_with_exec, n_without_exec,
			  coverage_pct, dev_pct_mixed, dev_pct_all, dev_pct_nonzero, exec_state)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Year, r.UnitID, r.NProgrammed, r.NWithExecution, r.NWithoutExecution,
			floatPtr(r.CoveragePct), floatPtr(r.DevPctMixed), floatPtr(r.DevPctAll), floatPtr(r.DevPctNonzero),
			string(r.State),
		); err != nil {
			return 0, eris.Wrap(err, "audit: insert indicator")
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO audit_run (written_at, universe_rows, cohort_size, detail_rows) VALUES (?, ?, ?, ?)`,
		time.Now().UTC(), len(res.Universe), len(res.Cohort), written,
	); err != nil {
		return 0, eris.Wrap(err, "audit: record run")
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "audit: commit")
	}
	return written, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// floatPtr maps a nil percentage to SQL NULL.
func floatPtr(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
