package ingest

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/quipulab/cmn-panel/internal/db"
	"github.com/quipulab/cmn-panel/internal/feed"
)

// deleteScopes maps feed names to the statement that clears previously loaded
// rows for one load year. Reloading the same file twice must not duplicate
// rows, and reloading a corrected file must not leave stale rows behind.
var deleteScopes = map[string]string{
	"cmn_mef":    `DELETE FROM raw.cmn_records WHERE source = 'MEF' AND source_version = 'v1' AND year = $1`,
	"cmn_mef_v2": `DELETE FROM raw.cmn_records WHERE source = 'MEF' AND source_version = 'v2' AND year = $1`,
	"cmn_minedu": `DELETE FROM raw.cmn_records WHERE source = 'MINEDU' AND year = $1`,
	"execution":  `DELETE FROM raw.execution_events WHERE year = $1`,
	"roster":     `DELETE FROM raw.roster WHERE year = $1`,
}

// WriteRows persists parsed feed rows into the feed's raw table. Every feed
// first clears its (source, year) scope, so a unit dropped from a corrected
// file disappears on reload. The roster then upserts on its (year, unit_id)
// key; the other feeds bulk-copy.
func WriteRows(ctx context.Context, pool db.Pool, f feed.Feed, year int, rows [][]any) (int64, error) {
	stmt, ok := deleteScopes[f.Name()]
	if !ok {
		return 0, eris.Errorf("ingest: no delete scope for feed %s", f.Name())
	}
	if _, err := pool.Exec(ctx, stmt, year); err != nil {
		return 0, eris.Wrapf(err, "ingest: clear %s rows for year %d", f.Name(), year)
	}

	if f.Name() == "roster" {
		return db.BulkUpsert(ctx, pool, db.UpsertConfig{
			Table:        f.Table(),
			Columns:      f.Columns(),
			ConflictKeys: []string{"year", "unit_id"},
		}, rows)
	}

	return db.CopyInto(ctx, pool, f.Table(), f.Columns(), rows)
}
