package ingest

import (
	"context"
	"time"

	"github.com/quipulab/cmn-panel/internal/db"
	"github.com/rotisserie/eris"
)

// Load statuses recorded in raw.ingestion_log.
const (
	StatusStarted = "started"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// LogEntry represents a row in raw.ingestion_log.
type LogEntry struct {
	ID         int64
	Feed       string
	SourcePath string
	Year       int
	Status     string
	RowsLoaded int64
	Notes      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Log provides read/write access to the raw.ingestion_log table.
type Log struct {
	pool db.Pool
}

// NewLog creates a new Log backed by the given connection pool.
func NewLog(pool db.Pool) *Log {
	return &Log{pool: pool}
}

// Start records the beginning of a feed load and returns its ID.
func (l *Log) Start(ctx context.Context, feed, sourcePath string, year int) (int64, error) {
	var id int64
	err := l.pool.QueryRow(ctx,
		`INSERT INTO raw.ingestion_log (feed, source_path, year, status, started_at)
		 VALUES ($1, $2, $3, $4, now()) RETURNING id`,
		feed, sourcePath, year, StatusStarted,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "ingestlog: start load for %s", feed)
	}
	return id, nil
}

// Complete marks a load as successful with the number of rows loaded.
func (l *Log) Complete(ctx context.Context, loadID int64, rowsLoaded int64) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE raw.ingestion_log
		 SET status = $1, finished_at = now(), rows_loaded = $2
		 WHERE id = $3`,
		StatusSuccess, rowsLoaded, loadID,
	)
	if err != nil {
		return eris.Wrapf(err, "ingestlog: complete load %d", loadID)
	}
	return nil
}

// Fail marks a load as failed with an error note.
func (l *Log) Fail(ctx context.Context, loadID int64, notes string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE raw.ingestion_log
		 SET status = $1, finished_at = now(), notes = $2
		 WHERE id = $3`,
		StatusFailed, notes, loadID,
	)
	if err != nil {
		return eris.Wrapf(err, "ingestlog: fail load %d", loadID)
	}
	return nil
}

// LastSuccess returns the started_at time of the most recent successful load
// for a feed, or nil if the feed has never loaded successfully.
func (l *Log) LastSuccess(ctx context.Context, feed string) (*time.Time, error) {
	var t time.Time
	err := l.pool.QueryRow(ctx,
		`SELECT started_at FROM raw.ingestion_log
		 WHERE feed = $1 AND status = $2
		 ORDER BY started_at DESC LIMIT 1`,
		feed, StatusSuccess,
	).Scan(&t)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "ingestlog: last success for %s", feed)
	}
	return &t, nil
}

// ListAll returns all ingestion log entries ordered by most recent first.
func (l *Log) ListAll(ctx context.Context) ([]LogEntry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, feed, source_path, year, status, rows_loaded, notes, started_at, finished_at
		 FROM raw.ingestion_log ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "ingestlog: list all")
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var notes *string
		var finishedAt *time.Time
		if err := rows.Scan(&e.ID, &e.Feed, &e.SourcePath, &e.Year, &e.Status, &e.RowsLoaded, &notes, &e.StartedAt, &finishedAt); err != nil {
			return nil, eris.Wrap(err, "ingestlog: scan entry")
		}
		if notes != nil {
			e.Notes = *notes
		}
		e.FinishedAt = finishedAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
