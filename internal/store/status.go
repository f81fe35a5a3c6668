package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// YearSummary is the per-year QC view over the resolved universe.
type YearSummary struct {
	Year           int
	Units          int64
	MEFComplete    int64
	MINEDUComplete int64
	Included       int64
	FallbackUsed   int64
}

// FallbackSharePct returns the share of included unit-years that needed the
// fallback source, or 0 when nothing is included.
func (s YearSummary) FallbackSharePct() float64 {
	if s.Included == 0 {
		return 0
	}
	return 100 * float64(s.FallbackUsed) / float64(s.Included)
}

// RebuildInfo is the most recent rebuild log row.
type RebuildInfo struct {
	RunID         string
	FinishedAt    time.Time
	UniverseRows  int64
	CohortSize    int64
	IndicatorRows int64
	DroppedNoUnit int64
	UnmappedPhase int64
}

// YearSummaries computes the per-year QC summary from panel.universe.
func (s *Store) YearSummaries(ctx context.Context) ([]YearSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year,
		        count(*),
		        count(*) FILTER (WHERE mef_complete),
		        count(*) FILTER (WHERE minedu_complete),
		        count(*) FILTER (WHERE included),
		        count(*) FILTER (WHERE fallback_used)
		 FROM panel.universe
		 GROUP BY year
		 ORDER BY year`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: query year summaries")
	}
	defer rows.Close()

	var out []YearSummary
	for rows.Next() {
		var y YearSummary
		if err := rows.Scan(&y.Year, &y.Units, &y.MEFComplete, &y.MINEDUComplete, &y.Included, &y.FallbackUsed); err != nil {
			return nil, eris.Wrap(err, "store: scan year summary")
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

// CohortSize returns the number of units in the balanced cohort.
func (s *Store) CohortSize(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM panel.cohort").Scan(&n); err != nil {
		return 0, eris.Wrap(err, "store: count cohort")
	}
	return n, nil
}

// LastRebuild returns the most recent rebuild log row, or nil if the panel
// has never been built.
func (s *Store) LastRebuild(ctx context.Context) (*RebuildInfo, error) {
	var info RebuildInfo
	err := s.pool.QueryRow(ctx,
		`SELECT run_id::text, finished_at, universe_rows, cohort_size, indicator_rows, dropped_no_unit, unmapped_phase
		 FROM panel.rebuild_log
		 ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&info.RunID, &info.FinishedAt, &info.UniverseRows, &info.CohortSize, &info.IndicatorRows, &info.DroppedNoUnit, &info.UnmappedPhase)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, eris.Wrap(err, "store: last rebuild")
	}
	return &info, nil
}
