// Package store reads the raw snapshot out of Postgres and writes the
// derived panel tables back, replacing them wholesale inside one
// transaction per rebuild.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quipulab/cmn-panel/internal/db"
	"github.com/quipulab/cmn-panel/internal/panel"
)

// Store wraps a Postgres connection pool.
type Store struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a Store with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*Store, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "store: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping")
	}
	return &Store{pool: pool, closeFn: pool.Close}, nil
}

// NewWithPool creates a Store around an existing pool. Used by tests.
func NewWithPool(pool db.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying database pool.
func (s *Store) Pool() db.Pool {
	return s.pool
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// LoadSnapshot reads the full raw input state for one rebuild.
func (s *Store) LoadSnapshot(ctx context.Context) (panel.Snapshot, error) {
	var snap panel.Snapshot

	records, err := s.loadRecords(ctx)
	if err != nil {
		return snap, err
	}
	events, err := s.loadEvents(ctx)
	if err != nil {
		return snap, err
	}
	roster, err := s.loadRoster(ctx)
	if err != nil {
		return snap, err
	}

	snap.Records = records
	snap.Events = events
	snap.Roster = roster
	return snap, nil
}

func (s *Store) loadRecords(ctx context.Context) ([]panel.RawRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year, unit_id, phase_name, record_type,
		        item_group, item_class, item_family, item_code,
		        price, quantity, amount,
		        source, source_version, region, unit_name, parent_org
		 FROM raw.cmn_records`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: query cmn_records")
	}
	defer rows.Close()

	var out []panel.RawRecord
	for rows.Next() {
		var r panel.RawRecord
		var source string
		if err := rows.Scan(
			&r.Year, &r.UnitID, &r.PhaseName, &r.RecordType,
			&r.ItemGroup, &r.ItemClass, &r.ItemFamily, &r.ItemCode,
			&r.Price, &r.Quantity, &r.Amount,
			&source, &r.SourceVersion, &r.Region, &r.UnitName, &r.ParentOrg,
		); err != nil {
			return nil, eris.Wrap(err, "store: scan cmn_record")
		}
		r.Source = panel.Source(source)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) loadEvents(ctx context.Context) ([]panel.ExecutionEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year, unit_id, record_type,
		        item_group, item_class, item_family, item_code,
		        recognition_status, approval_status, currency, amount
		 FROM raw.execution_events`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: query execution_events")
	}
	defer rows.Close()

	var out []panel.ExecutionEvent
	for rows.Next() {
		var e panel.ExecutionEvent
		if err := rows.Scan(
			&e.Year, &e.UnitID, &e.RecordType,
			&e.ItemGroup, &e.ItemClass, &e.ItemFamily, &e.ItemCode,
			&e.RecognitionStatus, &e.ApprovalStatus, &e.Currency, &e.Amount,
		); err != nil {
			return nil, eris.Wrap(err, "store: scan execution_event")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) loadRoster(ctx context.Context) ([]panel.RosterEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year, unit_id, enrolled, category FROM raw.roster`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: query roster")
	}
	defer rows.Close()

	var out []panel.RosterEntry
	for rows.Next() {
		var e panel.RosterEntry
		if err := rows.Scan(&e.Year, &e.UnitID, &e.Enrolled, &e.Category); err != nil {
			return nil, eris.Wrap(err, "store: scan roster entry")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// derivedTables lists the panel tables replaced on every rebuild, in truncate
// order.
var derivedTables = []string{
	"panel.universe",
	"panel.cohort",
	"panel.indicator",
	"panel.roster_groups",
	"panel.audit_detail",
}

// ReplaceDerived truncates and rewrites every derived table from a rebuild
// result, then records a rebuild log row. Everything happens in a single
// transaction: readers never observe a half-replaced panel.
func (s *Store) ReplaceDerived(ctx context.Context, res *panel.Result, startedAt time.Time) (uuid.UUID, error) {
	log := zap.L().With(zap.String("component", "store.replace"))
	runID := uuid.New()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return runID, eris.Wrap(err, "store: begin replace tx")
	}
	defer tx.Rollback(ctx)

	for _, table := range derivedTables {
		if _, err := tx.Exec(ctx, "TRUNCATE "+table); err != nil {
			return runID, eris.Wrapf(err, "store: truncate %s", table)
		}
	}

	if err := copyUniverse(ctx, tx, res.Universe); err != nil {
		return runID, err
	}
	if err := copyCohort(ctx, tx, res.Cohort); err != nil {
		return runID, err
	}
	if err := copyIndicators(ctx, tx, res.Indicators); err != nil {
		return runID, err
	}
	if err := copyRosterGroups(ctx, tx, res.RosterGroups); err != nil {
		return runID, err
	}
	if err := copyAuditDetail(ctx, tx, res.AuditDetail, res.Cohort); err != nil {
		return runID, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO panel.rebuild_log
		 (run_id, started_at, finished_at, universe_rows, cohort_size, indicator_rows, dropped_no_unit, unmapped_phase)
		 VALUES ($1, $2, now(), $3, $4, $5, $6, $7)`,
		runID, startedAt,
		len(res.Universe), len(res.Cohort), len(res.Indicators),
		res.DroppedNoUnit, res.UnmappedPhase,
	); err != nil {
		return runID, eris.Wrap(err, "store: record rebuild")
	}

	if err := tx.Commit(ctx); err != nil {
		return runID, eris.Wrap(err, "store: commit replace tx")
	}

	log.Info("derived tables replaced",
		zap.String("run_id", runID.String()),
		zap.Int("universe_rows", len(res.Universe)),
		zap.Int("cohort_size", len(res.Cohort)),
		zap.Int("indicator_rows", len(res.Indicators)),
	)
	return runID, nil
}

func copyUniverse(ctx context.Context, tx pgx.Tx, decisions []panel.Decision) error {
	rows := make([][]any, len(decisions))
	for i, d := range decisions {
		rows[i] = []any{
			d.Year, d.UnitID, d.Included, d.State.String(), string(d.ChosenSource),
			d.FallbackUsed, d.MEFComplete, d.MINEDUComplete,
			d.Region, d.UnitName, d.ParentOrg,
		}
	}
	return copyInto(ctx, tx, pgx.Identifier{"panel", "universe"}, []string{
		"year", "unit_id", "included", "resolution", "chosen_source",
		"fallback_used", "mef_complete", "minedu_complete",
		"region", "unit_name", "parent_org",
	}, rows)
}

func copyCohort(ctx context.Context, tx pgx.Tx, cohort []string) error {
	rows := make([][]any, len(cohort))
	for i, unit := range cohort {
		rows[i] = []any{unit}
	}
	return copyInto(ctx, tx, pgx.Identifier{"panel", "cohort"}, []string{"unit_id"}, rows)
}

func copyIndicators(ctx context.Context, tx pgx.Tx, indicators []panel.IndicatorRecord) error {
	rows := make([][]any, len(indicators))
	for i, r := range indicators {
		rows[i] = []any{
			r.Year, r.UnitID,
			r.NProgrammed, r.NWithExecution, r.NWithoutExecution,
			r.CoveragePct, r.DevPctMixed, r.DevPctAll, r.DevPctNonzero,
			string(r.State),
		}
	}
	return copyInto(ctx, tx, pgx.Identifier{"panel", "indicator"}, []string{
		"year", "unit_id",
		"n_programmed", "n_with_exec", "n_without_exec",
		"coverage_pct", "dev_pct_mixed", "dev_pct_all", "dev_pct_nonzero",
		"exec_state",
	}, rows)
}

func copyRosterGroups(ctx context.Context, tx pgx.Tx, groups []panel.RosterGroup) error {
	rows := make([][]any, len(groups))
	for i, g := range groups {
		rows[i] = []any{g.UnitID, g.PreState, g.PostState, string(g.Group), g.Switcher}
	}
	return copyInto(ctx, tx, pgx.Identifier{"panel", "roster_groups"}, []string{
		"unit_id", "pre_state", "post_state", "grp", "switcher",
	}, rows)
}

// auditDetailRows keeps only cohort units: the audit trace backs the balanced
// panel, and rows for excluded units would dwarf the table without ever being
// read.
func auditDetailRows(details []panel.ItemDetail, cohort []string) [][]any {
	inCohort := make(map[string]bool, len(cohort))
	for _, unit := range cohort {
		inCohort[unit] = true
	}

	var rows [][]any
	for _, d := range details {
		if !inCohort[d.UnitID] {
			continue
		}
		rows = append(rows, []any{d.Year, d.UnitID, d.TaxonomyCode, d.Programmed, d.Executed, d.Covered, d.BothSources})
	}
	return rows
}

func copyAuditDetail(ctx context.Context, tx pgx.Tx, details []panel.ItemDetail, cohort []string) error {
	return copyInto(ctx, tx, pgx.Identifier{"panel", "audit_detail"}, []string{
		"year", "unit_id", "taxonomy_code", "n_programmed", "n_executed", "covered", "both_sources",
	}, auditDetailRows(details, cohort))
}

func copyInto(ctx context.Context, tx pgx.Tx, table pgx.Identifier, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := tx.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows)); err != nil {
		return eris.Wrapf(err, "store: COPY INTO %s", table.Sanitize())
	}
	return nil
}
