package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quipulab/cmn-panel/internal/panel"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func recordColumns() []string {
	return []string{
		"year", "unit_id", "phase_name", "record_type",
		"item_group", "item_class", "item_family", "item_code",
		"price", "quantity", "amount",
		"source", "source_version", "region", "unit_name", "parent_org",
	}
}

func TestLoadSnapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM raw.cmn_records").WillReturnRows(
		pgxmock.NewRows(recordColumns()).
			AddRow(2022, "000856", "IDENTIFICACION", "BIEN",
				"5", "1", "25", "321",
				10.5, 3.0, 31.5,
				"MEF", "v1", "AREQUIPA", "UGEL AREQUIPA NORTE", "GOB REG AREQUIPA"),
	)
	mock.ExpectQuery("FROM raw.execution_events").WillReturnRows(
		pgxmock.NewRows([]string{
			"year", "unit_id", "record_type",
			"item_group", "item_class", "item_family", "item_code",
			"recognition_status", "approval_status", "currency", "amount",
		}).AddRow(2022, "000856", "BIEN", "5", "1", "25", "321",
			"TOTALMENTE DEVENGADO", "APROBADO", "SOLES", 120.5),
	)
	mock.ExpectQuery("FROM raw.roster").WillReturnRows(
		pgxmock.NewRows([]string{"year", "unit_id", "enrolled", "category"}).
			AddRow(2025, "000856", "SI", "UGEL"),
	)

	s := NewWithPool(mock)
	snap, err := s.LoadSnapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Records, 1)
	assert.Equal(t, panel.SourceMEF, snap.Records[0].Source)
	assert.Equal(t, "IDENTIFICACION", snap.Records[0].PhaseName)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "TOTALMENTE DEVENGADO", snap.Events[0].RecognitionStatus)
	assert.Equal(t, "BIEN", snap.Events[0].RecordType)
	assert.Equal(t, "SOLES", snap.Events[0].Currency)
	assert.Equal(t, 120.5, snap.Events[0].Amount)
	require.Len(t, snap.Roster, 1)
	assert.Equal(t, "SI", snap.Roster[0].Enrolled)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadSnapshot_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM raw.cmn_records").WillReturnError(fmt.Errorf("relation does not exist"))

	s := NewWithPool(mock)
	_, err = s.LoadSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query cmn_records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func testResult() *panel.Result {
	cov := 50.0
	return &panel.Result{
		Universe: []panel.Decision{
			{
				UnitID: "856", Year: 2022,
				State: panel.PreferredChosen, ChosenSource: panel.SourceMEF,
				Included: true, MEFComplete: true,
				Region: "AREQUIPA", UnitName: "UGEL AREQUIPA NORTE",
			},
		},
		Cohort: []string{"856"},
		Indicators: []panel.IndicatorRecord{
			{
				UnitID: "856", Year: 2022,
				NProgrammed: 2, NWithExecution: 1, NWithoutExecution: 1,
				CoveragePct: &cov, State: panel.ExecUnder,
			},
		},
		AuditDetail: []panel.ItemDetail{
			{UnitID: "856", Year: 2022, TaxonomyCode: "050100250321", Programmed: 2, Executed: 1, Covered: true},
			// Not in the cohort; must never reach panel.audit_detail.
			{UnitID: "999", Year: 2022, TaxonomyCode: "050100250321", Programmed: 5, Executed: 0},
		},
		RosterGroups: []panel.RosterGroup{
			{UnitID: "856", PreState: "NO", PostState: "SI", Group: panel.GroupSwitcher, Switcher: true},
		},
		DroppedNoUnit: 3,
		UnmappedPhase: 1,
	}
}

func TestReplaceDerived(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	for _, table := range derivedTables {
		mock.ExpectExec("TRUNCATE " + table).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	}
	mock.ExpectCopyFrom(pgx.Identifier{"panel", "universe"}, []string{
		"year", "unit_id", "included", "resolution", "chosen_source",
		"fallback_used", "mef_complete", "minedu_complete",
		"region", "unit_name", "parent_org",
	}).WillReturnResult(1)
	mock.ExpectCopyFrom(pgx.Identifier{"panel", "cohort"}, []string{"unit_id"}).WillReturnResult(1)
	mock.ExpectCopyFrom(pgx.Identifier{"panel", "indicator"}, []string{
		"year", "unit_id",
		"n_programmed", "n_with_exec", "n_without_exec",
		"coverage_pct", "dev_pct_mixed", "dev_pct_all", "dev_pct_nonzero",
		"exec_state",
	}).WillReturnResult(1)
	mock.ExpectCopyFrom(pgx.Identifier{"panel", "roster_groups"}, []string{
		"unit_id", "pre_state", "post_state", "grp", "switcher",
	}).WillReturnResult(1)
	mock.ExpectCopyFrom(pgx.Identifier{"panel", "audit_detail"}, []string{
		"year", "unit_id", "taxonomy_code", "n_programmed", "n_executed", "covered", "both_sources",
	}).WillReturnResult(1)
	mock.ExpectExec("INSERT INTO panel.rebuild_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 1, 1, 1, 3, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s := NewWithPool(mock)
	runID, err := s.ReplaceDerived(context.Background(), testResult(), time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, runID.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditDetailRows_CohortOnly(t *testing.T) {
	details := []panel.ItemDetail{
		{UnitID: "856", Year: 2022, TaxonomyCode: "050100250321", Programmed: 2, Executed: 1, Covered: true, BothSources: true},
		{UnitID: "999", Year: 2022, TaxonomyCode: "050100250321", Programmed: 5, Executed: 0},
		{UnitID: "856", Year: 2023, TaxonomyCode: "050100250400", Programmed: 1, Executed: 0},
	}

	rows := auditDetailRows(details, []string{"856"})

	require.Len(t, rows, 2)
	assert.Equal(t, []any{2022, "856", "050100250321", 2, 1, true, true}, rows[0])
	assert.Equal(t, []any{2023, "856", "050100250400", 1, 0, false, false}, rows[1])

	assert.Empty(t, auditDetailRows(details, nil))
}

func TestReplaceDerived_TruncateError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE panel.universe").WillReturnError(fmt.Errorf("lock timeout"))
	mock.ExpectRollback()

	s := NewWithPool(mock)
	_, err = s.ReplaceDerived(context.Background(), testResult(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncate panel.universe")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceDerived_EmptyResultSkipsCopies(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	for _, table := range derivedTables {
		mock.ExpectExec("TRUNCATE " + table).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	}
	// No CopyFrom expectations: zero-row tables short-circuit.
	mock.ExpectExec("INSERT INTO panel.rebuild_log").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 0, 0, 0, 0, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s := NewWithPool(mock)
	_, err = s.ReplaceDerived(context.Background(), &panel.Result{}, time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
