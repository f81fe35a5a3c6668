package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
)

// exportableTables whitelists what `export` may read, mapping the CLI table
// name to the query. Columns come from the query itself, so the CSV header
// always matches the schema.
var exportableTables = map[string]string{
	"universe": `SELECT year, unit_id, included, resolution, chosen_source,
	               fallback_used, mef_complete, minedu_complete,
	               region, unit_name, parent_org
	             FROM panel.universe ORDER BY year, unit_id`,
	"cohort": `SELECT unit_id FROM panel.cohort ORDER BY unit_id`,
	"indicator": `SELECT year, unit_id, n_programmed, n_with_exec, n_without_exec,
	                coverage_pct, dev_pct_mixed, dev_pct_all, dev_pct_nonzero, exec_state
	              FROM panel.indicator ORDER BY year, unit_id`,
	"roster-groups": `SELECT unit_id, pre_state, post_state, grp, switcher
	                  FROM panel.roster_groups ORDER BY unit_id`,
}

// ExportableTables returns the CLI names accepted by ExportCSV.
func ExportableTables() []string {
	return []string{"universe", "cohort", "indicator", "roster-groups"}
}

// ExportCSV writes one derived table as CSV. The first line is the column
// header; NULL percentages export as empty cells.
func (s *Store) ExportCSV(ctx context.Context, table string, w io.Writer) (int64, error) {
	query, ok := exportableTables[table]
	if !ok {
		return 0, eris.Errorf("store: unknown export table %q (valid: universe, cohort, indicator, roster-groups)", table)
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return 0, eris.Wrapf(err, "store: export query %s", table)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)

	header := make([]string, len(rows.FieldDescriptions()))
	for i, fd := range rows.FieldDescriptions() {
		header[i] = fd.Name
	}
	if err := cw.Write(header); err != nil {
		return 0, eris.Wrap(err, "store: write CSV header")
	}

	var count int64
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return count, eris.Wrap(err, "store: read export row")
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = formatCSVValue(v)
		}
		if err := cw.Write(record); err != nil {
			return count, eris.Wrap(err, "store: write CSV row")
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, eris.Wrapf(err, "store: export %s", table)
	}

	cw.Flush()
	return count, eris.Wrap(cw.Error(), "store: flush CSV")
}

func formatCSVValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	default:
		return fmt.Sprintf("%v", x)
	}
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
