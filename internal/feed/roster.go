package feed

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

var rosterColumns = []string{"year", "unit_id", "enrolled", "category"}

var (
	rosterEnrolledAliases = []string{"siga_implementado", "siga"}
	rosterCategoryAliases = []string{"categoria", "categoria_ue"}
)

// Roster reads the platform enrollment roster (padron). The upstream
// publishes it as XLSX; re-exports circulate as CSV. Both are accepted.
type Roster struct{}

func (f *Roster) Name() string      { return "roster" }
func (f *Roster) Table() string     { return "raw.roster" }
func (f *Roster) Columns() []string { return rosterColumns }

func (f *Roster) Load(ctx context.Context, path string, year int) ([][]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return f.loadXLSX(ctx, path, year)
	default:
		return f.loadCSV(ctx, path, year)
	}
}

func (f *Roster) loadCSV(ctx context.Context, path string, year int) ([][]any, error) {
	reader, closer, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "feed: read CSV header of %s", path)
	}

	var raw [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "feed: load cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		raw = append(raw, record)
	}

	return f.buildRows(path, header, raw, year)
}

func (f *Roster) loadXLSX(ctx context.Context, path string, year int) ([][]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "feed: load cancelled")
	}

	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: open XLSX %s", path)
	}
	if len(file.Sheets) == 0 {
		return nil, eris.Errorf("feed: %s: workbook has no sheets", path)
	}

	sheet := file.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("feed: %s: sheet is empty", path)
	}

	header := rowToStrings(sheet.Rows[0])
	raw := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		raw = append(raw, rowToStrings(row))
	}

	return f.buildRows(path, header, raw, year)
}

func (f *Roster) buildRows(path string, header []string, raw [][]string, year int) ([][]any, error) {
	colIdx := mapColumnsNormalized(header)

	if !hasAnyColumn(colIdx, "sec_ejec") {
		return nil, eris.Errorf("feed: %s: missing required column sec_ejec", path)
	}

	var rows [][]any
	for _, record := range raw {
		unit := getColN(record, colIdx, "sec_ejec")
		if unit == "" {
			continue
		}
		rows = append(rows, []any{
			parseIntOr(firstNonEmpty(record, colIdx, cmnYearAliases...), year),
			sanitizeUTF8(unit),
			strings.ToUpper(firstNonEmpty(record, colIdx, rosterEnrolledAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, rosterCategoryAliases...)),
		})
	}

	zap.L().With(zap.String("component", "feed.roster")).
		Info("parsed roster", zap.String("path", path), zap.Int("rows", len(rows)))
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
