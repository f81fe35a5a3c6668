package feed

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var executionColumns = []string{
	"year", "unit_id", "record_type",
	"item_group", "item_class", "item_family", "item_code",
	"recognition_status", "approval_status", "currency", "amount",
}

var (
	execRecognitionAliases = []string{"estado_devengado", "estado_ejecucion"}
	execApprovalAliases    = []string{"estado_aprobacion", "estado_pedido"}
	execCurrencyAliases    = []string{"moneda", "tipo_moneda"}
	execAmountAliases      = []string{"monto", "importe"}
)

// Execution reads the budget execution event export.
type Execution struct{}

func (f *Execution) Name() string      { return "execution" }
func (f *Execution) Table() string     { return "raw.execution_events" }
func (f *Execution) Columns() []string { return executionColumns }

func (f *Execution) Load(ctx context.Context, path string, year int) ([][]any, error) {
	log := zap.L().With(zap.String("component", "feed.execution"))

	reader, closer, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "feed: read CSV header of %s", path)
	}
	colIdx := mapColumnsNormalized(header)

	if !hasAnyColumn(colIdx, "sec_ejec") {
		return nil, eris.Errorf("feed: %s: missing required column sec_ejec", path)
	}

	var rows [][]any
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

		rows = append(rows, []any{
			parseIntOr(firstNonEmpty(record, colIdx, cmnYearAliases...), year),
			sanitizeUTF8(getColN(record, colIdx, "sec_ejec")),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnTypeAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnGroupAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnClassAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnFamilyAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnItemAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, execRecognitionAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, execApprovalAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, execCurrencyAliases...)),
			parseFloat64Or(firstNonEmpty(record, colIdx, execAmountAliases...), 0),
		})
	}

	log.Info("parsed execution export", zap.String("path", path), zap.Int("rows", len(rows)))
	return rows, nil
}
