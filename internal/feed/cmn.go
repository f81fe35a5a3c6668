package feed

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// cmnColumns is the insert column list for raw.cmn_records.
var cmnColumns = []string{
	"year", "unit_id", "phase_name", "record_type",
	"item_group", "item_class", "item_family", "item_code",
	"price", "quantity", "amount",
	"source", "source_version", "region", "unit_name", "parent_org",
}

// Header aliases shared by the CMN exports. The 2025 MEF export renamed the
// year and unit-name columns; listing every known alias lets one parser read
// all schema versions.
var (
	cmnYearAliases     = []string{"ano_eje", "anno", "anio"}
	cmnPhaseAliases    = []string{"fase", "nombre_fase", "fase_dsc"}
	cmnTypeAliases     = []string{"tipo_bien", "tipo"}
	cmnGroupAliases    = []string{"grupo_bien", "grupo"}
	cmnClassAliases    = []string{"clase_bien", "clase"}
	cmnFamilyAliases   = []string{"familia_bien", "familia"}
	cmnItemAliases     = []string{"item_bien", "item"}
	cmnRegionAliases   = []string{"departamento", "region"}
	cmnUnitNameAliases = []string{"ejecutora_dsc", "ejecutora_nombre", "ejecutora"}
	cmnParentAliases   = []string{"pliego_dsc", "pliego"}
)

// loadCMN parses a CMN registration export. Rows from any schema version
// produce identical output rows; source and version tag the provenance.
func loadCMN(ctx context.Context, path string, year int, source, version string) ([][]any, error) {
	log := zap.L().With(zap.String("component", "feed.cmn"), zap.String("source", source))

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
	var skipped int
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "feed: load cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		rowYear := parseIntOr(firstNonEmpty(record, colIdx, cmnYearAliases...), year)

		rows = append(rows, []any{
			rowYear,
			sanitizeUTF8(getColN(record, colIdx, "sec_ejec")),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnPhaseAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnTypeAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnGroupAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnClassAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnFamilyAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnItemAliases...)),
			parseFloat64Or(getColN(record, colIdx, "precio"), 0),
			parseFloat64Or(getColN(record, colIdx, "cantidad"), 0),
			parseFloat64Or(getColN(record, colIdx, "monto"), 0),
			source,
			version,
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnRegionAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnUnitNameAliases...)),
			sanitizeUTF8(firstNonEmpty(record, colIdx, cmnParentAliases...)),
		})
	}

	if skipped > 0 {
		log.Warn("skipped malformed CSV rows", zap.Int("count", skipped), zap.String("path", path))
	}
	log.Info("parsed CMN export", zap.String("path", path), zap.Int("rows", len(rows)))

	return rows, nil
}

// CMNMEF reads the legacy (<=2024) MEF registration export.
type CMNMEF struct{}

func (f *CMNMEF) Name() string      { return "cmn_mef" }
func (f *CMNMEF) Table() string     { return "raw.cmn_records" }
func (f *CMNMEF) Columns() []string { return cmnColumns }

func (f *CMNMEF) Load(ctx context.Context, path string, year int) ([][]any, error) {
	return loadCMN(ctx, path, year, "MEF", "v1")
}

// CMNMEFV2 reads the 2025 MEF registration export with renamed columns.
type CMNMEFV2 struct{}

func (f *CMNMEFV2) Name() string      { return "cmn_mef_v2" }
func (f *CMNMEFV2) Table() string     { return "raw.cmn_records" }
func (f *CMNMEFV2) Columns() []string { return cmnColumns }

func (f *CMNMEFV2) Load(ctx context.Context, path string, year int) ([][]any, error) {
	return loadCMN(ctx, path, year, "MEF", "v2")
}

// CMNMINEDU reads the MINEDU registration export.
type CMNMINEDU struct{}

func (f *CMNMINEDU) Name() string      { return "cmn_minedu" }
func (f *CMNMINEDU) Table() string     { return "raw.cmn_records" }
func (f *CMNMINEDU) Columns() []string { return cmnColumns }

func (f *CMNMINEDU) Load(ctx context.Context, path string, year int) ([][]any, error) {
	return loadCMN(ctx, path, year, "MINEDU", "v1")
}
