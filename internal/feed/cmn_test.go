package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const cmnV1CSV = `ANO_EJE,SEC_EJEC,FASE,TIPO_BIEN,GRUPO_BIEN,CLASE_BIEN,FAMILIA_BIEN,ITEM_BIEN,PRECIO,CANTIDAD,MONTO,EJECUTORA_DSC,DEPARTAMENTO,PLIEGO_DSC
2022,000856,IDENTIFICACION,BIEN,5,1,25,321,10.5,3,31.5,UGEL AREQUIPA NORTE,AREQUIPA,GOB REG AREQUIPA
2022,000856,CONSOLIDACION Y APROBACION,BIEN,5,1,25,321,10.5,3,31.5,UGEL AREQUIPA NORTE,AREQUIPA,GOB REG AREQUIPA
`

const cmnV2CSV = `ANNO,SEC_EJEC,FASE,TIPO_BIEN,GRUPO_BIEN,CLASE_BIEN,FAMILIA_BIEN,ITEM_BIEN,PRECIO,CANTIDAD,MONTO,EJECUTORA_NOMBRE,DEPARTAMENTO,PLIEGO_DSC
2025,000856,IDENTIFICACION,BIEN,5,1,25,321,10.5,3,31.5,UGEL AREQUIPA NORTE,AREQUIPA,GOB REG AREQUIPA
`

func TestCMNMEF_Load(t *testing.T) {
	path := writeTemp(t, "cmn_v1.csv", []byte(cmnV1CSV))

	f := &CMNMEF{}
	rows, err := f.Load(context.Background(), path, 2022)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rows[0], len(f.Columns()))

	assert.Equal(t, 2022, rows[0][0])
	assert.Equal(t, "000856", rows[0][1])
	assert.Equal(t, "IDENTIFICACION", rows[0][2])
	assert.Equal(t, "BIEN", rows[0][3])
	assert.Equal(t, 10.5, rows[0][8])
	assert.Equal(t, "MEF", rows[0][11])
	assert.Equal(t, "v1", rows[0][12])
	assert.Equal(t, "UGEL AREQUIPA NORTE", rows[0][14])
}

func TestCMNMEFV2_Load_RenamedColumns(t *testing.T) {
	path := writeTemp(t, "cmn_v2.csv", []byte(cmnV2CSV))

	f := &CMNMEFV2{}
	rows, err := f.Load(context.Background(), path, 2025)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// anno feeds the year, ejecutora_nombre feeds the unit name.
	assert.Equal(t, 2025, rows[0][0])
	assert.Equal(t, "MEF", rows[0][11])
	assert.Equal(t, "v2", rows[0][12])
	assert.Equal(t, "UGEL AREQUIPA NORTE", rows[0][14])
}

// A registration described by the legacy schema and the 2025 schema must
// yield the same row apart from the version tag.
func TestCMN_SchemaVersionsEquivalent(t *testing.T) {
	v1Path := writeTemp(t, "v1.csv", []byte(cmnV1CSV))
	v2Path := writeTemp(t, "v2.csv", []byte(cmnV2CSV))

	v1Rows, err := (&CMNMEF{}).Load(context.Background(), v1Path, 2022)
	require.NoError(t, err)
	v2Rows, err := (&CMNMEFV2{}).Load(context.Background(), v2Path, 2025)
	require.NoError(t, err)

	// Compare the shared fields of the first identification row.
	v1 := v1Rows[0]
	v2 := v2Rows[0]
	for _, i := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 14, 15} {
		assert.Equal(t, v1[i], v2[i], "column %d", i)
	}
}

func TestCMNMINEDU_Load(t *testing.T) {
	path := writeTemp(t, "minedu.csv", []byte(cmnV1CSV))

	rows, err := (&CMNMINEDU{}).Load(context.Background(), path, 2022)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "MINEDU", rows[0][11])
}

func TestCMN_MissingUnitColumn(t *testing.T) {
	path := writeTemp(t, "bad.csv", []byte("ano_eje,fase\n2022,IDENTIFICACION\n"))

	_, err := (&CMNMEF{}).Load(context.Background(), path, 2022)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sec_ejec")
}

func TestCMN_YearFallsBackToLoadYear(t *testing.T) {
	path := writeTemp(t, "noyear.csv", []byte("SEC_EJEC,FASE\n000856,IDENTIFICACION\n"))

	rows, err := (&CMNMEF{}).Load(context.Background(), path, 2023)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2023, rows[0][0])
}

func TestCMN_CancelledContext(t *testing.T) {
	path := writeTemp(t, "cmn.csv", []byte(cmnV1CSV))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&CMNMEF{}).Load(ctx, path, 2022)
	require.Error(t, err)
}
