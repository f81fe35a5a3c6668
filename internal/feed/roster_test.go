package feed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

const rosterCSV = `anio,sec_ejec,siga_implementado,categoria
2025,000856,si,UGEL
2025,001190,NO,MUNICIPALIDAD
2025,,SI,UGEL
`

func TestRoster_LoadCSV(t *testing.T) {
	path := writeTemp(t, "padron.csv", []byte(rosterCSV))

	f := &Roster{}
	rows, err := f.Load(context.Background(), path, 2025)
	require.NoError(t, err)
	// The row with no unit is skipped.
	require.Len(t, rows, 2)

	assert.Equal(t, 2025, rows[0][0])
	assert.Equal(t, "000856", rows[0][1])
	// Enrollment flag normalized to upper case at ingest.
	assert.Equal(t, "SI", rows[0][2])
	assert.Equal(t, "UGEL", rows[0][3])
	assert.Equal(t, "NO", rows[1][2])
}

func TestRoster_LoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padron.xlsx")

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("padron")
	require.NoError(t, err)

	for _, cells := range [][]string{
		{"anio", "sec_ejec", "siga_implementado", "categoria"},
		{"2025", "000856", "SI", "UGEL"},
		{"2025", "001190", "NO", "MUNICIPALIDAD"},
	} {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, file.Save(path))

	rows, err := (&Roster{}).Load(context.Background(), path, 2025)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "000856", rows[0][1])
	assert.Equal(t, "SI", rows[0][2])
	assert.Equal(t, "MUNICIPALIDAD", rows[1][3])
}

func TestRoster_MissingUnitColumn(t *testing.T) {
	path := writeTemp(t, "bad.csv", []byte("anio,siga_implementado\n2025,SI\n"))

	_, err := (&Roster{}).Load(context.Background(), path, 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sec_ejec")
}
