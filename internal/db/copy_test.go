package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected pgx.Identifier
	}{
		{"cmn_records", pgx.Identifier{"cmn_records"}},
		{"raw.cmn_records", pgx.Identifier{"raw", "cmn_records"}},
		{"panel.indicator", pgx.Identifier{"panel", "indicator"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, tableIdent(tt.input))
		})
	}
}

func TestCopyInto_EmptyRows(t *testing.T) {
	n, err := CopyInto(context.Background(), nil, "raw.cmn_records", []string{"year", "unit_id"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyInto_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"raw", "cmn_records"}, []string{"year", "unit_id"}).WillReturnResult(3)

	rows := [][]any{{2022, "000856"}, {2023, "000856"}, {2024, "000856"}}
	n, err := CopyInto(context.Background(), mock, "raw.cmn_records", []string{"year", "unit_id"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInto_Unqualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"cmn_records"}, []string{"year"}).WillReturnResult(1)

	n, err := CopyInto(context.Background(), mock, "cmn_records", []string{"year"}, [][]any{{2022}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInto_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"raw", "roster"}, []string{"unit_id"}).WillReturnError(fmt.Errorf("permission denied"))

	_, err = CopyInto(context.Background(), mock, "raw.roster", []string{"unit_id"}, [][]any{{"000856"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO raw.roster")
	assert.NoError(t, mock.ExpectationsWereMet())
}
