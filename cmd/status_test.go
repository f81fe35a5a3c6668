//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quipulab/cmn-panel/internal/ingest"
	"github.com/quipulab/cmn-panel/internal/store"
)

func TestFormatYearSummaries_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatYearSummaries(&buf, nil)

	output := buf.String()
	// Should still have the header even if summaries is nil.
	assert.Contains(t, output, "YEAR")
	assert.Contains(t, output, "MEF-COMPLETE")
	assert.Contains(t, output, "FALLBACK%")
}

func TestFormatYearSummaries_SingleYear(t *testing.T) {
	summaries := []store.YearSummary{
		{
			Year:           2022,
			Units:          120,
			MEFComplete:    95,
			MINEDUComplete: 80,
			Included:       110,
			FallbackUsed:   15,
		},
	}

	var buf bytes.Buffer
	formatYearSummaries(&buf, summaries)

	output := buf.String()
	assert.Contains(t, output, "2022")
	assert.Contains(t, output, "120")
	assert.Contains(t, output, "95")
	assert.Contains(t, output, "13.6") // 15/110 fallback share
}

func TestFormatLoadEntries_Completed(t *testing.T) {
	started := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	finished := started.Add(42 * time.Second)

	entries := []ingest.LogEntry{
		{
			ID:         3,
			Feed:       "cmn_mef_v2",
			Year:       2025,
			Status:     ingest.StatusSuccess,
			StartedAt:  started,
			FinishedAt: &finished,
			RowsLoaded: 48210,
		},
	}

	var buf bytes.Buffer
	formatLoadEntries(&buf, entries)

	output := buf.String()
	assert.Contains(t, output, "cmn_mef_v2")
	assert.Contains(t, output, "2025")
	assert.Contains(t, output, "2026-02-10 09:00")
	assert.Contains(t, output, "42s")
	assert.Contains(t, output, "48210")
}

func TestFormatLoadEntries_RunningHasNoDuration(t *testing.T) {
	entries := []ingest.LogEntry{
		{
			ID:        4,
			Feed:      "roster",
			Year:      2025,
			Status:    ingest.StatusStarted,
			StartedAt: time.Date(2026, 2, 10, 9, 5, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	formatLoadEntries(&buf, entries)

	output := buf.String()
	assert.Contains(t, output, "roster")
	assert.Contains(t, output, "-") // duration placeholder
}

func TestFormatLoadEntries_FailedTruncatesNotes(t *testing.T) {
	started := time.Date(2026, 2, 10, 9, 10, 0, 0, time.UTC)
	finished := started.Add(time.Second)
	longNote := "feed: /data/cmn_2024.csv: missing required column sec_ejec and a lot of trailing detail that should not widen the table"

	entries := []ingest.LogEntry{
		{
			ID:         5,
			Feed:       "cmn_minedu",
			Year:       2024,
			Status:     ingest.StatusFailed,
			StartedAt:  started,
			FinishedAt: &finished,
			Notes:      longNote,
		},
	}

	var buf bytes.Buffer
	formatLoadEntries(&buf, entries)

	output := buf.String()
	assert.Contains(t, output, "cmn_minedu")
	assert.Contains(t, output, "...")
	assert.NotContains(t, output, longNote)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "toolon...", truncate("toolongvalue", 9))
}
