package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phaseRecords(unit string, year int, src Source, phases ...int) []NormalizedRecord {
	var out []NormalizedRecord
	for _, p := range phases {
		out = append(out, nrec(unit, year, p, src, "010100010001", 1))
	}
	return out
}

func decisionFor(t *testing.T, decisions []Decision, unit string, year int) Decision {
	t.Helper()
	for _, d := range decisions {
		if d.UnitID == unit && d.Year == year {
			return d
		}
	}
	t.Fatalf("no decision for unit %s year %d", unit, year)
	return Decision{}
}

func TestResolve_PreferredWinsWhenComplete(t *testing.T) {
	// MEF complete, MINEDU incomplete: preferred chosen without fallback.
	records := append(
		phaseRecords("100", 2023, SourceMEF, 1, 2, 3),
		phaseRecords("100", 2023, SourceMINEDU, 1, 2)...,
	)

	d := decisionFor(t, ResolveUniverse(records), "100", 2023)
	assert.Equal(t, PreferredChosen, d.State)
	assert.True(t, d.Included)
	assert.Equal(t, SourceMEF, d.ChosenSource)
	assert.False(t, d.FallbackUsed)
	assert.True(t, d.MEFComplete)
	assert.False(t, d.MINEDUComplete)
}

func TestResolve_FallbackWhenPreferredIncomplete(t *testing.T) {
	records := append(
		phaseRecords("100", 2023, SourceMEF, 1, 2),
		phaseRecords("100", 2023, SourceMINEDU, 1, 2, 3)...,
	)

	d := decisionFor(t, ResolveUniverse(records), "100", 2023)
	assert.Equal(t, FallbackChosen, d.State)
	assert.True(t, d.Included)
	assert.Equal(t, SourceMINEDU, d.ChosenSource)
	assert.True(t, d.FallbackUsed)
	assert.False(t, d.MEFComplete)
	assert.True(t, d.MINEDUComplete)
}

func TestResolve_PreferredWinsRegardlessOfVolume(t *testing.T) {
	// MINEDU has far more raw rows, but precedence is a strict order, not a
	// vote: a complete MEF always wins.
	records := phaseRecords("100", 2023, SourceMEF, 1, 2, 3)
	for i := 0; i < 50; i++ {
		records = append(records, phaseRecords("100", 2023, SourceMINEDU, 1, 2, 3)...)
	}

	d := decisionFor(t, ResolveUniverse(records), "100", 2023)
	assert.Equal(t, PreferredChosen, d.State)
	assert.Equal(t, SourceMEF, d.ChosenSource)
}

func TestResolve_ExcludedWhenBothIncomplete(t *testing.T) {
	records := append(
		phaseRecords("100", 2023, SourceMEF, 1),
		phaseRecords("100", 2023, SourceMINEDU, 2, 3)...,
	)

	d := decisionFor(t, ResolveUniverse(records), "100", 2023)
	assert.Equal(t, Excluded, d.State)
	assert.False(t, d.Included)
	assert.Empty(t, string(d.ChosenSource))
	assert.False(t, d.FallbackUsed)
}

func TestResolve_UnmappedPhasesDoNotCount(t *testing.T) {
	records := phaseRecords("100", 2023, SourceMEF, 1, 2)
	extra := nrec("100", 2023, PhaseUnmapped, SourceMEF, "010100010001", 1)
	records = append(records, extra)

	d := decisionFor(t, ResolveUniverse(records), "100", 2023)
	assert.False(t, d.Included, "unmapped phase must not complete a source")
}

func TestResolve_IncludedImpliesChosenComplete(t *testing.T) {
	records := append(
		phaseRecords("1", 2022, SourceMEF, 1, 2, 3),
		phaseRecords("2", 2022, SourceMINEDU, 1, 2, 3)...,
	)
	records = append(records, phaseRecords("3", 2022, SourceMEF, 3)...)

	decisions := ResolveUniverse(records)
	comp := CompletenessByUnitYear(records)
	for _, d := range decisions {
		if !d.Included {
			continue
		}
		c := comp[UnitYear{UnitID: d.UnitID, Year: d.Year}]
		require.NotNil(t, c)
		assert.True(t, c.HasAllPhases(d.ChosenSource))
		assert.Contains(t, []Source{SourceMEF, SourceMINEDU}, d.ChosenSource)
	}
}

func TestResolve_DescriptiveAttributes(t *testing.T) {
	mef := phaseRecords("100", 2023, SourceMEF, 1, 2, 3)
	for i := range mef {
		mef[i].Region = "CUSCO"
		mef[i].UnitName = "UE EDUCACION CUSCO"
	}
	minedu := phaseRecords("100", 2023, SourceMINEDU, 1, 2)
	for i := range minedu {
		minedu[i].Region = "CUZCO (ALT)"
		minedu[i].ParentOrg = "GOBIERNO REGIONAL"
	}

	d := decisionFor(t, ResolveUniverse(append(mef, minedu...)), "100", 2023)
	// Attributes come from the chosen source only.
	assert.Equal(t, "CUSCO", d.Region)
	assert.Equal(t, "UE EDUCACION CUSCO", d.UnitName)
	assert.Empty(t, d.ParentOrg)
}

func TestResolve_ExcludedRowFallsBackToAnyNonEmptyAttribute(t *testing.T) {
	mef := phaseRecords("100", 2023, SourceMEF, 1)
	minedu := phaseRecords("100", 2023, SourceMINEDU, 2)
	for i := range minedu {
		minedu[i].UnitName = "UE SALUD"
	}

	d := decisionFor(t, ResolveUniverse(append(mef, minedu...)), "100", 2023)
	assert.False(t, d.Included)
	assert.Equal(t, "UE SALUD", d.UnitName)
}

func TestResolution_String(t *testing.T) {
	assert.Equal(t, "preferred", PreferredChosen.String())
	assert.Equal(t, "fallback", FallbackChosen.String())
	assert.Equal(t, "excluded", Excluded.String())
}

func TestResolveUniverse_DeterministicOrder(t *testing.T) {
	records := append(
		phaseRecords("20", 2023, SourceMEF, 1, 2, 3),
		phaseRecords("10", 2022, SourceMEF, 1, 2, 3)...,
	)
	a := ResolveUniverse(records)
	b := ResolveUniverse(records)
	assert.Equal(t, a, b)
	assert.Equal(t, 2022, a[0].Year)
	assert.Equal(t, "10", a[0].UnitID)
}
