package panel

import "strings"

// Execution-feed status vocabulary. Both fields are normalized to
// uppercase/trimmed before matching.
const (
	RecognitionComplete = "TOTALMENTE DEVENGADO"
	ApprovalApproved    = "APROBADO"
)

// DefaultProgrammedRecordType is the record-type filter for programmed
// counts; feeds tag goods registrations with this value.
const DefaultProgrammedRecordType = "BIEN"

// Aggregates holds the programmed and executed item counts for one snapshot.
type Aggregates struct {
	Programmed map[ItemKey]int
	Executed   map[ItemKey]int

	// ByApprovalStatus is the what-if surface: executed counts broken down by
	// every approval-status value, without the dual-status filter. Computed
	// from the same event rows, never resampled.
	ByApprovalStatus map[ItemKey]map[string]int

	// BothSources marks items whose phase-3 registrations carry business-key
	// overlap between MEF and MINEDU. Audit-only; it never changes counts.
	BothSources map[ItemKey]bool
}

// AggregateProgrammed counts programmed registrations per (unit, year, item):
// only phase-3 records from the source chosen for that unit-year, restricted
// to the given record type.
func AggregateProgrammed(records []NormalizedRecord, decisions []Decision, recordType string) map[ItemKey]int {
	chosen := make(map[UnitYear]Source, len(decisions))
	for _, d := range decisions {
		if d.Included {
			chosen[UnitYear{UnitID: d.UnitID, Year: d.Year}] = d.ChosenSource
		}
	}

	recordType = strings.ToUpper(strings.TrimSpace(recordType))
	out := make(map[ItemKey]int)
	for i := range records {
		r := &records[i]
		if r.PhaseCode != PhaseConsolidation {
			continue
		}
		if recordType != "" && r.RecordType != recordType {
			continue
		}
		src, ok := chosen[UnitYear{UnitID: r.UnitID, Year: r.Year}]
		if !ok || r.Source != src {
			continue
		}
		out[ItemKey{UnitID: r.UnitID, Year: r.Year, TaxonomyCode: r.TaxonomyCode}]++
	}
	return out
}

// AggregateExecuted counts qualifying execution events per (unit, year, item).
// An event qualifies when both status fields, after normalization, match the
// fixed vocabulary values. The returned what-if breakdown covers the same
// events without the approval restriction, keyed by approval-status value.
func AggregateExecuted(events []ExecutionEvent) (map[ItemKey]int, map[ItemKey]map[string]int) {
	executed := make(map[ItemKey]int)
	byStatus := make(map[ItemKey]map[string]int)

	for i := range events {
		e := &events[i]
		unit := NormalizeUnitID(e.UnitID)
		if unit == "" {
			continue
		}
		key := ItemKey{
			UnitID:       unit,
			Year:         e.Year,
			TaxonomyCode: TaxonomyCode(e.ItemGroup, e.ItemClass, e.ItemFamily, e.ItemCode),
		}

		recognition := normalizeStatus(e.RecognitionStatus)
		approval := normalizeStatus(e.ApprovalStatus)

		if recognition == RecognitionComplete {
			m := byStatus[key]
			if m == nil {
				m = make(map[string]int)
				byStatus[key] = m
			}
			m[approval]++

			if approval == ApprovalApproved {
				executed[key]++
			}
		}
	}
	return executed, byStatus
}

// AggregateOverlap collects, per (unit, year, item), whether any phase-3
// registration of that item was seen from both sources under its business
// key. Requires records that went through AnnotateOverlap.
func AggregateOverlap(records []NormalizedRecord) map[ItemKey]bool {
	out := make(map[ItemKey]bool)
	for i := range records {
		r := &records[i]
		if r.PhaseCode != PhaseConsolidation {
			continue
		}
		if r.Overlap.BusinessHasMEF && r.Overlap.BusinessHasMINEDU {
			out[ItemKey{UnitID: r.UnitID, Year: r.Year, TaxonomyCode: r.TaxonomyCode}] = true
		}
	}
	return out
}

// Aggregate runs both sides over the same snapshot.
func Aggregate(records []NormalizedRecord, events []ExecutionEvent, decisions []Decision, recordType string) Aggregates {
	executed, byStatus := AggregateExecuted(events)
	return Aggregates{
		Programmed:       AggregateProgrammed(records, decisions, recordType),
		Executed:         executed,
		ByApprovalStatus: byStatus,
		BothSources:      AggregateOverlap(records),
	}
}

func normalizeStatus(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
