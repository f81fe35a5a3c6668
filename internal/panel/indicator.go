package panel

import "sort"

// ExecState classifies a unit-year by the sign of total executed minus total
// programmed. The four states are mutually exclusive and exhaustive over
// unit-years with at least one programmed item; zero-programmed unit-years
// are out of indicator scope entirely and produce no record.
type ExecState string

const (
	ExecNone  ExecState = "no-execution"
	ExecUnder ExecState = "under-execution"
	ExecExact ExecState = "exact-execution"
	ExecOver  ExecState = "over-execution"
)

// IndicatorRecord is the per-(unit, year) output of the indicator engine.
// Percentage fields are nil whenever their denominator is zero, never a
// sentinel value, never a panic.
type IndicatorRecord struct {
	UnitID string
	Year   int

	NProgrammed       int
	NWithExecution    int
	NWithoutExecution int
	CoveragePct       *float64

	// Deviation variants over item-level deviation_i = programmed_i - executed_i.
	DevPctMixed   *float64 // 100 * (sum programmed - sum executed) / sum programmed
	DevPctAll     *float64 // 100 * sum(deviation_i) / sum programmed; cross-check of Mixed
	DevPctNonzero *float64 // same ratio restricted to items with deviation_i != 0

	State ExecState
}

// ItemDetail is one item-level row of the audit trace behind an
// IndicatorRecord.
type ItemDetail struct {
	UnitID       string
	Year         int
	TaxonomyCode string
	Programmed   int
	Executed     int
	Covered      bool

	// BothSources is true when the item's phase-3 registrations overlapped
	// between MEF and MINEDU under the business key.
	BothSources bool
}

// ComputeIndicators joins programmed and executed aggregates per unit-year in
// the resolved universe (not restricted to the balanced cohort; that cut is
// a downstream analysis choice) and derives the coverage indicator plus the
// three deviation variants. A programmed item is covered iff its executed
// count is positive: partial execution still counts as full coverage for that
// item, so coverage aggregates binary flags, not volumes.
func ComputeIndicators(agg Aggregates, decisions []Decision) ([]IndicatorRecord, []ItemDetail) {
	// Items per included unit-year: union of programmed and executed keys.
	included := make(map[UnitYear]bool, len(decisions))
	for _, d := range decisions {
		if d.Included {
			included[UnitYear{UnitID: d.UnitID, Year: d.Year}] = true
		}
	}

	items := make(map[UnitYear]map[string][2]int)
	add := func(key ItemKey, programmed, executed int) {
		uy := UnitYear{UnitID: key.UnitID, Year: key.Year}
		if !included[uy] {
			return
		}
		m := items[uy]
		if m == nil {
			m = make(map[string][2]int)
			items[uy] = m
		}
		cur := m[key.TaxonomyCode]
		cur[0] += programmed
		cur[1] += executed
		m[key.TaxonomyCode] = cur
	}
	for key, n := range agg.Programmed {
		add(key, n, 0)
	}
	for key, n := range agg.Executed {
		add(key, 0, n)
	}

	var records []IndicatorRecord
	var details []ItemDetail

	for uy, byItem := range items {
		var (
			sumProgrammed, sumExecuted int
			sumDeviation               int
			nzProgrammed, nzDeviation  int
			nProg, covered             int
		)

		taxonomies := make([]string, 0, len(byItem))
		for tax := range byItem {
			taxonomies = append(taxonomies, tax)
		}
		sort.Strings(taxonomies)

		for _, tax := range taxonomies {
			counts := byItem[tax]
			programmed, executed := counts[0], counts[1]

			sumProgrammed += programmed
			sumExecuted += executed
			dev := programmed - executed
			sumDeviation += dev
			if dev != 0 {
				nzProgrammed += programmed
				nzDeviation += dev
			}
			if programmed > 0 {
				nProg++
				if executed > 0 {
					covered++
				}
			}

			details = append(details, ItemDetail{
				UnitID:       uy.UnitID,
				Year:         uy.Year,
				TaxonomyCode: tax,
				Programmed:   programmed,
				Executed:     executed,
				Covered:      programmed > 0 && executed > 0,
				BothSources:  agg.BothSources[ItemKey{UnitID: uy.UnitID, Year: uy.Year, TaxonomyCode: tax}],
			})
		}

		if sumProgrammed == 0 {
			// Zero-programmed unit-year: out of indicator scope.
			continue
		}

		rec := IndicatorRecord{
			UnitID:            uy.UnitID,
			Year:              uy.Year,
			NProgrammed:       nProg,
			NWithExecution:    covered,
			NWithoutExecution: nProg - covered,
			CoveragePct:       pct(covered, nProg),
			DevPctMixed:       pct(sumProgrammed-sumExecuted, sumProgrammed),
			// Item-wise sum; must agree with DevPctMixed for every unit-year.
			DevPctAll:     pct(sumDeviation, sumProgrammed),
			DevPctNonzero: pct(nzDeviation, nzProgrammed),
			State:         classify(sumProgrammed, sumExecuted),
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Year != records[j].Year {
			return records[i].Year < records[j].Year
		}
		return records[i].UnitID < records[j].UnitID
	})
	sort.Slice(details, func(i, j int) bool {
		a, b := details[i], details[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.UnitID != b.UnitID {
			return a.UnitID < b.UnitID
		}
		return a.TaxonomyCode < b.TaxonomyCode
	})
	return records, details
}

// pct returns 100*num/den, or nil when den is zero.
func pct(num, den int) *float64 {
	if den == 0 {
		return nil
	}
	v := 100 * float64(num) / float64(den)
	return &v
}

func classify(programmed, executed int) ExecState {
	switch {
	case executed == 0:
		return ExecNone
	case executed < programmed:
		return ExecUnder
	case executed == programmed:
		return ExecExact
	default:
		return ExecOver
	}
}
