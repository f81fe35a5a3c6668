package panel

import "sort"

// BalancedCohort returns the unit IDs with Included = true in every one of
// the study-window years: the set intersection of per-year inclusion sets.
// Membership is binary: a unit included in two of three years is fully
// excluded, never partially weighted. The cohort is recomputed wholesale from
// the decisions on every run; it is never patched incrementally.
func BalancedCohort(decisions []Decision, years []int) []string {
	if len(years) == 0 {
		return nil
	}

	included := make(map[string]map[int]bool)
	for _, d := range decisions {
		if !d.Included {
			continue
		}
		ys := included[d.UnitID]
		if ys == nil {
			ys = make(map[int]bool)
			included[d.UnitID] = ys
		}
		ys[d.Year] = true
	}

	var cohort []string
	for unit, ys := range included {
		all := true
		for _, y := range years {
			if !ys[y] {
				all = false
				break
			}
		}
		if all {
			cohort = append(cohort, unit)
		}
	}

	sort.Strings(cohort)
	return cohort
}
