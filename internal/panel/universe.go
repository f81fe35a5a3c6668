package panel

import "sort"

// Resolution is the terminal state of the source-precedence rule for one
// (unit, year). The rule is a strict total order over two candidates, never a
// merge: the preferred source wins if it satisfies the completeness predicate,
// otherwise the fallback wins if it does, otherwise the unit-year is excluded,
// regardless of raw volume on either side.
type Resolution int

const (
	Excluded Resolution = iota
	PreferredChosen
	FallbackChosen
)

// String returns the audit label for a resolution state.
func (r Resolution) String() string {
	switch r {
	case PreferredChosen:
		return "preferred"
	case FallbackChosen:
		return "fallback"
	default:
		return "excluded"
	}
}

// Completeness records which phase codes each source contributed for a
// (unit, year). Unmapped phases never reach this structure.
type Completeness struct {
	Phases map[Source]map[int]bool
}

// HasAllPhases reports whether a source contributed records in all three
// phases, the completeness predicate behind every inclusion decision.
func (c Completeness) HasAllPhases(src Source) bool {
	p := c.Phases[src]
	return p[PhaseIdentification] && p[PhaseClassification] && p[PhaseConsolidation]
}

// Decision is the resolver output for one (unit, year).
type Decision struct {
	UnitID string
	Year   int

	State        Resolution
	ChosenSource Source // empty when excluded
	Included     bool
	FallbackUsed bool

	// Per-source completeness, kept for QC reporting.
	MEFComplete    bool
	MINEDUComplete bool

	Region    string
	UnitName  string
	ParentOrg string
}

// descriptive holds the last-seen non-empty descriptive attributes per source.
type descriptive struct {
	region, unitName, parentOrg string
}

func (d *descriptive) absorb(r *NormalizedRecord) {
	if d.region == "" && r.Region != "" {
		d.region = r.Region
	}
	if d.unitName == "" && r.UnitName != "" {
		d.unitName = r.UnitName
	}
	if d.parentOrg == "" && r.ParentOrg != "" {
		d.parentOrg = r.ParentOrg
	}
}

// CompletenessByUnitYear folds a normalized snapshot into per-(unit, year)
// phase presence per source. Records with PhaseUnmapped are skipped: they are
// retained for traceability but never count toward the predicate.
func CompletenessByUnitYear(records []NormalizedRecord) map[UnitYear]*Completeness {
	out := make(map[UnitYear]*Completeness)
	for i := range records {
		r := &records[i]
		if r.PhaseCode == PhaseUnmapped {
			continue
		}
		key := UnitYear{UnitID: r.UnitID, Year: r.Year}
		c := out[key]
		if c == nil {
			c = &Completeness{Phases: make(map[Source]map[int]bool)}
			out[key] = c
		}
		p := c.Phases[r.Source]
		if p == nil {
			p = make(map[int]bool)
			c.Phases[r.Source] = p
		}
		p[r.PhaseCode] = true
	}
	return out
}

// Resolve applies the precedence rule to one (unit, year).
func Resolve(c Completeness) Resolution {
	switch {
	case c.HasAllPhases(SourceMEF):
		return PreferredChosen
	case c.HasAllPhases(SourceMINEDU):
		return FallbackChosen
	default:
		return Excluded
	}
}

// ResolveUniverse decides the authoritative source for every (unit, year)
// present in the snapshot. Absence of a viable source is the expected
// steady state, not an error: the unit-year simply comes out excluded.
// Descriptive attributes come from the chosen source; for excluded rows they
// fall back to whichever source has a non-empty value, so audit-only rows
// still carry a readable name.
func ResolveUniverse(records []NormalizedRecord) []Decision {
	completeness := CompletenessByUnitYear(records)

	attrs := make(map[UnitYear]map[Source]*descriptive)
	for i := range records {
		r := &records[i]
		key := UnitYear{UnitID: r.UnitID, Year: r.Year}
		bySource := attrs[key]
		if bySource == nil {
			bySource = make(map[Source]*descriptive)
			attrs[key] = bySource
		}
		d := bySource[r.Source]
		if d == nil {
			d = &descriptive{}
			bySource[r.Source] = d
		}
		d.absorb(r)
		if completeness[key] == nil {
			// Unit-year seen only through unmapped-phase records: still part
			// of the universe, with an empty completeness map.
			completeness[key] = &Completeness{Phases: make(map[Source]map[int]bool)}
		}
	}

	decisions := make([]Decision, 0, len(completeness))
	for key, c := range completeness {
		state := Resolve(*c)
		d := Decision{
			UnitID:         key.UnitID,
			Year:           key.Year,
			State:          state,
			MEFComplete:    c.HasAllPhases(SourceMEF),
			MINEDUComplete: c.HasAllPhases(SourceMINEDU),
		}
		switch state {
		case PreferredChosen:
			d.Included = true
			d.ChosenSource = SourceMEF
		case FallbackChosen:
			d.Included = true
			d.ChosenSource = SourceMINEDU
			d.FallbackUsed = true
		}

		bySource := attrs[key]
		if d.Included {
			if a := bySource[d.ChosenSource]; a != nil {
				d.Region, d.UnitName, d.ParentOrg = a.region, a.unitName, a.parentOrg
			}
		} else {
			// Secondary fallback for audit-only rows: whichever source has a
			// non-empty value.
			for _, src := range []Source{SourceMEF, SourceMINEDU} {
				a := bySource[src]
				if a == nil {
					continue
				}
				if d.Region == "" {
					d.Region = a.region
				}
				if d.UnitName == "" {
					d.UnitName = a.unitName
				}
				if d.ParentOrg == "" {
					d.ParentOrg = a.parentOrg
				}
			}
		}

		decisions = append(decisions, d)
	}

	sort.Slice(decisions, func(i, j int) bool {
		if decisions[i].Year != decisions[j].Year {
			return decisions[i].Year < decisions[j].Year
		}
		return decisions[i].UnitID < decisions[j].UnitID
	})
	return decisions
}
