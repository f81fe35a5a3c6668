package panel

import (
	"strings"
)

// NormalizeUnitID strips every non-digit character from a raw sec_ejec value.
// An empty result means the record carries no usable unit key.
func NormalizeUnitID(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhaseCode maps a raw phase name onto the closed lexicon. Consolidation is
// checked first: some feeds label the third phase "CONSOLIDACION Y APROBACION"
// and the second "CLASIFICACION Y PRIORIZACION", so substring order matters.
func PhaseCode(phaseName string) int {
	name := strings.ToUpper(strings.TrimSpace(phaseName))
	switch {
	case strings.Contains(name, "CONSOLIDACION"):
		return PhaseConsolidation
	case strings.Contains(name, "CLASIFICACION"), strings.Contains(name, "PRIORIZACION"):
		return PhaseClassification
	case strings.Contains(name, "IDENTIFICACION"):
		return PhaseIdentification
	default:
		return PhaseUnmapped
	}
}

// TaxonomyCode builds the fixed-width item join key from the four numeric
// taxonomy segments: group(2) + class(2) + family(4) + item(4).
func TaxonomyCode(group, class, family, item string) string {
	return zeroPad(group, 2) + zeroPad(class, 2) + zeroPad(family, 4) + zeroPad(item, 4)
}

// zeroPad keeps the digits of s, left-padded with zeros to width. Segments
// longer than width are kept whole rather than truncated, so a malformed
// source value never collides with a valid code.
func zeroPad(s string, width int) string {
	d := NormalizeUnitID(strings.TrimSpace(s))
	if len(d) >= width {
		return d
	}
	return strings.Repeat("0", width-len(d)) + d
}

// NormalizeResult reports what the normalizer did with a snapshot, for the
// rebuild audit trail.
type NormalizeResult struct {
	Records       []NormalizedRecord
	DroppedNoUnit int // records whose unit ID normalized to empty
	UnmappedPhase int // records retained with PhaseUnmapped
}

// Normalize canonicalizes a raw snapshot into the unified schema. Records
// without a usable unit ID are dropped (counted, never fatal); records with
// an unmapped phase name are retained with PhaseUnmapped.
func Normalize(raw []RawRecord) NormalizeResult {
	res := NormalizeResult{Records: make([]NormalizedRecord, 0, len(raw))}
	for _, r := range raw {
		unit := NormalizeUnitID(r.UnitID)
		if unit == "" {
			res.DroppedNoUnit++
			continue
		}

		nr := NormalizedRecord{RawRecord: r}
		nr.UnitID = unit
		nr.RecordType = strings.ToUpper(strings.TrimSpace(r.RecordType))
		nr.PhaseCode = PhaseCode(r.PhaseName)
		nr.TaxonomyCode = TaxonomyCode(r.ItemGroup, r.ItemClass, r.ItemFamily, r.ItemCode)
		if nr.PhaseCode == PhaseUnmapped {
			res.UnmappedPhase++
		}
		res.Records = append(res.Records, nr)
	}
	return res
}
