// Package panel builds the analysis-ready CMN panel: it normalizes raw feed
// records, annotates cross-source overlaps, resolves one authoritative source
// per (unit, year), restricts to the balanced cohort, and computes coverage
// and deviation indicators. Every stage is a pure transformation over the
// full snapshot of its inputs.
package panel

// Source identifies which administrative feed a record came from.
type Source string

const (
	// SourceMEF is the preferred CMN feed (two schema versions).
	SourceMEF Source = "MEF"
	// SourceMINEDU is the fallback CMN feed (single schema).
	SourceMINEDU Source = "MINEDU"
)

// Phase codes for the registration workflow. PhaseUnmapped marks a phase
// name outside the fixed lexicon; such records are retained but never count
// toward completeness.
const (
	PhaseUnmapped       = 0
	PhaseIdentification = 1
	PhaseClassification = 2
	PhaseConsolidation  = 3
)

// RawRecord is one row of a CMN feed exactly as ingested. Produced once by
// ingestion, never mutated.
type RawRecord struct {
	Year          int
	UnitID        string // sec_ejec as it appeared in the feed
	PhaseName     string
	RecordType    string
	ItemGroup     string
	ItemClass     string
	ItemFamily    string
	ItemCode      string
	Price         float64
	Quantity      float64
	Amount        float64
	Source        Source
	SourceVersion string

	// Descriptive attributes, carried through universe resolution.
	Region    string
	UnitName  string
	ParentOrg string
}

// NormalizedRecord is a RawRecord lifted into the unified schema: digit-only
// unit ID, lexicon-mapped phase code, and the fixed-width taxonomy join key.
type NormalizedRecord struct {
	RawRecord
	PhaseCode    int    // 1, 2, 3 or PhaseUnmapped
	TaxonomyCode string // group(2)+class(2)+family(4)+item(4)

	Overlap OverlapFlags
}

// OverlapFlags annotates a record with its cross-source overlap situation.
// The exact-key and business-key views are computed independently.
type OverlapFlags struct {
	ExactHasMEF       bool
	ExactHasMINEDU    bool
	RowsUnderExactKey int

	BusinessHasMEF       bool
	BusinessHasMINEDU    bool
	RowsMEF              int
	RowsMINEDU           int
	RowsUnderBusinessKey int
}

// ExecutionEvent is one row of the independent execution feed.
type ExecutionEvent struct {
	Year              int
	UnitID            string
	RecordType        string
	ItemGroup         string
	ItemClass         string
	ItemFamily        string
	ItemCode          string
	RecognitionStatus string
	ApprovalStatus    string
	Currency          string
	Amount            float64
}

/// RosterEntry is one row of the padron feed: the platform-transition
// enrollment state for a unit in a given year.
type RosterEntry struct {
	Year     int
	UnitID   string
	Enrolled string // SI / NO after normalization
	Category string
}

// UnitYear keys per-unit-per-year aggregates.
type UnitYear struct {
	UnitID string
	Year   int
}

// ItemKey keys per-item aggregates within a unit-year.
type ItemKey struct {
	UnitID       string
	Year         int
	TaxonomyCode string
}
