package panel

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Snapshot is the immutable raw input state of one rebuild.
type Snapshot struct {
	Records []RawRecord
	Events  []ExecutionEvent
	Roster  []RosterEntry
}

// Options configures a rebuild.
type Options struct {
	Years                []int  // study window, ascending
	ProgrammedRecordType string // record-type filter for programmed counts
}

// Result is the full derived state of one rebuild. It replaces the previous
// derived state wholesale; nothing in it is ever patched incrementally.
type Result struct {
	Universe     []Decision
	Cohort       []string
	Indicators   []IndicatorRecord
	AuditDetail  []ItemDetail
	RosterGroups []RosterGroup

	DroppedNoUnit int
	UnmappedPhase int
}

// Build runs the six stages over a snapshot. Everything is deterministic:
// rebuilding from an unchanged snapshot yields an identical Result. Universe
// resolution is partitioned by year; no aggregation or join key crosses a
// (year, unit) boundary, so the partitions share no mutable state.
func Build(ctx context.Context, snap Snapshot, opts Options) (*Result, error) {
	log := zap.L().With(zap.String("component", "panel.build"))

	recordType := opts.ProgrammedRecordType
	if recordType == "" {
		recordType = DefaultProgrammedRecordType
	}
	years := append([]int(nil), opts.Years...)
	sort.Ints(years)

	norm := Normalize(snap.Records)
	log.Info("normalized snapshot",
		zap.Int("records", len(norm.Records)),
		zap.Int("dropped_no_unit", norm.DroppedNoUnit),
		zap.Int("unmapped_phase", norm.UnmappedPhase),
	)

	annotated := AnnotateOverlap(norm.Records)

	// Resolve each year's slice of the universe concurrently.
	byYear := make(map[int][]NormalizedRecord)
	for _, r := range annotated {
		byYear[r.Year] = append(byYear[r.Year], r)
	}

	decisionsByYear := make(map[int][]Decision, len(byYear))
	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	for year, recs := range byYear {
		g.Go(func() error {
			d := ResolveUniverse(recs)
			mu.Lock()
			decisionsByYear[year] = d
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	yearKeys := make([]int, 0, len(decisionsByYear))
	for y := range decisionsByYear {
		yearKeys = append(yearKeys, y)
	}
	sort.Ints(yearKeys)
	var universe []Decision
	for _, y := range yearKeys {
		universe = append(universe, decisionsByYear[y]...)
	}

	cohort := BalancedCohort(universe, years)
	agg := Aggregate(annotated, snap.Events, universe, recordType)
	indicators, detail := ComputeIndicators(agg, universe)
	groups := ClassifyRoster(snap.Roster, years)

	log.Info("panel rebuilt",
		zap.Int("universe_rows", len(universe)),
		zap.Int("cohort_units", len(cohort)),
		zap.Int("indicator_rows", len(indicators)),
		zap.Int("roster_groups", len(groups)),
	)

	return &Result{
		Universe:      universe,
		Cohort:        cohort,
		Indicators:    indicators,
		AuditDetail:   detail,
		RosterGroups:  groups,
		DroppedNoUnit: norm.DroppedNoUnit,
		UnmappedPhase: norm.UnmappedPhase,
	}, nil
}
