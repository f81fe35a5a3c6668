// Package feed parses source feed files (CSV, XLSX) into rows ready for
// COPY into the raw schema. Each feed knows its target table, its column
// list, and the header aliases the upstream exports use.
package feed

import (
	"context"

	"github.com/rotisserie/eris"
)

// Feed defines the interface each source feed must implement.
type Feed interface {
	// Name returns the unique identifier for this feed (e.g., "cmn_mef").
	Name() string

	// Table returns the target table (e.g., "raw.cmn_records").
	Table() string

	// Columns returns the insert column list matching the rows Load produces.
	Columns() []string

	// Load parses the file at path and returns rows aligned with Columns().
	// year is the declared load year, used when the file omits a year column.
	Load(ctx context.Context, path string, year int) ([][]any, error)
}

// Registry maps feed names to their implementations.
type Registry struct {
	feeds map[string]Feed
	order []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with all feeds.
func NewRegistry() *Registry {
	r := &Registry{
		feeds: make(map[string]Feed),
	}

	r.Register(&CMNMEF{})
	r.Register(&CMNMEFV2{})
	r.Register(&CMNMINEDU{})
	r.Register(&Execution{})
	r.Register(&Roster{})

	return r
}

// Register adds a feed to the registry.
func (r *Registry) Register(f Feed) {
	name := f.Name()
	r.feeds[name] = f
	r.order = append(r.order, name)
}

// Get returns a feed by name.
func (r *Registry) Get(name string) (Feed, error) {
	f, ok := r.feeds[name]
	if !ok {
		return nil, eris.Errorf("feed: unknown feed %q", name)
	}
	return f, nil
}

// AllNames returns all registered feed names in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
