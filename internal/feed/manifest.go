package feed

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest maps feed name and year to a source file path, so a full
// reload is one declarative file instead of a script of load commands.
//
//	feeds:
//	  cmn_mef:
//	    2022: /data/cmn/CMN_SIGA_MEF_2022.csv
//	  roster:
//	    2025: /data/padron/padron_2025.xlsx
type Manifest struct {
	Feeds map[string]map[int]string `yaml:"feeds"`
}

// LoadManifest reads and parses a YAML manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "feed: parse manifest %s", path)
	}
	if len(m.Feeds) == 0 {
		return nil, eris.Errorf("feed: manifest %s declares no feeds", path)
	}
	return &m, nil
}

// Resolve returns the source path for a feed and year.
func (m *Manifest) Resolve(feed string, year int) (string, error) {
	years, ok := m.Feeds[feed]
	if !ok {
		return "", eris.Errorf("feed: manifest has no entry for feed %q", feed)
	}
	path, ok := years[year]
	if !ok {
		return "", eris.Errorf("feed: manifest has no %d entry for feed %q", year, feed)
	}
	return path, nil
}

// Entry is one resolved manifest line.
type Entry struct {
	Feed string
	Year int
	Path string
}

// Entries returns all manifest entries sorted by feed name then year.
func (m *Manifest) Entries() []Entry {
	var out []Entry
	for feed, years := range m.Feeds {
		for year, path := range years {
			out = append(out, Entry{Feed: feed, Year: year, Path: path})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Feed != out[j].Feed {
			return out[i].Feed < out[j].Feed
		}
		return out[i].Year < out[j].Year
	})
	return out
}
