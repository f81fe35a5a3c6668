package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quipulab/cmn-panel/internal/feed"
	"github.com/quipulab/cmn-panel/internal/ingest"
	"github.com/quipulab/cmn-panel/internal/store"
)

var ingestLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load one feed file or a manifest of files",
	Long: `Load source files into the raw schema.

Single file:
  cmn-panel ingest load --feed cmn_mef --year 2022 --path cmn_2022.csv

Manifest (feed -> year -> path):
  cmn-panel ingest load --manifest feeds.yaml

Reloading a feed-year replaces its previous rows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		feedName, _ := cmd.Flags().GetString("feed")
		year, _ := cmd.Flags().GetInt("year")
		path, _ := cmd.Flags().GetString("path")
		manifestPath, _ := cmd.Flags().GetString("manifest")

		if manifestPath == "" && (feedName == "" || year == 0 || path == "") {
			return eris.New("ingest load: either --manifest or all of --feed, --year, --path are required")
		}
		if manifestPath != "" && (feedName != "" || path != "") {
			return eris.New("ingest load: --manifest cannot be combined with --feed or --path")
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		reg := feed.NewRegistry()
		lg := ingest.NewLog(s.Pool())

		if manifestPath == "" {
			n, err := loadOne(ctx, s, reg, lg, feedName, year, path)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d rows from %s\n", n, path)
			return nil
		}

		m, err := feed.LoadManifest(manifestPath)
		if err != nil {
			return err
		}
		var total int64
		for _, e := range m.Entries() {
			n, err := loadOne(ctx, s, reg, lg, e.Feed, e.Year, e.Path)
			if err != nil {
				return eris.Wrapf(err, "ingest load: %s %d", e.Feed, e.Year)
			}
			total += n
		}
		fmt.Printf("Loaded %d rows from %d files\n", total, len(m.Entries()))
		return nil
	},
}

func init() {
	ingestLoadCmd.Flags().String("feed", "", "feed name: "+joinFeedNames())
	ingestLoadCmd.Flags().Int("year", 0, "load year, used when the file omits a year column")
	ingestLoadCmd.Flags().String("path", "", "source file (.csv, roster also .xlsx)")
	ingestLoadCmd.Flags().String("manifest", "", "YAML manifest mapping feeds and years to paths")
	ingestCmd.AddCommand(ingestLoadCmd)
}

// loadOne parses a single file and writes it, bracketed by ingestion_log
// entries so interrupted loads stay visible in 'ingest status'.
func loadOne(ctx context.Context, s *store.Store, reg *feed.Registry, lg *ingest.Log, feedName string, year int, path string) (int64, error) {
	f, err := reg.Get(feedName)
	if err != nil {
		return 0, err
	}

	log := zap.L().With(
		zap.String("command", "ingest.load"),
		zap.String("feed", feedName),
		zap.Int("year", year),
	)

	loadID, err := lg.Start(ctx, feedName, path, year)
	if err != nil {
		return 0, err
	}

	rows, err := f.Load(ctx, path, year)
	if err != nil {
		_ = lg.Fail(ctx, loadID, err.Error())
		return 0, err
	}

	n, err := ingest.WriteRows(ctx, s.Pool(), f, year, rows)
	if err != nil {
		_ = lg.Fail(ctx, loadID, err.Error())
		return 0, err
	}

	if err := lg.Complete(ctx, loadID, n); err != nil {
		return 0, err
	}

	log.Info("feed loaded", zap.String("path", path), zap.Int64("rows", n))
	return n, nil
}

func joinFeedNames() string {
	return strings.Join(feed.NewRegistry().AllNames(), ", ")
}
