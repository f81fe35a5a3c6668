package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quipulab/cmn-panel/internal/ingest"
)

var ingestStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the ingestion log",
	Long:  "Displays the load history for all feeds, most recent first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		lg := ingest.NewLog(s.Pool())
		entries, err := lg.ListAll(ctx)
		if err != nil {
			return eris.Wrap(err, "ingest status")
		}

		if len(entries) == 0 {
			zap.L().Info("no loads recorded, run 'ingest load' first")
			return nil
		}

		formatLoadEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	ingestCmd.AddCommand(ingestStatusCmd)
}

// formatLoadEntries writes a tabular representation of load entries to w.
func formatLoadEntries(out io.Writer, entries []ingest.LogEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFEED\tYEAR\tSTATUS\tSTARTED\tDURATION\tROWS\tNOTES")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t------\t-------\t--------\t----\t-----")

	for _, e := range entries {
		dur := "-"
		if e.FinishedAt != nil {
			d := e.FinishedAt.Sub(e.StartedAt).Round(time.Second)
			dur = d.String()
		}

		notes := ""
		if e.Notes != "" {
			notes = truncate(e.Notes, 60)
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%d\t%s\n",
			e.ID,
			e.Feed,
			e.Year,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.RowsLoaded,
			notes,
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
