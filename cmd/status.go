package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quipulab/cmn-panel/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show panel QC summary",
	Long:  "Displays per-year source resolution counts, the cohort size, and the last rebuild.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		summaries, err := s.YearSummaries(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		if len(summaries) == 0 {
			zap.L().Info("derived tables are empty, run 'build' first")
			return nil
		}

		cohort, err := s.CohortSize(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		last, err := s.LastRebuild(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		formatYearSummaries(os.Stdout, summaries)
		fmt.Printf("\nCohort: %d units\n", cohort)
		if last != nil {
			fmt.Printf("Last rebuild: %s at %s (%d dropped without unit, %d unmapped phases)\n",
				last.RunID,
				last.FinishedAt.Format("2006-01-02 15:04"),
				last.DroppedNoUnit,
				last.UnmappedPhase,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// formatYearSummaries writes the per-year QC table to w.
func formatYearSummaries(out io.Writer, summaries []store.YearSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "YEAR\tUNITS\tMEF-COMPLETE\tMINEDU-COMPLETE\tINCLUDED\tFALLBACK\tFALLBACK%")
	_, _ = fmt.Fprintln(w, "----\t-----\t------------\t---------------\t--------\t--------\t---------")

	for _, s := range summaries {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%.1f\n",
			s.Year,
			s.Units,
			s.MEFComplete,
			s.MINEDUComplete,
			s.Included,
			s.FallbackUsed,
			s.FallbackSharePct(),
		)
	}
	_ = w.Flush()
}
