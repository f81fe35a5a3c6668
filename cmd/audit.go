package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quipulab/cmn-panel/internal/audit"
	"github.com/quipulab/cmn-panel/internal/panel"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Write an item-level audit trace",
	Long: `Recompute the panel and write a per-item SQLite trace for cohort units.

The trace carries every (unit, year, taxonomy code) pair behind the indicator
aggregates, so individual coverage figures can be traced back to source rows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "audit"))

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			return eris.New("audit: --out is required")
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		snap, err := s.LoadSnapshot(ctx)
		if err != nil {
			return eris.Wrap(err, "audit: load snapshot")
		}

		res, err := panel.Build(ctx, snap, panel.Options{
			Years:                cfg.Panel.Years,
			ProgrammedRecordType: cfg.Panel.ProgrammedRecordType,
		})
		if err != nil {
			return eris.Wrap(err, "audit: rebuild panel")
		}

		w, err := audit.NewWriter(out)
		if err != nil {
			return err
		}
		defer w.Close()

		if err := w.Migrate(ctx); err != nil {
			return err
		}

		n, err := w.WriteTrace(ctx, res)
		if err != nil {
			return eris.Wrap(err, "audit: write trace")
		}

		log.Info("audit trace written", zap.String("path", out), zap.Int("item_rows", n))
		fmt.Printf("Wrote %d item rows for %d cohort units to %s\n", n, len(res.Cohort), out)
		return nil
	},
}

func init() {
	auditCmd.Flags().String("out", "", "output SQLite path")
	rootCmd.AddCommand(auditCmd)
}
