package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quipulab/cmn-panel/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a derived table to CSV",
	Long: `Export one derived panel table to a CSV file.

  cmn-panel export --table indicator --out indicator.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		table, _ := cmd.Flags().GetString("table")
		out, _ := cmd.Flags().GetString("out")
		if table == "" || out == "" {
			return eris.New("export: --table and --out are required")
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", out)
		}
		defer f.Close()

		n, err := s.ExportCSV(ctx, table, f)
		if err != nil {
			return eris.Wrapf(err, "export %s", table)
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "export: close %s", out)
		}

		zap.L().Info("table exported", zap.String("table", table), zap.Int64("rows", n))
		fmt.Printf("Exported %d rows to %s\n", n, out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("table", "", "table to export: "+strings.Join(store.ExportableTables(), ", "))
	exportCmd.Flags().String("out", "", "output CSV path")
	rootCmd.AddCommand(exportCmd)
}
