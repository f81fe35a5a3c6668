package main

import (
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load source feed files",
	Long:  "Loads CMN registration exports, execution events, and the SIGA roster into the raw schema.",
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
