package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quipulab/cmn-panel/internal/config"
	"github.com/quipulab/cmn-panel/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cmn-panel",
	Short: "Procurement-registration panel builder",
	Long:  "Reconciles MEF and MINEDU Cuadro de Necesidades feeds into a balanced unit panel with execution-coverage indicators.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore validates the config and connects to Postgres. Callers own the
// returned store and must Close it.
func openStore(ctx context.Context) (*store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "connect to database")
	}
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
