package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/config"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/experiment"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/logger"
)

var fetchRefresh bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch prices into the cache without backtesting",
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchRefresh, "refresh", false, "refetch prices even if cached")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("refresh") {
		cfg.Data.Refresh = fetchRefresh
	}

	runner, err := experiment.New(cfg, log)
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prices, err := runner.Prices(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Source:  %s\n", cfg.Data.Source)
	fmt.Fprintf(w, "Assets:  %d\n", prices.Cols())
	fmt.Fprintf(w, "Dates:   %d\n", prices.Rows())
	if len(prices.Dates) > 0 {
		fmt.Fprintf(w, "Range:   %s to %s\n",
			prices.Dates[0].Format(core.DateLayout),
			prices.Dates[len(prices.Dates)-1].Format(core.DateLayout))
	}
	if cfg.Data.Source != config.SourceSynthetic {
		fmt.Fprintf(w, "Cache:   %s\n", cfg.PriceRequest().CacheName())
	}
	return nil
}
