package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/config"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/experiment"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/logger"
)

var (
	runSource    string
	runRefresh   bool
	runProject   string
	runLookback  int
	runRebalance string
	runCostBps   float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a momentum backtest experiment",
	Long: `Load prices, backtest the long/short momentum strategy and write the
equity curve, rebalances, summary, resolved config, metrics and log to a
fresh run directory under outputs_root/<project>/.`,
	Args: cobra.NoArgs,
	RunE: runExperiment,
}

func init() {
	runCmd.Flags().StringVar(&runSource, "source", "", "price source: synthetic or yahoo")
	runCmd.Flags().BoolVar(&runRefresh, "refresh", false, "refetch prices even if cached")
	runCmd.Flags().StringVar(&runProject, "project", "", "project name, the run directory parent")
	runCmd.Flags().IntVar(&runLookback, "lookback", 0, "signal lookback in periods")
	runCmd.Flags().StringVar(&runRebalance, "rebalance", "", "rebalance cadence: daily, weekly or monthly")
	runCmd.Flags().Float64Var(&runCostBps, "cost-bps", 0, "transaction cost in basis points of traded notional")

	rootCmd.AddCommand(runCmd)
}

// applyRunFlags overrides config values with flags the user set explicitly
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Data.Source = runSource
	}
	if flags.Changed("refresh") {
		cfg.Data.Refresh = runRefresh
	}
	if flags.Changed("project") {
		cfg.Project = runProject
	}
	if flags.Changed("lookback") {
		cfg.Strategy.Lookback = runLookback
	}
	if flags.Changed("rebalance") {
		cfg.Strategy.Rebalance = runRebalance
	}
	if flags.Changed("cost-bps") {
		cfg.Strategy.CostBps = runCostBps
	}
}

func runExperiment(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)

	runner, err := experiment.New(cfg, log)
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := runner.Run(ctx)
	if err != nil {
		log.Error("experiment failed", zap.Error(err))
		return err
	}

	printSummary(cmd, out)
	return nil
}

func printSummary(cmd *cobra.Command, out *experiment.Outcome) {
	w := cmd.OutOrStdout()
	s := out.Stats

	fmt.Fprintln(w, "=== quantlab run ===")
	fmt.Fprintf(w, "Run dir:       %s\n", out.Run.Path)
	fmt.Fprintf(w, "Source:        %s (%d assets)\n", out.Source, len(out.Columns))
	fmt.Fprintf(w, "Periods:       %d active of %d\n", s.Periods, len(out.Result.Returns))
	fmt.Fprintf(w, "Total return:  %.4f\n", s.TotalReturn)
	fmt.Fprintf(w, "Sharpe:        %s\n", formatMetric(s.SharpeRatio))
	fmt.Fprintf(w, "Max drawdown:  %.4f\n", s.MaxDrawdown)
	fmt.Fprintf(w, "Rebalances:    %d (turnover %.2f, cost %.6f)\n", s.Rebalances, s.TotalTurnover, s.TotalCost)
	if s.Overlaps > 0 {
		fmt.Fprintf(w, "Overlaps:      %d rebalances netted assets held on both sides\n", s.Overlaps)
	}
}

// formatMetric prints an undefined ratio as n/a
func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
