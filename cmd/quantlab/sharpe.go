package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/backtest"
)

var sharpePeriodsPerYear int

// defaultSampleReturns is used when no returns are given
var defaultSampleReturns = []float64{0.01, -0.01, 0.02, -0.02}

var sharpeCmd = &cobra.Command{
	Use:   "sharpe [returns...]",
	Short: "Compute the annualized Sharpe ratio of a return series",
	Long: `Compute mean/stdev * sqrt(periods-per-year) over the given per-period
returns, using the sample standard deviation and a zero risk-free rate.
Without arguments a small sample series is used.`,
	RunE: runSharpe,
}

func init() {
	sharpeCmd.Flags().IntVar(&sharpePeriodsPerYear, "periods-per-year", 12, "periods per year used to annualize")
	rootCmd.AddCommand(sharpeCmd)
}

func runSharpe(cmd *cobra.Command, args []string) error {
	if sharpePeriodsPerYear < 1 {
		return fmt.Errorf("periods-per-year must be positive, got %d", sharpePeriodsPerYear)
	}

	returns := defaultSampleReturns
	if len(args) > 0 {
		returns = make([]float64, len(args))
		for i, a := range args {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("invalid return %q: %w", a, err)
			}
			returns[i] = v
		}
	}

	sharpe := backtest.AnnualizedSharpe(returns, sharpePeriodsPerYear)
	fmt.Fprintf(cmd.OutOrStdout(), "Sharpe: %s\n", formatMetric(sharpe))
	return nil
}
